package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/session"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

func runAdd(args []string) error {
	fs := newFlagSet(session.CommandAdd, "add [options]")
	g := registerGlobalFlags(fs)
	name := fs.String("name", "", "customer name")
	email := fs.String("email", "", "customer email")
	tierFlag := fs.String("tier", string(tier.Free), "subscription tier: FREE, PREMIUM or GOLD")
	renewal := fs.String("renewal", "", "renewal date (YYYY-MM-DD), must be after today")
	pm := fs.String("payment", "", "payment method for paid tiers: CARD, CASH, BANK_TRANSFER or PAYPAL")

	return withApp(session.CommandAdd, fs, g, args, func(ctx context.Context, a *app, _ []string) error {
		t, err := tier.Parse(*tierFlag)
		if err != nil {
			return err
		}
		date, err := types.ParseDate(*renewal)
		if err != nil {
			return err
		}
		method, err := payment.ParseOption(*pm)
		if err != nil {
			return err
		}

		c, err := a.ledger.Enroll(ctx, subledger.EnrollInput{
			Name:        *name,
			Email:       *email,
			Tier:        t,
			RenewalDate: date,
			Payment:     method,
		})
		if c != nil {
			fmt.Fprintf(stdout, "Customer enrolled with ID %d\n", c.ID)
		}
		return err
	})
}

func runList(args []string) error {
	fs := newFlagSet(session.CommandList, "list [options]")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandList, fs, g, args, func(_ context.Context, a *app, _ []string) error {
		customers := a.ledger.List()
		if len(customers) == 0 {
			fmt.Fprintln(stdout, "No customers found.")
			return nil
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tTIER\tRENEWAL\tCANCELED\tPAYMENT")
		for _, c := range customers {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
				c.ID, c.Name, c.Email, c.Tier, c.RenewalDate, c.Canceled, formatPayment(c))
		}
		return w.Flush()
	})
}

func runView(args []string) error {
	fs := newFlagSet(session.CommandView, "view [options] <id>")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandView, fs, g, args, func(_ context.Context, a *app, rest []string) error {
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		c, err := a.ledger.Find(id)
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout, c.String())
		fmt.Fprintf(stdout, "Days until renewal: %d\n", c.DaysUntilRenewal(a.ledger.Today()))
		fmt.Fprintf(stdout, "Billing period: %s\n", c.SubscriptionPeriod())
		return nil
	})
}

func runUpdate(args []string) error {
	fs := newFlagSet(session.CommandUpdate, "update [options] <id>")
	g := registerGlobalFlags(fs)
	name := fs.String("name", "", "new name")
	email := fs.String("email", "", "new email")
	tierFlag := fs.String("tier", "", "new tier")
	renewal := fs.String("renewal", "", "new renewal date (YYYY-MM-DD)")
	pm := fs.String("payment", "", "new payment method")
	canceled := fs.Bool("canceled", false, "canceled flag")

	return withApp(session.CommandUpdate, fs, g, args, func(ctx context.Context, a *app, rest []string) error {
		id, err := parseID(rest)
		if err != nil {
			return err
		}

		var (
			patch subledger.Patch
			errs  []error
		)
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				patch.Name = name
			case "email":
				patch.Email = email
			case "tier":
				t, err := tier.Parse(*tierFlag)
				errs = append(errs, err)
				patch.Tier = &t
			case "renewal":
				d, err := types.ParseDate(*renewal)
				errs = append(errs, err)
				patch.RenewalDate = &d
			case "payment":
				o, err := payment.ParseOption(*pm)
				errs = append(errs, err)
				patch.Payment = &o
			case "canceled":
				patch.Canceled = canceled
			}
		})
		if err := errors.Join(errs...); err != nil {
			return err
		}

		c, err := a.ledger.Update(ctx, id, patch)
		if c != nil {
			fmt.Fprintf(stdout, "Customer %d updated\n", c.ID)
		}
		return err
	})
}

func runDelete(args []string) error {
	fs := newFlagSet(session.CommandDelete, "delete [options] <id>")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandDelete, fs, g, args, func(ctx context.Context, a *app, rest []string) error {
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		removed, err := a.ledger.Remove(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(stdout, "Customer %d not found\n", id)
			return nil
		}
		fmt.Fprintf(stdout, "Customer %d deleted\n", id)
		return nil
	})
}

func runReport(args []string) error {
	fs := newFlagSet(session.CommandReport, "report [options]")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandReport, fs, g, args, func(_ context.Context, a *app, _ []string) error {
		r := a.ledger.Report()

		fmt.Fprintf(stdout, "Total customers: %d\n", r.Total)
		fmt.Fprintf(stdout, "Active subscriptions: %d\n", r.Active)
		fmt.Fprintf(stdout, "Canceled subscriptions: %d\n", r.Canceled)
		for _, t := range tier.All() {
			fmt.Fprintf(stdout, "  %s: %d\n", t, r.ByTier[t])
		}
		fmt.Fprintf(stdout, "Monthly revenue: %s\n", r.MonthlyRevenue)
		return nil
	})
}

func runImport(args []string) error {
	fs := newFlagSet(session.CommandImport, "import [options] <file>")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandImport, fs, g, args, func(ctx context.Context, a *app, rest []string) error {
		if len(rest) < 1 {
			return errors.New("import file is required")
		}

		n, err := a.ledger.ImportTable(ctx, rest[0])
		var multi subledger.MultiError
		if errors.As(err, &multi) {
			for _, e := range multi.Errors {
				fmt.Fprintf(stderr, "  %v\n", e)
			}
			return fmt.Errorf("import rejected: %d invalid rows", len(multi.Errors))
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Imported %d customers from %s\n", n, rest[0])
		return nil
	})
}

func runExport(args []string) error {
	fs := newFlagSet(session.CommandExport, "export [options] <file>")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandExport, fs, g, args, func(ctx context.Context, a *app, rest []string) error {
		if len(rest) < 1 {
			return errors.New("export file is required")
		}
		if err := a.ledger.ExportTable(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported %d customers to %s\n", a.ledger.Len(), rest[0])
		return nil
	})
}

func runCancel(args []string) error {
	fs := newFlagSet(session.CommandCancel, "cancel [options] <id>")
	g := registerGlobalFlags(fs)
	cashOnly := fs.Bool("cash-payment", false, "only cancel a pending cash payment")

	return withApp(session.CommandCancel, fs, g, args, func(ctx context.Context, a *app, rest []string) error {
		id, err := parseID(rest)
		if err != nil {
			return err
		}

		if *cashOnly {
			ok, err := a.ledger.CancelCashPayment(id)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(stdout, "Cash payment canceled")
			} else {
				fmt.Fprintln(stdout, "No cash payment to cancel")
			}
			return nil
		}

		if _, err := a.ledger.Cancel(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Subscription %d canceled\n", id)
		return nil
	})
}

func runRenew(args []string) error {
	fs := newFlagSet(session.CommandRenew, "renew [options] <id>")
	g := registerGlobalFlags(fs)
	paid := fs.Bool("paid", false, "also mark the new period as paid")

	return withApp(session.CommandRenew, fs, g, args, func(ctx context.Context, a *app, rest []string) error {
		id, err := parseID(rest)
		if err != nil {
			return err
		}

		c, renewed, err := a.ledger.Renew(ctx, id)
		if err != nil {
			return err
		}
		if !renewed {
			fmt.Fprintln(stdout, "Free subscriptions do not renew")
			return nil
		}
		fmt.Fprintf(stdout, "Renewed until %s\n", c.RenewalDate)

		if *paid {
			if ok, err := a.ledger.MarkPaid(id); err != nil {
				return err
			} else if ok {
				fmt.Fprintln(stdout, "Payment recorded")
			}
		}
		return nil
	})
}

func runQuota(args []string) error {
	fs := newFlagSet(session.CommandQuota, "quota [options]")
	g := registerGlobalFlags(fs)

	return withApp(session.CommandQuota, fs, g, args, func(_ context.Context, a *app, _ []string) error {
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tUSED\tLIMIT\tREMAINING")
		for _, r := range a.ledger.QuotaSnapshot() {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Tier, r.Used, quotaCount(r.Limit), quotaCount(r.Remaining))
		}
		return w.Flush()
	})
}

func runTiers(args []string) error {
	fs := newFlagSet(session.CommandTiers, "tiers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	limits := tier.DefaultLimits()
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tPRICE\tPERIOD\tMONTHLY LIMIT")
	for _, t := range tier.All() {
		period := "none"
		if n := t.DurationMonths(); n > 0 {
			period = fmt.Sprintf("%d month(s)", n)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t, t.Price(), period, limits[t])
	}
	return w.Flush()
}

func quotaCount(n int) string {
	if n == quota.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

// formatPayment renders a payment option for listings.
func formatPayment(c *customer.Customer) string {
	if m, ok := c.Payment.Get(); ok {
		return m.String()
	}
	return "-"
}
