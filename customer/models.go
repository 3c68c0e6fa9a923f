// Package customer defines the subscriber record owned by the ledger and the
// pure behaviors derived from it: renewal math, billing period and display.
package customer

import (
	"fmt"
	"strings"

	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// ID is a customer's sequential identifier. Valid ids are positive and are
// assigned by the ledger in enrollment order.
type ID int

// Customer is one subscriber.
type Customer struct {
	ID          ID             `json:"id"           validate:"gt=0"`
	Name        string         `json:"name"`
	Email       string         `json:"email"        validate:"contact_email"`
	Tier        tier.Tier      `json:"tier"         validate:"known_tier"`
	RenewalDate types.Date     `json:"renewal_date" validate:"required"`
	Canceled    bool           `json:"canceled"`
	Payment     payment.Option `json:"-"`
}

// Period is the billing window that ends on the renewal date.
type Period struct {
	Start types.Date `json:"start"`
	End   types.Date `json:"end"`
	// Degenerate is set for tiers without a renewal period (FREE), where
	// Start == End and no real billing window exists.
	Degenerate bool `json:"degenerate"`
}

func (p Period) String() string {
	if p.Degenerate {
		return "No billing period (free tier)"
	}
	return "From: " + p.Start.String() + " To: " + p.End.String()
}

// Projection is the derived name/tier pair written to the projection store.
type Projection struct {
	Name string
	Tier tier.Tier
}

// Projection returns the name/tier projection of c.
func (c *Customer) Projection() Projection {
	return Projection{Name: c.Name, Tier: c.Tier}
}

// Active reports whether the subscription has not been canceled.
func (c *Customer) Active() bool { return !c.Canceled }

// DaysUntilRenewal returns the signed day count from today to the renewal
// date. It is negative once the renewal is overdue.
func (c *Customer) DaysUntilRenewal(today types.Date) int {
	return today.DaysUntil(c.RenewalDate)
}

// Renew advances the renewal date by the tier's duration. Free customers are
// left untouched and Renew reports false.
func (c *Customer) Renew() bool {
	if c.Tier.IsFree() {
		return false
	}
	c.RenewalDate = c.RenewalDate.AddMonths(c.Tier.DurationMonths())
	return true
}

// SubscriptionPeriod returns the current billing window.
func (c *Customer) SubscriptionPeriod() Period {
	months := c.Tier.DurationMonths()
	return Period{
		Start:      c.RenewalDate.AddMonths(-months),
		End:        c.RenewalDate,
		Degenerate: months == 0,
	}
}

// CancelCashPayment reports whether a cash payment was canceled. Any other
// payment method (or none) is a no-op.
func (c *Customer) CancelCashPayment() bool {
	return c.Payment.Is(payment.Cash)
}

// MarkPaid reports whether the current period was marked as paid. Free
// subscriptions need no payment and report false.
func (c *Customer) MarkPaid() bool {
	return !c.Tier.IsFree()
}

// SetTier moves c to t. A free tier always drops the payment method. A paid
// tier keeps the existing method unless pm is present; if neither is present
// SetTier fails with ErrPaymentRequired and c is unchanged.
func (c *Customer) SetTier(t tier.Tier, pm payment.Option) error {
	if !t.Valid() {
		return &ValidationError{Field: "tier", Message: fmt.Sprintf("%q", t), Err: tier.ErrUnknown}
	}
	if t.IsFree() {
		c.Tier, c.Payment = t, payment.None()
		return nil
	}
	if !pm.IsPresent() {
		pm = c.Payment
	}
	if !pm.IsPresent() {
		return &ValidationError{Field: "payment", Message: "required for tier " + t.String(), Err: ErrPaymentRequired}
	}
	c.Tier, c.Payment = t, pm
	return nil
}

// SetPayment replaces the payment method while keeping the tier invariant.
func (c *Customer) SetPayment(pm payment.Option) error {
	if c.Tier.IsFree() && pm.IsPresent() {
		return &ValidationError{Field: "payment", Message: "free subscriptions do not take a payment method", Err: ErrPaymentNotAllowed}
	}
	if !c.Tier.IsFree() && !pm.IsPresent() {
		return &ValidationError{Field: "payment", Message: "required for tier " + c.Tier.String(), Err: ErrPaymentRequired}
	}
	c.Payment = pm
	return nil
}

// Clone returns a copy of c.
func (c *Customer) Clone() *Customer {
	cp := *c
	return &cp
}

// String renders every field, one per line. The payment method is only shown
// for paid tiers.
func (c *Customer) String() string {
	paymentInfo := "N/A"
	if !c.Tier.IsFree() {
		paymentInfo = c.Payment.String()
	}
	canceled := "No"
	if c.Canceled {
		canceled = "Yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID: %d\n", c.ID)
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	fmt.Fprintf(&b, "Type: %s\n", c.Tier)
	fmt.Fprintf(&b, "Renewal: %s\n", c.RenewalDate)
	fmt.Fprintf(&b, "Canceled: %s\n", canceled)
	fmt.Fprintf(&b, "Payment Method: %s", paymentInfo)
	return b.String()
}
