package subledger_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/store/textfile"
	"github.com/xraph/subledger/table"
	"github.com/xraph/subledger/table/csvtable"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(date string) *fakeClock {
	return &fakeClock{now: types.MustParseDate(date).Time()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = types.MustParseDate(date).Time()
}

func newLedger(t *testing.T, s *memory.Store, clock *fakeClock, opts ...subledger.Option) *subledger.Ledger {
	t.Helper()
	opts = append([]subledger.Option{
		subledger.WithClock(clock.Now),
		subledger.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	l := subledger.New(s, opts...)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func premium(name string) subledger.EnrollInput {
	return subledger.EnrollInput{
		Name:        name,
		Email:       name + "@example.com",
		Tier:        tier.Premium,
		RenewalDate: types.MustParseDate("2024-02-15"),
		Payment:     payment.Some(payment.Card),
	}
}

func free(name string) subledger.EnrollInput {
	return subledger.EnrollInput{
		Name:        name,
		Email:       name + "@example.com",
		Tier:        tier.Free,
		RenewalDate: types.MustParseDate("2024-02-15"),
	}
}

func TestEnroll_AssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"))

	for i, name := range []string{"alice", "bob", "carol"} {
		c, err := l.Enroll(ctx, premium(name))
		require.NoError(t, err)
		assert.Equal(t, customer.ID(i+1), c.ID)
	}

	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].Name)
	assert.Equal(t, "carol", list[2].Name)
}

func TestEnroll_PersistsStateAndProjection(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)

	assert.Equal(t, 1, s.CustomerWrites())
	assert.Equal(t, 1, s.ProjectionWrites())
	assert.Equal(t, []customer.Projection{{Name: "alice", Tier: tier.Premium}}, s.Projection())
}

func TestEnroll_FreeForcesAbsentPayment(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"))

	in := free("alice")
	in.Payment = payment.Some(payment.Card)

	c, err := l.Enroll(ctx, in)
	require.NoError(t, err)
	assert.False(t, c.Payment.IsPresent())
}

func TestEnroll_PaidTierRequiresPayment(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"))

	in := premium("alice")
	in.Payment = payment.None()

	_, err := l.Enroll(ctx, in)
	require.ErrorIs(t, err, subledger.ErrPaymentRequired)
	assert.True(t, subledger.IsValidationError(err))
	assert.Zero(t, l.Len())
	assert.Zero(t, s.CustomerWrites())
}

func TestEnroll_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*subledger.EnrollInput)
		want   error
	}{
		{"email without at", func(in *subledger.EnrollInput) { in.Email = "alice.example.com" }, subledger.ErrInvalidEmail},
		{"email without dot", func(in *subledger.EnrollInput) { in.Email = "alice@example" }, subledger.ErrInvalidEmail},
		{"renewal today", func(in *subledger.EnrollInput) { in.RenewalDate = types.MustParseDate("2024-01-15") }, subledger.ErrRenewalNotInFuture},
		{"renewal in past", func(in *subledger.EnrollInput) { in.RenewalDate = types.MustParseDate("2023-12-31") }, subledger.ErrRenewalNotInFuture},
		{"unknown tier", func(in *subledger.EnrollInput) { in.Tier = "PLATINUM" }, subledger.ErrUnknownTier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, memory.New(), newClock("2024-01-15"))
			in := premium("alice")
			tt.mutate(&in)

			_, err := l.Enroll(context.Background(), in)
			require.ErrorIs(t, err, tt.want)

			var verr *subledger.ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Zero(t, l.Len())
		})
	}
}

func TestEnroll_QuotaSaturation(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"),
		subledger.WithLimits(map[tier.Tier]int{tier.Gold: 2}),
	)

	gold := func(name string) subledger.EnrollInput {
		in := premium(name)
		in.Tier = tier.Gold
		return in
	}

	_, err := l.Enroll(ctx, gold("a"))
	require.NoError(t, err)
	_, err = l.Enroll(ctx, gold("b"))
	require.NoError(t, err)

	_, err = l.Enroll(ctx, gold("c"))
	require.ErrorIs(t, err, subledger.ErrQuotaExceeded)
	assert.True(t, subledger.IsQuotaError(err))

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 2, s.CustomerWrites())

	res := l.Quota(tier.Gold)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.Used)
	assert.Equal(t, 0, res.Remaining)

	// Other tiers are counted separately.
	_, err = l.Enroll(ctx, premium("d"))
	require.NoError(t, err)
}

func TestEnroll_QuotaResetsAfterCalendarMonth(t *testing.T) {
	ctx := context.Background()
	clock := newClock("2024-01-31")
	l := newLedger(t, memory.New(), clock,
		subledger.WithLimits(map[tier.Tier]int{tier.Free: 1}),
	)

	in := free("a")
	in.RenewalDate = types.MustParseDate("2024-06-01")

	_, err := l.Enroll(ctx, in)
	require.NoError(t, err)
	_, err = l.Enroll(ctx, in)
	require.ErrorIs(t, err, subledger.ErrQuotaExceeded)

	// 2024-01-31 -> 2024-02-29 is not yet a full month.
	clock.Set("2024-02-29")
	_, err = l.Enroll(ctx, in)
	require.ErrorIs(t, err, subledger.ErrQuotaExceeded)

	clock.Set("2024-03-31")
	_, err = l.Enroll(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Quota(tier.Free).Used)
}

func TestEnroll_UnlimitedTier(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"),
		subledger.WithLimits(map[tier.Tier]int{tier.Premium: -1}),
	)

	for _, name := range []string{"a", "b", "c"} {
		_, err := l.Enroll(ctx, premium(name))
		require.NoError(t, err)
	}
	assert.Equal(t, quota.Unlimited, l.Quota(tier.Premium).Limit)
}

func TestEnroll_PersistFailureKeepsCustomer(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"))

	diskFull := errors.New("disk full")
	s.FailWrites(diskFull)

	c, err := l.Enroll(ctx, premium("alice"))
	require.ErrorIs(t, err, diskFull)
	require.NotNil(t, c)
	assert.Equal(t, customer.ID(1), c.ID)
	assert.Equal(t, 1, l.Len())

	s.FailWrites(nil)
	require.NoError(t, l.Save(ctx))
	assert.Equal(t, 1, s.CustomerWrites())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "customers.csv")
	clock := newClock("2024-01-15")
	logger := slog.New(slog.DiscardHandler)

	l := subledger.New(textfile.New(path), subledger.WithClock(clock.Now), subledger.WithLogger(logger))
	require.NoError(t, l.Start(ctx))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)
	_, err = l.Enroll(ctx, free("bob"))
	require.NoError(t, err)
	_, err = l.Cancel(ctx, 2)
	require.NoError(t, err)
	want := l.List()
	require.NoError(t, l.Stop())

	reloaded := subledger.New(textfile.New(path), subledger.WithClock(clock.Now), subledger.WithLogger(logger))
	require.NoError(t, reloaded.Start(ctx))
	defer reloaded.Stop()

	assert.Equal(t, want, reloaded.List())

	// Ids continue after the highest loaded id.
	c, err := reloaded.Enroll(ctx, premium("carol"))
	require.NoError(t, err)
	assert.Equal(t, customer.ID(3), c.ID)
}

func TestStart_MissingStoreStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "absent", "customers.csv")

	l := subledger.New(textfile.New(path), subledger.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	assert.Zero(t, l.Len())
	assert.Equal(t, 0, l.Quota(tier.Free).Used)
}

func TestStart_CorruptStoreIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "customers.csv")
	s := textfile.New(path)
	require.NoError(t, s.Migrate(ctx))

	data := []byte("id,name,email,tier,renewalDate,canceled,paymentMethod\n" +
		"1,Ann,ann@example.com,PREMIUM,2024-02-15,false,CARD\n" +
		"2,Bo,bo@example.com,GOLD,2024-02-15,false,BITCOIN\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	l := subledger.New(s,
		subledger.WithClock(newClock("2024-01-15").Now),
		subledger.WithLogger(slog.New(slog.DiscardHandler)),
	)
	err := l.Start(ctx)
	require.ErrorIs(t, err, payment.ErrUnknown)
	assert.Zero(t, l.Len())

	_, err = l.Enroll(ctx, premium("Cy"))
	require.ErrorIs(t, err, subledger.ErrStoreUnreadable)
	require.ErrorIs(t, l.Save(ctx), subledger.ErrStoreUnreadable)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(got), "Ann must survive a failed load")
	assert.NoFileExists(t, s.QuotaPath())

	// Once the row is repaired a restart loads both customers and ids continue.
	require.NoError(t, os.WriteFile(path, bytes.ReplaceAll(data, []byte("BITCOIN"), []byte("CASH")), 0o600))
	reloaded := subledger.New(s,
		subledger.WithClock(newClock("2024-01-15").Now),
		subledger.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, reloaded.Start(ctx))
	defer reloaded.Stop()
	assert.Equal(t, 2, reloaded.Len())

	c, err := reloaded.Enroll(ctx, premium("Cy"))
	require.NoError(t, err)
	assert.Equal(t, customer.ID(3), c.ID)
}

func TestStart_RestoresQuotaWindow(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	clock := newClock("2024-01-15")
	limits := subledger.WithLimits(map[tier.Tier]int{tier.Premium: 2})

	first := newLedger(t, s, clock, limits)
	_, err := first.Enroll(ctx, premium("a"))
	require.NoError(t, err)
	_, err = first.Enroll(ctx, premium("b"))
	require.NoError(t, err)

	// A second session over the same store sees the saturated tier.
	clock.Set("2024-01-20")
	second := newLedger(t, s, clock, limits)
	assert.Equal(t, 2, second.Quota(tier.Premium).Used)
	_, err = second.Enroll(ctx, premium("c"))
	require.ErrorIs(t, err, subledger.ErrQuotaExceeded)

	// A month after the stored window started the counters are reset and saved.
	clock.Set("2024-02-15")
	third := newLedger(t, s, clock, limits)
	assert.Equal(t, 0, third.Quota(tier.Premium).Used)

	saved, err := s.LoadQuota(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MustParseDate("2024-02-15"), saved.LastReset)
	assert.Equal(t, 0, saved.Usage[tier.Premium])
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)

	c, err := l.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Name)

	// Returned records are copies.
	c.Name = "mallory"
	again, err := l.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Name)

	_, err = l.Find(42)
	require.ErrorIs(t, err, subledger.ErrCustomerNotFound)
	assert.True(t, subledger.IsNotFound(err))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)
	writes := s.CustomerWrites()

	removed, err := l.Remove(ctx, 99)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, writes, s.CustomerWrites())

	removed, err = l.Remove(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Zero(t, l.Len())
	assert.Equal(t, writes+1, s.CustomerWrites())
}

func TestRenew(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-01"))

	in := premium("alice")
	in.RenewalDate = types.MustParseDate("2024-01-15")
	_, err := l.Enroll(ctx, in)
	require.NoError(t, err)

	c, renewed, err := l.Renew(ctx, 1)
	require.NoError(t, err)
	assert.True(t, renewed)
	assert.Equal(t, "2024-02-15", c.RenewalDate.String())

	_, err = l.Enroll(ctx, free("bob"))
	require.NoError(t, err)

	c, renewed, err = l.Renew(ctx, 2)
	require.NoError(t, err)
	assert.False(t, renewed)
	assert.Equal(t, "2024-02-15", c.RenewalDate.String())

	_, _, err = l.Renew(ctx, 3)
	require.ErrorIs(t, err, subledger.ErrCustomerNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)

	t.Run("downgrade to free drops payment", func(t *testing.T) {
		freeTier := tier.Free
		c, err := l.Update(ctx, 1, subledger.Patch{Tier: &freeTier})
		require.NoError(t, err)
		assert.Equal(t, tier.Free, c.Tier)
		assert.False(t, c.Payment.IsPresent())
		assert.Equal(t, []customer.Projection{{Name: "alice", Tier: tier.Free}}, s.Projection())
	})

	t.Run("upgrade without payment is rejected", func(t *testing.T) {
		gold := tier.Gold
		_, err := l.Update(ctx, 1, subledger.Patch{Tier: &gold})
		require.ErrorIs(t, err, subledger.ErrPaymentRequired)

		c, err := l.Find(1)
		require.NoError(t, err)
		assert.Equal(t, tier.Free, c.Tier)
	})

	t.Run("upgrade with payment", func(t *testing.T) {
		gold := tier.Gold
		pm := payment.Some(payment.PayPal)
		c, err := l.Update(ctx, 1, subledger.Patch{Tier: &gold, Payment: &pm})
		require.NoError(t, err)
		assert.True(t, c.Payment.Is(payment.PayPal))
	})

	t.Run("invalid email", func(t *testing.T) {
		email := "nope"
		_, err := l.Update(ctx, 1, subledger.Patch{Email: &email})
		require.ErrorIs(t, err, subledger.ErrInvalidEmail)
	})

	t.Run("past renewal", func(t *testing.T) {
		past := types.MustParseDate("2024-01-01")
		_, err := l.Update(ctx, 1, subledger.Patch{RenewalDate: &past})
		require.ErrorIs(t, err, subledger.ErrRenewalNotInFuture)
	})

	t.Run("missing customer", func(t *testing.T) {
		name := "x"
		_, err := l.Update(ctx, 9, subledger.Patch{Name: &name})
		require.ErrorIs(t, err, subledger.ErrCustomerNotFound)
	})
}

func TestCancelAndPaymentPassthroughs(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"))

	cash := premium("alice")
	cash.Payment = payment.Some(payment.Cash)
	_, err := l.Enroll(ctx, cash)
	require.NoError(t, err)
	_, err = l.Enroll(ctx, free("bob"))
	require.NoError(t, err)

	ok, err := l.CancelCashPayment(1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.CancelCashPayment(2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.MarkPaid(1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.MarkPaid(2)
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := l.Cancel(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.Canceled)
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)
	gold := premium("carol")
	gold.Tier = tier.Gold
	_, err = l.Enroll(ctx, gold)
	require.NoError(t, err)
	_, err = l.Enroll(ctx, free("bob"))
	require.NoError(t, err)
	_, err = l.Cancel(ctx, 2)
	require.NoError(t, err)

	r := l.Report()
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Active)
	assert.Equal(t, 1, r.Canceled)
	assert.Equal(t, map[tier.Tier]int{tier.Free: 1, tier.Premium: 1, tier.Gold: 1}, r.ByTier)
	assert.Equal(t, types.USD(999), r.MonthlyRevenue)
}

// Alice enrolls on PREMIUM with a card and Bob on FREE; Bob is removed
// and the report reflects one active customer.
func TestAliceAndBob(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-10"))

	alice, err := l.Enroll(ctx, subledger.EnrollInput{
		Name:        "Alice",
		Email:       "alice@example.com",
		Tier:        tier.Premium,
		RenewalDate: types.MustParseDate("2024-02-15"),
		Payment:     payment.Some(payment.Card),
	})
	require.NoError(t, err)
	bob, err := l.Enroll(ctx, subledger.EnrollInput{
		Name:        "Bob",
		Email:       "bob@example.com",
		Tier:        tier.Free,
		RenewalDate: types.MustParseDate("2024-03-01"),
	})
	require.NoError(t, err)

	assert.Equal(t, customer.ID(1), alice.ID)
	assert.Equal(t, customer.ID(2), bob.ID)
	assert.False(t, bob.Payment.IsPresent())
	assert.Equal(t, 36, alice.DaysUntilRenewal(l.Today()))

	removed, err := l.Remove(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	r := l.Report()
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, 1, r.Active)
	assert.Zero(t, r.Canceled)

	loaded, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Alice", loaded[0].Name)
}

func TestExportImportTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "customers.csv")

	src := newLedger(t, memory.New(), newClock("2024-01-15"),
		subledger.WithTableCodec(csvtable.New()),
	)
	_, err := src.Enroll(ctx, premium("alice"))
	require.NoError(t, err)
	_, err = src.Enroll(ctx, free("bob"))
	require.NoError(t, err)
	_, err = src.Remove(ctx, 1)
	require.NoError(t, err)
	_, err = src.Enroll(ctx, premium("carol"))
	require.NoError(t, err)

	require.NoError(t, src.ExportTable(ctx, path))

	dstStore := memory.New()
	dst := newLedger(t, dstStore, newClock("2024-01-15"),
		subledger.WithTableCodec(csvtable.New()),
	)
	_, err = dst.Enroll(ctx, premium("zed"))
	require.NoError(t, err)

	n, err := dst.ImportTable(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, src.List(), dst.List())

	// Import persists and the next id follows the highest imported id.
	loaded, err := dstStore.LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	c, err := dst.Enroll(ctx, premium("dave"))
	require.NoError(t, err)
	assert.Equal(t, customer.ID(4), c.ID)
}

func TestImportTable_RejectsBadRowsAtomically(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bad.csv")
	codec := csvtable.New()

	sheet := subledger.SheetFromCustomers(nil)
	sheet.Rows = [][]table.Cell{
		{table.Text("1"), table.Text("ok"), table.Text("ok@example.com"), table.Text("FREE"), table.Text("2024-05-01"), table.Text("false"), table.Empty()},
		{table.Text("2"), table.Text("nopay"), table.Text("np@example.com"), table.Text("GOLD"), table.Text("2024-05-01"), table.Text("false"), table.Empty()},
		{table.Text("3"), table.Text("bad"), table.Text("bad"), table.Text("PREMIUM"), table.Text("2024-05-01"), table.Text("false"), table.Text("CARD")},
		{table.Text("1"), table.Text("dup"), table.Text("d@example.com"), table.Text("FREE"), table.Text("2024-05-01"), table.Text("false"), table.Empty()},
	}
	require.NoError(t, codec.Write(ctx, path, sheet))

	s := memory.New()
	l := newLedger(t, s, newClock("2024-01-15"), subledger.WithTableCodec(codec))
	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)
	writes := s.CustomerWrites()

	n, err := l.ImportTable(ctx, path)
	require.Error(t, err)
	assert.Zero(t, n)

	var multi subledger.MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 3)
	assert.ErrorIs(t, err, subledger.ErrInvalidTable)
	assert.ErrorIs(t, err, subledger.ErrPaymentRequired)
	assert.ErrorIs(t, err, subledger.ErrInvalidEmail)

	list := l.List()
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Name)
	assert.Equal(t, writes, s.CustomerWrites())
}

func TestImportTable_BadHeader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bad.csv")
	codec := csvtable.New()

	require.NoError(t, codec.Write(ctx, path, &table.Sheet{Header: []string{"Name", "Email"}}))

	l := newLedger(t, memory.New(), newClock("2024-01-15"), subledger.WithTableCodec(codec))
	_, err := l.ImportTable(ctx, path)
	require.ErrorIs(t, err, subledger.ErrInvalidTable)
}

func TestTableWithoutCodec(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"), subledger.WithTableCodec(nil))

	require.ErrorIs(t, l.ExportTable(ctx, "x.xlsx"), subledger.ErrNoTableCodec)
	_, err := l.ImportTable(ctx, "x.xlsx")
	require.ErrorIs(t, err, subledger.ErrNoTableCodec)
}

// lenReader reads the ledger from inside a hook; it would time out if hooks
// ran while the ledger lock is held.
type lenReader struct {
	ledger *subledger.Ledger
	seen   chan int
}

func (p *lenReader) Name() string { return "len-reader" }

func (p *lenReader) OnCustomerEnrolled(_ context.Context, _ *customer.Customer) error {
	p.seen <- p.ledger.Len()
	return nil
}

func TestHooksRunOutsideLock(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New(), newClock("2024-01-15"))
	l.Plugins().WithTimeout(time.Second)

	reader := &lenReader{ledger: l, seen: make(chan int, 1)}
	require.NoError(t, l.Plugins().Register(reader))

	_, err := l.Enroll(ctx, premium("alice"))
	require.NoError(t, err)

	select {
	case n := <-reader.seen:
		assert.Equal(t, 1, n)
	default:
		t.Fatal("hook did not complete before Enroll returned")
	}
}

func TestEnroll_RejectedEmailLeavesCounter(t *testing.T) {
	ctx := context.Background()
	clock := newClock("2024-03-10")
	l := newLedger(t, memory.New(), clock)
	renewal := l.Today().AddMonths(1)

	alice, err := l.Enroll(ctx, subledger.EnrollInput{
		Name:        "Alice Smith",
		Email:       "alice@x.com",
		Tier:        tier.Premium,
		RenewalDate: renewal,
		Payment:     payment.Some(payment.Card),
	})
	require.NoError(t, err)
	assert.Equal(t, customer.ID(1), alice.ID)
	assert.Equal(t, 1, l.Quota(tier.Premium).Used)

	_, err = l.Enroll(ctx, subledger.EnrollInput{
		Name:        "Bob",
		Email:       "bob@bad",
		Tier:        tier.Premium,
		RenewalDate: renewal,
		Payment:     payment.Some(payment.Card),
	})
	require.ErrorIs(t, err, subledger.ErrInvalidEmail)
	assert.Equal(t, 1, l.Quota(tier.Premium).Used)
	assert.Equal(t, 1, l.Len())
}
