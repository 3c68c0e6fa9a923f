package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sample() []*customer.Customer {
	return []*customer.Customer{
		{
			ID: 3, Name: "Carol", Email: "carol@z.io", Tier: tier.Gold,
			RenewalDate: types.MustParseDate("2024-03-31"), Payment: payment.Some(payment.BankTransfer),
		},
		{
			ID: 1, Name: "Alice", Email: "alice@x.com", Tier: tier.Free,
			RenewalDate: types.MustParseDate("2024-01-15"), Canceled: true,
		},
	}
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, sqlitedriver.Unwrap(s.DB()).
		NewRaw(`SELECT COUNT(*) FROM `+table).
		Scan(context.Background(), &n))
	return n
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	assert.Equal(t, len(Migrations.Migrations()), count(t, s, migrate.MigrationTable))
}

func TestMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.ReplaceCustomers(ctx, sample()))
	got, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReplaceAndLoadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	got, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.ReplaceCustomers(ctx, sample()))
	got, err = s.LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	// A second replace drops rows that are no longer present.
	require.NoError(t, s.ReplaceCustomers(ctx, sample()[1:]))
	got, err = s.LoadCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, customer.ID(1), got[0].ID)
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.ReplaceCustomers(ctx, sample()))

	dup := append(sample(), sample()[0])
	require.Error(t, s.ReplaceCustomers(ctx, dup))

	// The failed transaction leaves the previous collection intact.
	got, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWriteProjection(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rows := []customer.Projection{{Name: "Carol", Tier: tier.Gold}, {Name: "Alice", Tier: tier.Free}}
	require.NoError(t, s.WriteProjection(ctx, rows))
	require.NoError(t, s.WriteProjection(ctx, rows[:1]))
	assert.Equal(t, 1, count(t, s, "subledger_projection"))

	require.NoError(t, s.WriteProjection(ctx, nil))
	assert.Equal(t, 0, count(t, s, "subledger_projection"))
}

func TestQuotaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.LoadQuota(ctx)
	require.ErrorIs(t, err, ledgerstore.ErrNoData)

	in := quota.State{
		LastReset: types.MustParseDate("2024-03-05"),
		Usage:     map[tier.Tier]int{tier.Gold: 3},
	}
	require.NoError(t, s.SaveQuota(ctx, in))
	require.NoError(t, s.SaveQuota(ctx, in))
	assert.Equal(t, len(tier.All()), count(t, s, "subledger_quota"))

	got, err := s.LoadQuota(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.LastReset, got.LastReset)
	assert.Equal(t, 3, got.Usage[tier.Gold])
	assert.Equal(t, 0, got.Usage[tier.Premium])
}

func TestPing(t *testing.T) {
	assert.NoError(t, newStore(t).Ping(context.Background()))
}
