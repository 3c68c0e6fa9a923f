package textfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

func sample() []*customer.Customer {
	return []*customer.Customer{
		{
			ID:          1,
			Name:        "Alice Smith",
			Email:       "alice@x.com",
			Tier:        tier.Premium,
			RenewalDate: types.MustParseDate("2024-02-15"),
			Payment:     payment.Some(payment.Card),
		},
		{
			ID:          2,
			Name:        "Bob",
			Email:       "bob@y.org",
			Tier:        tier.Free,
			RenewalDate: types.MustParseDate("2024-01-15"),
			Canceled:    true,
		},
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(filepath.Join(dir, DefaultDataFile))
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.ReplaceCustomers(ctx, sample()))

	got, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestFileLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCustomers(&buf, sample()))

	want := "id,name,email,tier,renewalDate,canceled,paymentMethod\n" +
		"1,Alice Smith,alice@x.com,PREMIUM,2024-02-15,false,CARD\n" +
		"2,Bob,bob@y.org,FREE,2024-01-15,true,null\n"
	assert.Equal(t, want, buf.String())
}

func TestQuotedFieldsRoundTrip(t *testing.T) {
	in := sample()
	in[0].Name = "Smith, Alice"

	var buf bytes.Buffer
	require.NoError(t, EncodeCustomers(&buf, in))
	assert.Contains(t, buf.String(), `"Smith, Alice"`)

	got, err := DecodeCustomers(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Smith, Alice", got[0].Name)
}

func TestDecodeFreeRowIgnoresPayment(t *testing.T) {
	data := "header\n" +
		"3,Carol,carol@z.io,FREE,2024-05-01,false,CARD\n" +
		"4,Dan,dan@z.io,FREE,2024-05-01,false\n"
	got, err := DecodeCustomers(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.False(t, c.Payment.IsPresent(), "customer %d", c.ID)
	}
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	data := "header\n\n1,Alice,alice@x.com,GOLD,2024-02-15,false,PAYPAL\n\n"
	got, err := DecodeCustomers(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Payment.Is(payment.PayPal))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		err  error
	}{
		{"bad tier", "1,A,a@b.c,PLATINUM,2024-01-01,false,CARD", tier.ErrUnknown},
		{"bad date", "1,A,a@b.c,GOLD,2024-13-01,false,CARD", types.ErrInvalidDate},
		{"bad method", "1,A,a@b.c,GOLD,2024-01-01,false,CHEQUE", payment.ErrUnknown},
		{"paid without method", "1,A,a@b.c,GOLD,2024-01-01,false", customer.ErrPaymentRequired},
		{"paid with null method", "1,A,a@b.c,GOLD,2024-01-01,false,null", payment.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCustomers(strings.NewReader("header\n" + tt.row + "\n"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, row := range []string{"x,A,a@b.c,FREE,2024-01-01,false", "1,A,a@b.c", "1,A,a@b.c,FREE,2024-01-01,maybe"} {
		_, err := DecodeCustomers(strings.NewReader("header\n" + row + "\n"))
		assert.Error(t, err, row)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.csv"))
	_, err := s.LoadCustomers(context.Background())
	assert.ErrorIs(t, err, ledgerstore.ErrNoData)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultDataFile)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	got, err := New(path).LoadCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteProjection(t *testing.T) {
	dir := t.TempDir()
	projPath := filepath.Join(dir, "out", "names.csv")
	s := New(filepath.Join(dir, DefaultDataFile), WithProjectionPath(projPath))
	require.NoError(t, s.Migrate(context.Background()))

	rows := []customer.Projection{{Name: "Alice Smith", Tier: tier.Premium}, {Name: "Bob", Tier: tier.Free}}
	require.NoError(t, s.WriteProjection(context.Background(), rows))

	data, err := os.ReadFile(projPath)
	require.NoError(t, err)
	assert.Equal(t, "Username,SubscriptionType\nAlice Smith,PREMIUM\nBob,FREE\n", string(data))
}

func TestDefaultProjectionPath(t *testing.T) {
	s := New(filepath.Join("var", "data", DefaultDataFile))
	assert.Equal(t, filepath.Join("var", "data", DefaultProjectionFile), s.ProjectionPath())
}

func TestQuotaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), DefaultDataFile))

	_, err := s.LoadQuota(ctx)
	require.ErrorIs(t, err, ledgerstore.ErrNoData)

	in := quota.State{
		LastReset: types.MustParseDate("2024-03-05"),
		Usage:     map[tier.Tier]int{tier.Premium: 2, tier.Gold: 1},
	}
	require.NoError(t, s.SaveQuota(ctx, in))

	data, err := os.ReadFile(s.QuotaPath())
	require.NoError(t, err)
	assert.Equal(t, "tier,used,lastReset\nFREE,0,2024-03-05\nPREMIUM,2,2024-03-05\nGOLD,1,2024-03-05\n", string(data))

	got, err := s.LoadQuota(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.LastReset, got.LastReset)
	assert.Equal(t, map[tier.Tier]int{tier.Free: 0, tier.Premium: 2, tier.Gold: 1}, got.Usage)
}

func TestLoadQuotaMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultQuotaFile)
	require.NoError(t, os.WriteFile(path, []byte("tier,used,lastReset\nGOLD,lots,2024-03-05\n"), 0o600))

	_, err := New(filepath.Join(filepath.Dir(path), DefaultDataFile)).LoadQuota(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledgerstore.ErrNoData)
}
