// Package textfile implements the ledger's primary store: one delimited
// text file holding every customer, plus a second file holding the derived
// name/tier projection. A third small file keeps the monthly quota window.
// Files are rewritten in full on every save.
//
// Records are written with RFC 4180 quoting, so names or emails containing a
// comma survive a round-trip. Files written without quotes parse the same.
package textfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Default file names, matching the files produced by earlier releases.
const (
	DefaultDataFile       = "customers.csv"
	DefaultProjectionFile = "subscriptions_and_usernames.csv"
	DefaultQuotaFile      = "quota.csv"
)

var (
	customerHeader   = []string{"id", "name", "email", "tier", "renewalDate", "canceled", "paymentMethod"}
	projectionHeader = []string{"Username", "SubscriptionType"}
	quotaHeader      = []string{"tier", "used", "lastReset"}
)

const customerFields = 7

// Store reads and writes the customer and projection files.
type Store struct {
	dataPath       string
	projectionPath string
	quotaPath      string
}

// Option configures a Store.
type Option func(*Store)

// WithProjectionPath overrides where the projection file is written.
// By default it sits next to the data file.
func WithProjectionPath(path string) Option {
	return func(s *Store) { s.projectionPath = path }
}

// WithQuotaPath overrides where the quota window is kept.
func WithQuotaPath(path string) Option {
	return func(s *Store) { s.quotaPath = path }
}

// New creates a store backed by the file at dataPath. The projection and
// quota files sit next to it unless overridden.
func New(dataPath string, opts ...Option) *Store {
	dir := filepath.Dir(dataPath)
	s := &Store{
		dataPath:       dataPath,
		projectionPath: filepath.Join(dir, DefaultProjectionFile),
		quotaPath:      filepath.Join(dir, DefaultQuotaFile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DataPath returns the customer file location.
func (s *Store) DataPath() string { return s.dataPath }

// ProjectionPath returns the projection file location.
func (s *Store) ProjectionPath() string { return s.projectionPath }

// QuotaPath returns the quota file location.
func (s *Store) QuotaPath() string { return s.quotaPath }

// Migrate makes sure the directories of the store files exist.
func (s *Store) Migrate(_ context.Context) error {
	for _, p := range []string{s.dataPath, s.projectionPath, s.quotaPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("subledger/textfile: create directory for %s: %w", p, err)
		}
	}
	return nil
}

// Ping checks that the data file's directory is reachable.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.dataPath)); err != nil {
		return fmt.Errorf("subledger/textfile: %w", err)
	}
	return nil
}

// Close is a no-op; files are opened per call.
func (s *Store) Close() error { return nil }

// ==================== Customers ====================

// LoadCustomers parses the data file. The first line is a header and is
// skipped. A missing file yields store.ErrNoData.
func (s *Store) LoadCustomers(_ context.Context) ([]*customer.Customer, error) {
	f, err := os.Open(s.dataPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ledgerstore.ErrNoData, s.dataPath)
		}
		return nil, fmt.Errorf("subledger/textfile: open %s: %w", s.dataPath, err)
	}
	defer f.Close()

	return DecodeCustomers(f)
}

// ReplaceCustomers overwrites the data file with customers in order.
func (s *Store) ReplaceCustomers(_ context.Context, customers []*customer.Customer) error {
	return s.writeFile(s.dataPath, func(w io.Writer) error {
		return EncodeCustomers(w, customers)
	})
}

// ==================== Projection ====================

// WriteProjection overwrites the projection file.
func (s *Store) WriteProjection(_ context.Context, rows []customer.Projection) error {
	return s.writeFile(s.projectionPath, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(projectionHeader); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{r.Name, r.Tier.String()}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ==================== Quota ====================

// LoadQuota reads the quota window. Each record holds one tier's count and
// the window start. A missing or empty file yields store.ErrNoData.
func (s *Store) LoadQuota(_ context.Context) (quota.State, error) {
	f, err := os.Open(s.quotaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return quota.State{}, fmt.Errorf("%w: %s", ledgerstore.ErrNoData, s.quotaPath)
		}
		return quota.State{}, fmt.Errorf("subledger/textfile: open %s: %w", s.quotaPath, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(quotaHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return quota.State{}, fmt.Errorf("subledger/textfile: read %s: %w", s.quotaPath, err)
	}
	if len(records) < 2 {
		return quota.State{}, fmt.Errorf("%w: %s", ledgerstore.ErrNoData, s.quotaPath)
	}

	st := quota.State{Usage: make(map[tier.Tier]int, len(records)-1)}
	for i, rec := range records[1:] {
		t, err := tier.Parse(rec[0])
		if err != nil {
			return quota.State{}, fmt.Errorf("subledger/textfile: %s line %d: %w", s.quotaPath, i+2, err)
		}
		used, err := strconv.Atoi(rec[1])
		if err != nil {
			return quota.State{}, fmt.Errorf("subledger/textfile: %s line %d: used %q: %w", s.quotaPath, i+2, rec[1], err)
		}
		reset, err := types.ParseDate(rec[2])
		if err != nil {
			return quota.State{}, fmt.Errorf("subledger/textfile: %s line %d: %w", s.quotaPath, i+2, err)
		}
		st.Usage[t] = used
		st.LastReset = reset
	}
	return st, nil
}

// SaveQuota overwrites the quota file with one record per tier.
func (s *Store) SaveQuota(_ context.Context, q quota.State) error {
	return s.writeFile(s.quotaPath, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(quotaHeader); err != nil {
			return err
		}
		for _, t := range tier.All() {
			if err := cw.Write([]string{t.String(), strconv.Itoa(q.Usage[t]), q.LastReset.String()}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *Store) writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("subledger/textfile: create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		_ = f.Close() //nolint:errcheck // encode error takes precedence
		return fmt.Errorf("subledger/textfile: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("subledger/textfile: close %s: %w", path, err)
	}
	return nil
}

// ==================== Codec ====================

// EncodeCustomers writes the header and one record per customer.
func EncodeCustomers(w io.Writer, customers []*customer.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(customerHeader); err != nil {
		return err
	}
	for _, c := range customers {
		if err := cw.Write(encodeRecord(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCustomers reads what EncodeCustomers writes. The first line is
// always treated as a header.
func DecodeCustomers(r io.Reader) ([]*customer.Customer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*customer.Customer{}, nil
		}
		return nil, fmt.Errorf("subledger/textfile: read header: %w", err)
	}

	out := make([]*customer.Customer, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("subledger/textfile: %w", err)
		}
		line, _ := cr.FieldPos(0)
		c, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("subledger/textfile: line %d: %w", line, err)
		}
		out = append(out, c)
	}
}

func encodeRecord(c *customer.Customer) []string {
	return []string{
		strconv.Itoa(int(c.ID)),
		c.Name,
		c.Email,
		c.Tier.String(),
		c.RenewalDate.String(),
		strconv.FormatBool(c.Canceled),
		c.Payment.String(),
	}
}

// decodeRecord parses one record. For FREE rows the payment column is
// ignored (and may be missing); paid rows require a known method.
func decodeRecord(rec []string) (*customer.Customer, error) {
	if len(rec) < customerFields-1 {
		return nil, fmt.Errorf("expected %d fields, got %d", customerFields, len(rec))
	}

	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return nil, fmt.Errorf("id %q: %w", rec[0], err)
	}
	t, err := tier.Parse(rec[3])
	if err != nil {
		return nil, err
	}
	renewal, err := types.ParseDate(rec[4])
	if err != nil {
		return nil, err
	}
	canceled, err := strconv.ParseBool(rec[5])
	if err != nil {
		return nil, fmt.Errorf("canceled %q: %w", rec[5], err)
	}

	pm := payment.None()
	if !t.IsFree() {
		if len(rec) < customerFields {
			return nil, fmt.Errorf("customer %d: %w", id, customer.ErrPaymentRequired)
		}
		m, err := payment.ParseMethod(rec[6])
		if err != nil {
			return nil, fmt.Errorf("customer %d: %w", id, err)
		}
		pm = payment.Some(m)
	}

	return &customer.Customer{
		ID:          customer.ID(id),
		Name:        rec[1],
		Email:       rec[2],
		Tier:        t,
		RenewalDate: renewal,
		Canceled:    canceled,
		Payment:     pm,
	}, nil
}
