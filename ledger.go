package subledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/table"
	"github.com/xraph/subledger/table/xlsx"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Ledger owns the customer collection and mediates every change to it.
// Each mutating call persists the full collection before returning.
type Ledger struct {
	mu sync.Mutex

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	codec   table.Codec
	clock   func() time.Time

	skipMigrate bool

	customers []*customer.Customer
	nextID    customer.ID
	quota     *quota.Tracker

	// loadErr is the failure of the last Start. While set, nothing is
	// written back to the store.
	loadErr error
}

// New creates a new Ledger instance backed by s. Call Start to load the
// stored collection.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		codec:   xlsx.New(),
		clock:   time.Now,
		nextID:  1,
	}
	limits := tier.DefaultLimits()

	for _, opt := range opts {
		opt(l, limits)
	}

	l.quota = quota.NewTracker(limits, l.today())
	return l
}

// Option configures a Ledger instance. The limits map is the per-tier
// quota table being built for the new ledger.
type Option func(l *Ledger, limits map[tier.Tier]int)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger, _ map[tier.Tier]int) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger, _ map[tier.Tier]int) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock replaces the wall clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger, _ map[tier.Tier]int) { l.clock = now }
}

// WithLimits overrides monthly enrollment limits per tier. A negative
// limit disables the quota for that tier.
func WithLimits(overrides map[tier.Tier]int) Option {
	return func(_ *Ledger, limits map[tier.Tier]int) {
		for t, n := range overrides {
			limits[t] = n
		}
	}
}

// WithTableCodec sets the bulk import/export collaborator. The default
// reads and writes .xlsx workbooks; nil disables ExportTable and ImportTable.
func WithTableCodec(c table.Codec) Option {
	return func(l *Ledger, _ map[tier.Tier]int) { l.codec = c }
}

// WithSkipMigrate makes Start skip store.Migrate.
func WithSkipMigrate() Option {
	return func(l *Ledger, _ map[tier.Tier]int) { l.skipMigrate = true }
}

// Start migrates the store, loads the stored collection and restores the
// quota window. A store that holds no data yet starts an empty ledger. Any
// other load failure is returned and the ledger stays empty, so a file
// that could not be read is never overwritten by a later save.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	loaded, err := l.store.LoadCustomers(ctx)
	switch {
	case isNoData(err):
		l.logger.Info("no stored customers, starting empty")
		loaded = nil
	case err != nil:
		l.logger.Error("could not load customers", "error", err)
		l.loadErr = err
		return fmt.Errorf("subledger: load customers: %w", err)
	}

	window, err := l.store.LoadQuota(ctx)
	switch {
	case isNoData(err):
		l.logger.Debug("no stored quota window, starting a new one")
	case err != nil:
		l.logger.Error("could not load quota window", "error", err)
		l.loadErr = err
		return fmt.Errorf("subledger: load quota: %w", err)
	default:
		l.quota.Restore(window)
	}
	l.loadErr = nil

	l.customers = loaded
	l.nextID = nextIDAfter(loaded)
	if l.resetQuotaIfNeeded(ctx, l.today(), &events) {
		if err := l.saveQuotaLocked(ctx); err != nil {
			return err
		}
	}

	events.add(func() { l.plugins.EmitInit(ctx, l) })

	l.logger.Info("ledger started",
		"customers", len(l.customers),
		"next_id", l.nextID,
		"quota_window", l.quota.LastReset().String(),
	)
	return nil
}

// Stop notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Today returns the ledger's current date.
func (l *Ledger) Today() types.Date { return l.today() }

// ──────────────────────────────────────────────────
// Enrollment
// ──────────────────────────────────────────────────

// EnrollInput describes a new subscriber.
type EnrollInput struct {
	Name        string
	Email       string
	Tier        tier.Tier
	RenewalDate types.Date
	// Payment is required for paid tiers and ignored for FREE.
	Payment payment.Option
}

// Enroll validates in, checks the tier's monthly quota and appends a new
// customer with the next id. The collection, the name/tier projection and
// the quota window are then persisted. If persisting fails the customer
// stays enrolled in memory and is returned together with the error.
func (l *Ledger) Enroll(ctx context.Context, in EnrollInput) (*customer.Customer, error) {
	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.today()
	l.resetQuotaIfNeeded(ctx, today, &events)

	if err := l.checkEnrollment(in, today); err != nil {
		return nil, err
	}
	if in.Tier.IsFree() {
		in.Payment = payment.None()
	}

	if res := l.quota.Check(in.Tier); !res.Allowed {
		events.add(func() { l.plugins.EmitQuotaExceeded(ctx, res) })
		l.logger.Warn("enrollment refused by quota",
			"tier", in.Tier.String(),
			"used", res.Used,
			"limit", res.Limit,
		)
		return nil, fmt.Errorf("%w: %s limit of %d reached", ErrQuotaExceeded, in.Tier, res.Limit)
	}

	c := &customer.Customer{
		ID:          l.nextID,
		Name:        in.Name,
		Email:       in.Email,
		Tier:        in.Tier,
		RenewalDate: in.RenewalDate,
		Payment:     in.Payment,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	l.nextID++
	l.customers = append(l.customers, c)
	l.quota.Record(c.Tier)

	l.logger.Info("customer enrolled",
		"customer_id", int(c.ID),
		"tier", c.Tier.String(),
		"renewal_date", c.RenewalDate.String(),
	)

	snapshot := c.Clone()
	events.add(func() { l.plugins.EmitCustomerEnrolled(ctx, snapshot) })

	err := errors.Join(l.saveLocked(ctx, &events), l.saveProjectionLocked(ctx), l.saveQuotaLocked(ctx))
	return c.Clone(), err
}

func (l *Ledger) checkEnrollment(in EnrollInput, today types.Date) error {
	if !in.Tier.Valid() {
		return &ValidationError{Field: "tier", Message: fmt.Sprintf("%q", in.Tier), Err: ErrUnknownTier}
	}
	if !customer.ValidEmail(in.Email) {
		return &ValidationError{Field: "email", Message: in.Email, Err: ErrInvalidEmail}
	}
	if err := checkRenewal(in.RenewalDate, today); err != nil {
		return err
	}
	if !in.Tier.IsFree() && !in.Payment.IsPresent() {
		return &ValidationError{Field: "payment", Message: "required for tier " + in.Tier.String(), Err: ErrPaymentRequired}
	}
	return nil
}

func checkRenewal(d, today types.Date) error {
	if d.IsZero() {
		return &ValidationError{Field: "renewal_date", Err: customer.ErrMissingRenewal}
	}
	if !d.After(today) {
		return &ValidationError{
			Field:   "renewal_date",
			Message: d.String() + " is not after " + today.String(),
			Err:     ErrRenewalNotInFuture,
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Find returns a copy of the customer with the given id.
func (l *Ledger) Find(id customer.ID) (*customer.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, c, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// List returns copies of every customer in insertion order.
func (l *Ledger) List() []*customer.Customer {
	l.mu.Lock()
	defer l.mu.Unlock()

	return cloneAll(l.customers)
}

// Len returns the number of customers.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.customers)
}

// Quota returns the current window's usage of t.
func (l *Ledger) Quota(t tier.Tier) quota.Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.quota.Check(t)
}

// QuotaSnapshot returns the current window's usage of every tier.
func (l *Ledger) QuotaSnapshot() []quota.Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.quota.Snapshot()
}

// CancelCashPayment reports whether the customer's cash payment was
// canceled. Other payment methods are a no-op.
func (l *Ledger) CancelCashPayment(id customer.ID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, c, err := l.lookup(id)
	if err != nil {
		return false, err
	}
	return c.CancelCashPayment(), nil
}

// MarkPaid reports whether the customer's current period was marked paid.
// Free customers need no payment and report false.
func (l *Ledger) MarkPaid(id customer.ID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, c, err := l.lookup(id)
	if err != nil {
		return false, err
	}
	return c.MarkPaid(), nil
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Patch lists the fields to change on a customer. Nil fields are kept.
type Patch struct {
	Name        *string
	Email       *string
	Tier        *tier.Tier
	Payment     *payment.Option
	RenewalDate *types.Date
	Canceled    *bool
}

// Update applies p to the customer with the given id. Tier and payment
// changes keep the FREE/paid payment rule; moving to FREE drops the
// payment method. Nothing changes when validation fails.
func (l *Ledger) Update(ctx context.Context, id customer.ID, p Patch) (*customer.Customer, error) {
	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	i, current, err := l.lookup(id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Email != nil {
		if !customer.ValidEmail(*p.Email) {
			return nil, &ValidationError{Field: "email", Message: *p.Email, Err: ErrInvalidEmail}
		}
		next.Email = *p.Email
	}
	if p.RenewalDate != nil {
		if err := checkRenewal(*p.RenewalDate, l.today()); err != nil {
			return nil, err
		}
		next.RenewalDate = *p.RenewalDate
	}
	if p.Canceled != nil {
		next.Canceled = *p.Canceled
	}
	switch {
	case p.Tier != nil:
		pm := payment.None()
		if p.Payment != nil {
			pm = *p.Payment
		}
		if err := next.SetTier(*p.Tier, pm); err != nil {
			return nil, err
		}
	case p.Payment != nil:
		if err := next.SetPayment(*p.Payment); err != nil {
			return nil, err
		}
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	l.customers[i] = next
	l.logger.Info("customer updated", "customer_id", int(id))

	before, after := current.Clone(), next.Clone()
	events.add(func() { l.plugins.EmitCustomerUpdated(ctx, before, after) })

	err = l.saveLocked(ctx, &events)
	if before.Name != after.Name || before.Tier != after.Tier {
		err = errors.Join(err, l.saveProjectionLocked(ctx))
	}
	return next.Clone(), err
}

// Cancel marks the customer's subscription canceled and persists.
func (l *Ledger) Cancel(ctx context.Context, id customer.ID) (*customer.Customer, error) {
	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	_, c, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	if c.Canceled {
		return c.Clone(), nil
	}

	c.Canceled = true
	l.logger.Info("subscription canceled", "customer_id", int(id))

	snapshot := c.Clone()
	events.add(func() { l.plugins.EmitCustomerCanceled(ctx, snapshot) })

	return c.Clone(), l.saveLocked(ctx, &events)
}

// Renew advances the customer's renewal date by one tier period and
// persists. Free customers are left untouched and Renew reports false.
func (l *Ledger) Renew(ctx context.Context, id customer.ID) (*customer.Customer, bool, error) {
	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	_, c, err := l.lookup(id)
	if err != nil {
		return nil, false, err
	}

	previous := c.RenewalDate
	if !c.Renew() {
		return c.Clone(), false, nil
	}
	l.logger.Info("subscription renewed",
		"customer_id", int(id),
		"renewal_date", c.RenewalDate.String(),
	)

	snapshot := c.Clone()
	events.add(func() { l.plugins.EmitSubscriptionRenewed(ctx, snapshot, previous) })

	return c.Clone(), true, l.saveLocked(ctx, &events)
}

// Remove deletes the customer with the given id and persists. An unknown
// id is not an error: Remove reports false and the store is not touched.
func (l *Ledger) Remove(ctx context.Context, id customer.ID) (bool, error) {
	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	i, c, err := l.lookup(id)
	if err != nil {
		return false, nil
	}

	l.customers = append(l.customers[:i], l.customers[i+1:]...)
	l.logger.Info("customer removed", "customer_id", int(id))

	snapshot := c.Clone()
	events.add(func() { l.plugins.EmitCustomerRemoved(ctx, snapshot) })

	return true, l.saveLocked(ctx, &events)
}

// ──────────────────────────────────────────────────
// Persistence
// ──────────────────────────────────────────────────

// Save overwrites the primary store with the current collection.
func (l *Ledger) Save(ctx context.Context) error {
	var events notifier
	defer events.flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.saveLocked(ctx, &events)
}

// SaveProjection overwrites the name/tier projection.
func (l *Ledger) SaveProjection(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.saveProjectionLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context, events *notifier) error {
	if err := l.writable(); err != nil {
		return err
	}
	start := time.Now()
	if err := l.store.ReplaceCustomers(ctx, cloneAll(l.customers)); err != nil {
		l.logger.Error("failed to save customers", "error", err)
		return fmt.Errorf("subledger: save customers: %w", err)
	}

	count, elapsed := len(l.customers), time.Since(start)
	events.add(func() { l.plugins.EmitLedgerSaved(ctx, count, elapsed) })
	return nil
}

func (l *Ledger) saveQuotaLocked(ctx context.Context) error {
	if err := l.writable(); err != nil {
		return err
	}
	if err := l.store.SaveQuota(ctx, l.quota.State()); err != nil {
		l.logger.Error("failed to save quota window", "error", err)
		return fmt.Errorf("subledger: save quota: %w", err)
	}
	return nil
}

func (l *Ledger) saveProjectionLocked(ctx context.Context) error {
	if err := l.writable(); err != nil {
		return err
	}
	rows := make([]customer.Projection, 0, len(l.customers))
	for _, c := range l.customers {
		rows = append(rows, c.Projection())
	}
	if err := l.store.WriteProjection(ctx, rows); err != nil {
		l.logger.Error("failed to save projection", "error", err)
		return fmt.Errorf("subledger: save projection: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (l *Ledger) writable() error {
	if l.loadErr != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnreadable, l.loadErr)
	}
	return nil
}

func (l *Ledger) today() types.Date { return types.DateOf(l.clock()) }

func (l *Ledger) lookup(id customer.ID) (int, *customer.Customer, error) {
	for i, c := range l.customers {
		if c.ID == id {
			return i, c, nil
		}
	}
	return -1, nil, fmt.Errorf("%w: %d", ErrCustomerNotFound, id)
}

// resetQuotaIfNeeded reports whether the window was reset.
func (l *Ledger) resetQuotaIfNeeded(ctx context.Context, today types.Date, events *notifier) bool {
	previous := l.quota.LastReset()
	if !l.quota.ResetIfNeeded(today) {
		return false
	}
	l.logger.Info("monthly quota reset",
		"previous_reset", previous.String(),
		"reset_date", today.String(),
	)
	events.add(func() { l.plugins.EmitQuotaReset(ctx, previous, today) })
	return true
}

func isNoData(err error) bool {
	return errors.Is(err, store.ErrNoData) || errors.Is(err, fs.ErrNotExist)
}

func nextIDAfter(customers []*customer.Customer) customer.ID {
	next := customer.ID(1)
	for _, c := range customers {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	return next
}

func cloneAll(in []*customer.Customer) []*customer.Customer {
	out := make([]*customer.Customer, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}

// notifier queues plugin notifications so they run after the ledger lock
// is released.
type notifier []func()

func (n *notifier) add(fn func()) { *n = append(*n, fn) }

func (n *notifier) flush() {
	for _, fn := range *n {
		fn()
	}
}
