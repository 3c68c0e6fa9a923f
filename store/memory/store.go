// Package memory provides an in-process store, used by tests and as a
// scratch backend for the CLI.
package memory

import (
	"context"
	"sync"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/tier"
)

// compile-time interface checks
var (
	_ ledgerstore.Store         = (*Store)(nil)
	_ customer.Store            = (*Store)(nil)
	_ customer.ProjectionWriter = (*Store)(nil)
	_ quota.Store               = (*Store)(nil)
)

// Store keeps deep copies of the last saved collection and projection.
type Store struct {
	mu sync.RWMutex

	customers  []*customer.Customer
	projection []customer.Projection
	saved      bool
	closed     bool

	quota *quota.State

	// Write counters, handy for asserting persistence side effects.
	customerWrites   int
	projectionWrites int

	writeErr error
}

func New() *Store {
	return &Store{}
}

// Seed stores customers as if a previous session had saved them.
func (s *Store) Seed(customers ...*customer.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers = cloneAll(customers)
	s.saved = true
}

// FailWrites makes every subsequent write return err. Pass nil to recover.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeErr = err
}

// CustomerWrites returns how many times ReplaceCustomers succeeded.
func (s *Store) CustomerWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.customerWrites
}

// ProjectionWrites returns how many times WriteProjection succeeded.
func (s *Store) ProjectionWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.projectionWrites
}

// Projection returns the last written projection.
func (s *Store) Projection() []customer.Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]customer.Projection, len(s.projection))
	copy(out, s.projection)
	return out
}

func (s *Store) LoadCustomers(_ context.Context) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, subledger.ErrStoreClosed
	}
	if !s.saved {
		return nil, ledgerstore.ErrNoData
	}
	return cloneAll(s.customers), nil
}

func (s *Store) ReplaceCustomers(_ context.Context, customers []*customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subledger.ErrStoreClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.customers = cloneAll(customers)
	s.saved = true
	s.customerWrites++
	return nil
}

func (s *Store) WriteProjection(_ context.Context, rows []customer.Projection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subledger.ErrStoreClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.projection = make([]customer.Projection, len(rows))
	copy(s.projection, rows)
	s.projectionWrites++
	return nil
}

func (s *Store) LoadQuota(_ context.Context) (quota.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return quota.State{}, subledger.ErrStoreClosed
	}
	if s.quota == nil {
		return quota.State{}, ledgerstore.ErrNoData
	}
	return cloneQuota(*s.quota), nil
}

func (s *Store) SaveQuota(_ context.Context, q quota.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subledger.ErrStoreClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	saved := cloneQuota(q)
	s.quota = &saved
	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return subledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func cloneAll(in []*customer.Customer) []*customer.Customer {
	out := make([]*customer.Customer, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}

func cloneQuota(q quota.State) quota.State {
	out := quota.State{LastReset: q.LastReset, Usage: make(map[tier.Tier]int, len(q.Usage))}
	for t, n := range q.Usage {
		out.Usage[t] = n
	}
	return out
}
