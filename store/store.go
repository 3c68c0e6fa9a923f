// Package store defines the persistence contract of the subscription ledger.
// Backends live in sub-packages: textfile (the default delimited file),
// memory, sqlite, postgres and mongo.
package store

import (
	"context"
	"errors"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
)

// ErrNoData is returned by LoadCustomers and LoadQuota when nothing has
// been stored yet (for example the data file does not exist). The ledger
// treats it as an empty collection or a fresh quota window.
var ErrNoData = errors.New("store: no data")

// Store is the unified storage interface for the ledger.
// Instead of embedding customer.Store, customer.ProjectionWriter and
// quota.Store, we explicitly declare all methods.
type Store interface {
	// Customer methods
	LoadCustomers(ctx context.Context) ([]*customer.Customer, error)
	ReplaceCustomers(ctx context.Context, customers []*customer.Customer) error

	// Projection methods
	WriteProjection(ctx context.Context, rows []customer.Projection) error

	// Quota methods
	LoadQuota(ctx context.Context) (quota.State, error)
	SaveQuota(ctx context.Context, s quota.State) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
