// Package plugin provides an extensible plugin system for the subscription
// ledger. Plugins implement any subset of the hook interfaces below and are
// called after the corresponding ledger operation has succeeded.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *subledger.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Customer lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerEnrolled is called after a customer is enrolled.
type OnCustomerEnrolled interface {
	Plugin
	OnCustomerEnrolled(ctx context.Context, c *customer.Customer) error
}

// OnCustomerUpdated is called after a customer record is patched.
type OnCustomerUpdated interface {
	Plugin
	OnCustomerUpdated(ctx context.Context, before, after *customer.Customer) error
}

// OnCustomerRemoved is called after a customer is removed.
type OnCustomerRemoved interface {
	Plugin
	OnCustomerRemoved(ctx context.Context, c *customer.Customer) error
}

// OnCustomerCanceled is called after a subscription is canceled.
type OnCustomerCanceled interface {
	Plugin
	OnCustomerCanceled(ctx context.Context, c *customer.Customer) error
}

// OnSubscriptionRenewed is called after a renewal date is advanced.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, c *customer.Customer, previous types.Date) error
}

// ──────────────────────────────────────────────────
// Quota hooks
// ──────────────────────────────────────────────────

// OnQuotaExceeded is called when an enrollment is refused by its tier limit.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, result quota.Result) error
}

// OnQuotaReset is called when the monthly counters are cleared.
type OnQuotaReset interface {
	Plugin
	OnQuotaReset(ctx context.Context, previous, current types.Date) error
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnLedgerSaved is called after the full collection is written to the store.
type OnLedgerSaved interface {
	Plugin
	OnLedgerSaved(ctx context.Context, count int, elapsed time.Duration) error
}

// OnTableImported is called after a bulk import replaced the collection.
type OnTableImported interface {
	Plugin
	OnTableImported(ctx context.Context, path string, count int) error
}

// OnTableExported is called after the collection was exported.
type OnTableExported interface {
	Plugin
	OnTableExported(ctx context.Context, path string, count int) error
}
