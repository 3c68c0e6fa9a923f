// Package observability provides a metrics extension for the ledger that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnCustomerEnrolled    = (*MetricsExtension)(nil)
	_ plugin.OnCustomerUpdated     = (*MetricsExtension)(nil)
	_ plugin.OnCustomerRemoved     = (*MetricsExtension)(nil)
	_ plugin.OnCustomerCanceled    = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded       = (*MetricsExtension)(nil)
	_ plugin.OnQuotaReset          = (*MetricsExtension)(nil)
	_ plugin.OnLedgerSaved         = (*MetricsExtension)(nil)
	_ plugin.OnTableImported       = (*MetricsExtension)(nil)
	_ plugin.OnTableExported       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger lifecycle metrics.
// Register it as a ledger plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Customer metrics
	CustomerEnrolled Counter
	CustomerUpdated  Counter
	CustomerRemoved  Counter

	// Subscription metrics
	SubscriptionUpgraded   Counter
	SubscriptionDowngraded Counter
	SubscriptionCanceled   Counter
	SubscriptionRenewed    Counter

	// Quota metrics
	QuotaExceeded Counter
	QuotaResets   Counter

	// Persistence metrics
	LedgerSaves       Counter
	LedgerSaveSize    Histogram
	LedgerSaveLatency Histogram

	// Transfer metrics
	TableImports Counter
	TableExports Counter
	ImportedRows Counter
	ExportedRows Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CustomerEnrolled: factory.Counter("subledger.customer.enrolled"),
		CustomerUpdated:  factory.Counter("subledger.customer.updated"),
		CustomerRemoved:  factory.Counter("subledger.customer.removed"),

		SubscriptionUpgraded:   factory.Counter("subledger.subscription.upgraded"),
		SubscriptionDowngraded: factory.Counter("subledger.subscription.downgraded"),
		SubscriptionCanceled:   factory.Counter("subledger.subscription.canceled"),
		SubscriptionRenewed:    factory.Counter("subledger.subscription.renewed"),

		QuotaExceeded: factory.Counter("subledger.quota.exceeded"),
		QuotaResets:   factory.Counter("subledger.quota.resets"),

		LedgerSaves:       factory.Counter("subledger.store.saves"),
		LedgerSaveSize:    factory.Histogram("subledger.store.save.customers"),
		LedgerSaveLatency: factory.Histogram("subledger.store.save.latency_ms"),

		TableImports: factory.Counter("subledger.table.imports"),
		TableExports: factory.Counter("subledger.table.exports"),
		ImportedRows: factory.Counter("subledger.table.imported_rows"),
		ExportedRows: factory.Counter("subledger.table.exported_rows"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Customer lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerEnrolled implements plugin.OnCustomerEnrolled.
func (m *MetricsExtension) OnCustomerEnrolled(_ context.Context, _ *customer.Customer) error {
	m.CustomerEnrolled.Inc()
	return nil
}

// OnCustomerUpdated implements plugin.OnCustomerUpdated.
func (m *MetricsExtension) OnCustomerUpdated(_ context.Context, before, after *customer.Customer) error {
	m.CustomerUpdated.Inc()
	switch {
	case after.Tier.Price().Amount > before.Tier.Price().Amount:
		m.SubscriptionUpgraded.Inc()
	case after.Tier.Price().Amount < before.Tier.Price().Amount:
		m.SubscriptionDowngraded.Inc()
	}
	return nil
}

// OnCustomerRemoved implements plugin.OnCustomerRemoved.
func (m *MetricsExtension) OnCustomerRemoved(_ context.Context, _ *customer.Customer) error {
	m.CustomerRemoved.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerCanceled implements plugin.OnCustomerCanceled.
func (m *MetricsExtension) OnCustomerCanceled(_ context.Context, _ *customer.Customer) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, _ *customer.Customer, _ types.Date) error {
	m.SubscriptionRenewed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Quota hooks
// ──────────────────────────────────────────────────

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ quota.Result) error {
	m.QuotaExceeded.Inc()
	return nil
}

// OnQuotaReset implements plugin.OnQuotaReset.
func (m *MetricsExtension) OnQuotaReset(_ context.Context, _, _ types.Date) error {
	m.QuotaResets.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnLedgerSaved implements plugin.OnLedgerSaved.
func (m *MetricsExtension) OnLedgerSaved(_ context.Context, count int, elapsed time.Duration) error {
	m.LedgerSaves.Inc()
	m.LedgerSaveSize.Observe(float64(count))
	m.LedgerSaveLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnTableImported implements plugin.OnTableImported.
func (m *MetricsExtension) OnTableImported(_ context.Context, _ string, count int) error {
	m.TableImports.Inc()
	m.ImportedRows.Add(float64(count))
	return nil
}

// OnTableExported implements plugin.OnTableExported.
func (m *MetricsExtension) OnTableExported(_ context.Context, _ string, count int) error {
	m.TableExports.Inc()
	m.ExportedRows.Add(float64(count))
	return nil
}
