package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/types"
)

// DefaultTimeout bounds how long a single hook may run.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onCustomerEnrolled    []OnCustomerEnrolled
	onCustomerUpdated     []OnCustomerUpdated
	onCustomerRemoved     []OnCustomerRemoved
	onCustomerCanceled    []OnCustomerCanceled
	onSubscriptionRenewed []OnSubscriptionRenewed
	onQuotaExceeded       []OnQuotaExceeded
	onQuotaReset          []OnQuotaReset
	onLedgerSaved         []OnLedgerSaved
	onTableImported       []OnTableImported
	onTableExported       []OnTableExported
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnCustomerEnrolled); ok {
		r.onCustomerEnrolled = append(r.onCustomerEnrolled, v)
		hooks = append(hooks, "OnCustomerEnrolled")
	}
	if v, ok := p.(OnCustomerUpdated); ok {
		r.onCustomerUpdated = append(r.onCustomerUpdated, v)
		hooks = append(hooks, "OnCustomerUpdated")
	}
	if v, ok := p.(OnCustomerRemoved); ok {
		r.onCustomerRemoved = append(r.onCustomerRemoved, v)
		hooks = append(hooks, "OnCustomerRemoved")
	}
	if v, ok := p.(OnCustomerCanceled); ok {
		r.onCustomerCanceled = append(r.onCustomerCanceled, v)
		hooks = append(hooks, "OnCustomerCanceled")
	}
	if v, ok := p.(OnSubscriptionRenewed); ok {
		r.onSubscriptionRenewed = append(r.onSubscriptionRenewed, v)
		hooks = append(hooks, "OnSubscriptionRenewed")
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
		hooks = append(hooks, "OnQuotaExceeded")
	}
	if v, ok := p.(OnQuotaReset); ok {
		r.onQuotaReset = append(r.onQuotaReset, v)
		hooks = append(hooks, "OnQuotaReset")
	}
	if v, ok := p.(OnLedgerSaved); ok {
		r.onLedgerSaved = append(r.onLedgerSaved, v)
		hooks = append(hooks, "OnLedgerSaved")
	}
	if v, ok := p.(OnTableImported); ok {
		r.onTableImported = append(r.onTableImported, v)
		hooks = append(hooks, "OnTableImported")
	}
	if v, ok := p.(OnTableExported); ok {
		r.onTableExported = append(r.onTableExported, v)
		hooks = append(hooks, "OnTableExported")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitCustomerEnrolled emits a customer enrolled event.
func (r *Registry) EmitCustomerEnrolled(ctx context.Context, c *customer.Customer) {
	emit(ctx, r, "OnCustomerEnrolled", snapshot(r, &r.onCustomerEnrolled), func(p OnCustomerEnrolled) error {
		return p.OnCustomerEnrolled(ctx, c)
	})
}

// EmitCustomerUpdated emits a customer updated event.
func (r *Registry) EmitCustomerUpdated(ctx context.Context, before, after *customer.Customer) {
	emit(ctx, r, "OnCustomerUpdated", snapshot(r, &r.onCustomerUpdated), func(p OnCustomerUpdated) error {
		return p.OnCustomerUpdated(ctx, before, after)
	})
}

// EmitCustomerRemoved emits a customer removed event.
func (r *Registry) EmitCustomerRemoved(ctx context.Context, c *customer.Customer) {
	emit(ctx, r, "OnCustomerRemoved", snapshot(r, &r.onCustomerRemoved), func(p OnCustomerRemoved) error {
		return p.OnCustomerRemoved(ctx, c)
	})
}

// EmitCustomerCanceled emits a subscription canceled event.
func (r *Registry) EmitCustomerCanceled(ctx context.Context, c *customer.Customer) {
	emit(ctx, r, "OnCustomerCanceled", snapshot(r, &r.onCustomerCanceled), func(p OnCustomerCanceled) error {
		return p.OnCustomerCanceled(ctx, c)
	})
}

// EmitSubscriptionRenewed emits a renewal event.
func (r *Registry) EmitSubscriptionRenewed(ctx context.Context, c *customer.Customer, previous types.Date) {
	emit(ctx, r, "OnSubscriptionRenewed", snapshot(r, &r.onSubscriptionRenewed), func(p OnSubscriptionRenewed) error {
		return p.OnSubscriptionRenewed(ctx, c, previous)
	})
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, result quota.Result) {
	emit(ctx, r, "OnQuotaExceeded", snapshot(r, &r.onQuotaExceeded), func(p OnQuotaExceeded) error {
		return p.OnQuotaExceeded(ctx, result)
	})
}

// EmitQuotaReset emits a monthly reset event.
func (r *Registry) EmitQuotaReset(ctx context.Context, previous, current types.Date) {
	emit(ctx, r, "OnQuotaReset", snapshot(r, &r.onQuotaReset), func(p OnQuotaReset) error {
		return p.OnQuotaReset(ctx, previous, current)
	})
}

// EmitLedgerSaved emits a save event.
func (r *Registry) EmitLedgerSaved(ctx context.Context, count int, elapsed time.Duration) {
	emit(ctx, r, "OnLedgerSaved", snapshot(r, &r.onLedgerSaved), func(p OnLedgerSaved) error {
		return p.OnLedgerSaved(ctx, count, elapsed)
	})
}

// EmitTableImported emits a bulk import event.
func (r *Registry) EmitTableImported(ctx context.Context, path string, count int) {
	emit(ctx, r, "OnTableImported", snapshot(r, &r.onTableImported), func(p OnTableImported) error {
		return p.OnTableImported(ctx, path, count)
	})
}

// EmitTableExported emits a bulk export event.
func (r *Registry) EmitTableExported(ctx context.Context, path string, count int) {
	emit(ctx, r, "OnTableExported", snapshot(r, &r.onTableExported), func(p OnTableExported) error {
		return p.OnTableExported(ctx, path, count)
	})
}

// snapshot reads a hook list under the read lock.
func snapshot[T Plugin](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// emit calls fn for each plugin. Failures are logged, never returned.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
