// Package audithook bridges ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so callers can send events anywhere:
// a log, a JSON-lines file, or an external audit service.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/quota"
	"github.com/xraph/subledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnCustomerEnrolled    = (*Extension)(nil)
	_ plugin.OnCustomerUpdated     = (*Extension)(nil)
	_ plugin.OnCustomerRemoved     = (*Extension)(nil)
	_ plugin.OnCustomerCanceled    = (*Extension)(nil)
	_ plugin.OnSubscriptionRenewed = (*Extension)(nil)
	_ plugin.OnQuotaExceeded       = (*Extension)(nil)
	_ plugin.OnQuotaReset          = (*Extension)(nil)
	_ plugin.OnTableImported       = (*Extension)(nil)
	_ plugin.OnTableExported       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	ID         id.ID          `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Customer lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerEnrolled implements plugin.OnCustomerEnrolled.
func (e *Extension) OnCustomerEnrolled(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerEnrolled, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, customerID(c), CategoryCustomer, nil,
		"tier", c.Tier.String(),
		"renewal_date", c.RenewalDate.String(),
		"payment_method", c.Payment.String(),
	)
}

// OnCustomerUpdated implements plugin.OnCustomerUpdated. A tier change is
// recorded as an upgrade or downgrade by price.
func (e *Extension) OnCustomerUpdated(ctx context.Context, before, after *customer.Customer) error {
	if before.Tier != after.Tier {
		action := ActionSubscriptionUpgraded
		if after.Tier.Price().Amount < before.Tier.Price().Amount {
			action = ActionSubscriptionDowngraded
		}
		if err := e.record(ctx, action, SeverityInfo, OutcomeSuccess,
			ResourceSubscription, customerID(after), CategorySubscription, nil,
			"from_tier", before.Tier.String(),
			"to_tier", after.Tier.String(),
		); err != nil {
			return err
		}
	}
	return e.record(ctx, ActionCustomerUpdated, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, customerID(after), CategoryCustomer, nil,
		"changed", changedFields(before, after),
	)
}

// OnCustomerRemoved implements plugin.OnCustomerRemoved.
func (e *Extension) OnCustomerRemoved(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerRemoved, SeverityWarning, OutcomeSuccess,
		ResourceCustomer, customerID(c), CategoryCustomer, nil,
		"tier", c.Tier.String(),
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerCanceled implements plugin.OnCustomerCanceled.
func (e *Extension) OnCustomerCanceled(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, customerID(c), CategorySubscription, nil,
		"tier", c.Tier.String(),
	)
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (e *Extension) OnSubscriptionRenewed(ctx context.Context, c *customer.Customer, previous types.Date) error {
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, customerID(c), CategorySubscription, nil,
		"previous_renewal", previous.String(),
		"renewal_date", c.RenewalDate.String(),
	)
}

// ──────────────────────────────────────────────────
// Quota hooks
// ──────────────────────────────────────────────────

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (e *Extension) OnQuotaExceeded(ctx context.Context, res quota.Result) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceQuota, res.Tier.String(), CategoryAccess, nil,
		"used", res.Used,
		"limit", res.Limit,
	)
}

// OnQuotaReset implements plugin.OnQuotaReset.
func (e *Extension) OnQuotaReset(ctx context.Context, previous, current types.Date) error {
	return e.record(ctx, ActionQuotaReset, SeverityInfo, OutcomeSuccess,
		ResourceQuota, "", CategoryAccess, nil,
		"previous_reset", previous.String(),
		"reset_date", current.String(),
	)
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTableImported implements plugin.OnTableImported.
func (e *Extension) OnTableImported(ctx context.Context, path string, count int) error {
	return e.record(ctx, ActionTableImported, SeverityWarning, OutcomeSuccess,
		ResourceTable, path, CategoryIntegration, nil,
		"count", count,
	)
}

// OnTableExported implements plugin.OnTableExported.
func (e *Extension) OnTableExported(ctx context.Context, path string, count int) error {
	return e.record(ctx, ActionTableExported, SeverityInfo, OutcomeSuccess,
		ResourceTable, path, CategoryIntegration, nil,
		"count", count,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and never propagated to the ledger.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Timestamp:  e.now().UTC(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func customerID(c *customer.Customer) string {
	return strconv.Itoa(int(c.ID))
}

func changedFields(before, after *customer.Customer) []string {
	var changed []string
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if before.Email != after.Email {
		changed = append(changed, "email")
	}
	if before.Tier != after.Tier {
		changed = append(changed, "tier")
	}
	if before.RenewalDate != after.RenewalDate {
		changed = append(changed, "renewal_date")
	}
	if before.Canceled != after.Canceled {
		changed = append(changed, "canceled")
	}
	if before.Payment != after.Payment {
		changed = append(changed, "payment_method")
	}
	return changed
}
