package audithook

// Action constants for audit events.
const (
	// Customer actions
	ActionCustomerEnrolled = "customer.enrolled"
	ActionCustomerUpdated  = "customer.updated"
	ActionCustomerRemoved  = "customer.removed"

	// Subscription actions
	ActionSubscriptionCanceled   = "subscription.canceled"
	ActionSubscriptionRenewed    = "subscription.renewed"
	ActionSubscriptionUpgraded   = "subscription.upgraded"
	ActionSubscriptionDowngraded = "subscription.downgraded"

	// Quota actions
	ActionQuotaExceeded = "quota.exceeded"
	ActionQuotaReset    = "quota.reset"

	// Transfer actions
	ActionTableImported = "table.imported"
	ActionTableExported = "table.exported"
)

// Resource constants for audit events.
const (
	ResourceCustomer     = "customer"
	ResourceSubscription = "subscription"
	ResourceQuota        = "quota"
	ResourceTable        = "table"
)

// Category constants for audit events.
const (
	CategoryCustomer     = "customer"
	CategorySubscription = "subscription"
	CategoryAccess       = "access"
	CategoryIntegration  = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
