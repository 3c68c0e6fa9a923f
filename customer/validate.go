package customer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/subledger/tier"
)

// Validation sentinels. Wrapped in *ValidationError by Validate.
var (
	ErrInvalidID         = errors.New("customer: id must be positive")
	ErrInvalidEmail      = errors.New("customer: email must contain '@' and '.'")
	ErrMissingRenewal    = errors.New("customer: renewal date is required")
	ErrPaymentRequired   = errors.New("customer: payment method required for paid tiers")
	ErrPaymentNotAllowed = errors.New("customer: free tier cannot carry a payment method")
)

// ValidationError represents a validation failure on one field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %v (%s)", e.Field, e.Err, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidEmail reports whether s looks like an email address. The check is
// deliberately loose: it only requires an '@' and a '.'.
func ValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		return ValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("known_tier", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		return tier.Tier(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(paymentInvariant, Customer{})
	return v
}

func paymentInvariant(sl validator.StructLevel) {
	c, ok := sl.Current().Interface().(Customer)
	if !ok || !c.Tier.Valid() {
		return
	}
	switch {
	case c.Tier.IsFree() && c.Payment.IsPresent():
		sl.ReportError(c.Payment.String(), "Payment", "Payment", "free_without_payment", "")
	case !c.Tier.IsFree() && !c.Payment.IsPresent():
		sl.ReportError(c.Payment.String(), "Payment", "Payment", "payment_required", "")
	}
}

// Validate checks every field invariant of c, including the tier/payment
// rule. The first failure is returned as a *ValidationError.
func (c *Customer) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "gt":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%d", c.ID), Err: ErrInvalidID}
	case "contact_email":
		return &ValidationError{Field: field, Message: c.Email, Err: ErrInvalidEmail}
	case "known_tier":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%q", c.Tier), Err: tier.ErrUnknown}
	case "required":
		return &ValidationError{Field: field, Err: ErrMissingRenewal}
	case "payment_required":
		return &ValidationError{Field: field, Message: "tier " + c.Tier.String(), Err: ErrPaymentRequired}
	case "free_without_payment":
		return &ValidationError{Field: field, Message: c.Payment.String(), Err: ErrPaymentNotAllowed}
	default:
		return &ValidationError{Field: field, Message: fe.Error(), Err: err}
	}
}
