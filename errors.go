package subledger

import (
	"errors"
	"fmt"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Customer errors
	ErrCustomerNotFound   = errors.New("subledger: customer not found")
	ErrRenewalNotInFuture = errors.New("subledger: renewal date must be after today")
	ErrInvalidEmail       = customer.ErrInvalidEmail
	ErrPaymentRequired    = customer.ErrPaymentRequired
	ErrPaymentNotAllowed  = customer.ErrPaymentNotAllowed

	// Value errors, owned by the leaf packages
	ErrInvalidDate          = types.ErrInvalidDate
	ErrUnknownTier          = tier.ErrUnknown
	ErrUnknownPaymentMethod = payment.ErrUnknown

	// Quota errors
	ErrQuotaExceeded = errors.New("subledger: monthly quota exceeded")

	// Transfer errors
	ErrInvalidTable = errors.New("subledger: invalid table")
	ErrNoTableCodec = errors.New("subledger: no table codec configured")

	// Store errors
	ErrStoreClosed       = errors.New("subledger: store is closed")
	ErrDuplicateCustomer = errors.New("subledger: duplicate customer id")
	ErrStoreUnreadable   = errors.New("subledger: stored data could not be loaded")
)

// ValidationError represents a validation failure with details.
type ValidationError = customer.ValidationError

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "subledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("subledger: %d errors occurred (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap lets errors.Is and errors.As inspect every collected error.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

// IsQuotaError returns true if the error is related to quota/limits.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsValidationError returns true if the input was rejected before any
// state changed.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrRenewalNotInFuture) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrUnknownTier) ||
		errors.Is(err, ErrUnknownPaymentMethod)
}
