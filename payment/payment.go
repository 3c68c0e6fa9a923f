// Package payment defines payment methods and the optional payment value
// carried by a customer.
package payment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned when a string does not name a payment method.
var ErrUnknown = errors.New("payment: unknown payment method")

// AbsentLiteral is how an absent payment method is written to text stores.
const AbsentLiteral = "null"

// Method is a way of paying for a non-free subscription.
type Method string

const (
	Card         Method = "CARD"
	Cash         Method = "CASH"
	BankTransfer Method = "BANK_TRANSFER"
	PayPal       Method = "PAYPAL"
)

var methods = []Method{Card, Cash, BankTransfer, PayPal}

// Methods returns every payment method in declaration order.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

// ParseMethod resolves a method tag, ignoring case and surrounding space.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, s)
}

func (m Method) String() string { return string(m) }

// Option is either a present Method or absent. The zero value is absent.
type Option struct {
	method  Method
	present bool
}

// Some returns a present Option holding m.
func Some(m Method) Option { return Option{method: m, present: true} }

// None returns the absent Option.
func None() Option { return Option{} }

// ParseOption parses a stored payment column. Empty and the absent literal
// yield None.
func ParseOption(s string) (Option, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.EqualFold(trimmed, AbsentLiteral) {
		return None(), nil
	}
	m, err := ParseMethod(trimmed)
	if err != nil {
		return None(), err
	}
	return Some(m), nil
}

// Get returns the held method and whether it is present.
func (o Option) Get() (Method, bool) { return o.method, o.present }

// IsPresent reports whether a method is held.
func (o Option) IsPresent() bool { return o.present }

// Is reports whether o holds exactly m.
func (o Option) Is(m Method) bool { return o.present && o.method == m }

// String returns the method tag, or AbsentLiteral when absent.
func (o Option) String() string {
	if !o.present {
		return AbsentLiteral
	}
	return string(o.method)
}
