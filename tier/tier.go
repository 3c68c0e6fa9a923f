// Package tier defines the closed set of subscription tiers and the fixed
// price and renewal period attached to each.
package tier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/subledger/types"
)

// ErrUnknown is returned when a string does not name a tier.
var ErrUnknown = errors.New("tier: unknown subscription tier")

// Tier is a subscription plan tag. The zero value is not a valid tier.
type Tier string

const (
	Free    Tier = "FREE"
	Premium Tier = "PREMIUM"
	Gold    Tier = "GOLD"
)

// Terms are the immutable commercial terms of a tier.
type Terms struct {
	Price          types.Money `json:"price"`
	DurationMonths int         `json:"duration_months"`
	MonthlyLimit   int         `json:"monthly_limit"` // default enrollment quota per calendar month
}

var (
	order = []Tier{Free, Premium, Gold}

	terms = map[Tier]Terms{
		Free:    {Price: types.USD(0), DurationMonths: 0, MonthlyLimit: 100},
		Premium: {Price: types.USD(999), DurationMonths: 1, MonthlyLimit: 500},
		Gold:    {Price: types.USD(1999), DurationMonths: 1, MonthlyLimit: 1000},
	}
)

// All returns every tier in declaration order.
func All() []Tier {
	out := make([]Tier, len(order))
	copy(out, order)
	return out
}

// Parse resolves a tier tag, ignoring case and surrounding space.
func Parse(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return t, nil
}

// DefaultLimits returns a fresh copy of the default monthly enrollment limits.
func DefaultLimits() map[Tier]int {
	limits := make(map[Tier]int, len(terms))
	for t, tt := range terms {
		limits[t] = tt.MonthlyLimit
	}
	return limits
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := terms[t]
	return ok
}

// Terms returns the commercial terms of t. Unknown tiers yield zero Terms.
func (t Tier) Terms() Terms { return terms[t] }

// Price returns the per-period price of t.
func (t Tier) Price() types.Money { return terms[t].Price }

// DurationMonths returns the renewal period length in months.
func (t Tier) DurationMonths() int { return terms[t].DurationMonths }

// IsFree reports whether t is the free tier.
func (t Tier) IsFree() bool { return t == Free }

func (t Tier) String() string { return string(t) }
