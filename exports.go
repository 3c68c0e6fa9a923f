package subledger

import (
	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/payment"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Re-export common types for convenience so callers rarely need the leaf
// packages.

// Customer is re-exported from the customer package.
type Customer = customer.Customer

// CustomerID is re-exported from the customer package.
type CustomerID = customer.ID

// Tier is re-exported from the tier package.
type Tier = tier.Tier

// PaymentMethod is re-exported from the payment package.
type PaymentMethod = payment.Method

// Date is re-exported from the types package.
type Date = types.Date

// Money is re-exported from the types package.
type Money = types.Money

// Re-export tiers and payment methods.
const (
	Free    = tier.Free
	Premium = tier.Premium
	Gold    = tier.Gold

	Card         = payment.Card
	Cash         = payment.Cash
	BankTransfer = payment.BankTransfer
	PayPal       = payment.PayPal
)

// Re-export constructors.
var (
	Some          = payment.Some
	None          = payment.None
	ParseDate     = types.ParseDate
	MustParseDate = types.MustParseDate
	USD           = types.USD
)
