// Package guard enforces the engine's coarse spending policy before any
// transaction is composed.
package guard

import (
	"github.com/shopspring/decimal"
)

// Result is the outcome of a spending check.
type Result struct {
	// Allowed is false when the amount is above the hard per-transaction
	// ceiling.
	Allowed bool

	// RequiresConfirmation is advisory: the amount is above the
	// confirmation threshold and the caller's UI must obtain explicit
	// user confirmation before signing.
	RequiresConfirmation bool
}

// Guard applies two independent thresholds denominated in a reference
// currency: a hard maximum and a lower confirmation threshold. It is
// stateless; both checks are pure.
type Guard struct {
	maxAmount        decimal.Decimal
	confirmThreshold decimal.Decimal
	reference        string

	// rates holds approximate static conversion rates into the reference
	// currency, keyed by currency symbol. The imprecision is intentional:
	// exact pricing is the route optimizer's job, this only gates a
	// coarse safety limit.
	rates map[string]decimal.Decimal
}

// New creates a spending guard.
func New(maxAmount, confirmThreshold decimal.Decimal, reference string, rates map[string]decimal.Decimal) *Guard {
	return &Guard{
		maxAmount:        maxAmount,
		confirmThreshold: confirmThreshold,
		reference:        reference,
		rates:            rates,
	}
}

// Check evaluates an amount in the given currency against both thresholds.
// Boundary semantics: an amount equal to the ceiling is allowed and one
// equal to the confirmation threshold is not flagged; only strictly greater
// amounts trip either check.
func (g *Guard) Check(amount decimal.Decimal, currency string) Result {
	converted := g.toReference(amount, currency)

	if converted.GreaterThan(g.maxAmount) {
		return Result{Allowed: false}
	}
	return Result{
		Allowed:              true,
		RequiresConfirmation: converted.GreaterThan(g.confirmThreshold),
	}
}

// Reference returns the reference currency symbol.
func (g *Guard) Reference() string {
	return g.reference
}

// Rate returns the static conversion rate into the reference currency for a
// local currency, and whether one is configured. The reference currency
// itself converts at 1.
func (g *Guard) Rate(currency string) (decimal.Decimal, bool) {
	if currency == g.reference {
		return decimal.NewFromInt(1), true
	}
	rate, ok := g.rates[currency]
	return rate, ok
}

// toReference converts an amount into the reference currency using the
// static rate table. Currencies without a configured rate are treated at
// parity, which keeps the check conservative for the stable assets the
// engine moves.
func (g *Guard) toReference(amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == g.reference {
		return amount
	}
	if rate, ok := g.rates[currency]; ok {
		return amount.Mul(rate)
	}
	return amount
}
