package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteDirection selects which side of a quote is fixed.
type QuoteDirection string

const (
	// FixedInput: the input amount is given, the output is computed.
	FixedInput QuoteDirection = "fixed_input"
	// FixedOutput: the desired output amount is given, the required input
	// is computed. Used when the recipient's receipt amount must be exact.
	FixedOutput QuoteDirection = "fixed_output"
)

// Quote is a single-pair exchange quote. Quotes are advisory and
// time-bound: one older than the configured TTL must not be used to build a
// transaction without refresh.
type Quote struct {
	From       string
	To         string
	AmountIn   decimal.Decimal
	AmountOut  decimal.Decimal
	Rate       decimal.Decimal // AmountOut / AmountIn
	Provenance string
	Timestamp  time.Time
}

// RouteQuote is a priced path of 2 or 3 currencies. Path[0] is the source,
// Path[len-1] the destination; any intermediate comes from the configured
// intermediate set and differs from both endpoints.
type RouteQuote struct {
	Path       []string
	AmountIn   decimal.Decimal
	AmountOut  decimal.Decimal
	Provenance string
}

// Hops returns the number of swap hops in the route.
func (r RouteQuote) Hops() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// RouteComparison is the outcome of evaluating all viable routes for a pair.
type RouteComparison struct {
	Best RouteQuote
	All  []RouteQuote

	// SavingsVsWorst is the realized-output difference between the best
	// and worst surviving route, zero when only one route exists.
	SavingsVsWorst decimal.Decimal
}
