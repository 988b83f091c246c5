// Package router evaluates direct and two-hop swap routes between currency
// pairs and selects the most favorable one.
package router

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/metrics"
	"github.com/paystream-hq/payflow/pkg/models"
	"github.com/paystream-hq/payflow/pkg/quotes"
)

// Optimizer finds the best route between two currencies using the direct
// pair and every viable two-hop path through the configured intermediate
// set. It tolerates partial venue outages: a failing path never aborts the
// evaluation of other paths.
type Optimizer struct {
	source        quotes.Source
	intermediates []string
	native        string
	logger        logger.Logger
}

// New creates a route optimizer. The native gas asset is excluded from the
// intermediate set.
func New(source quotes.Source, intermediates []string, native string, log logger.Logger) *Optimizer {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Optimizer{
		source:        source,
		intermediates: intermediates,
		native:        native,
		logger:        log,
	}
}

// FindBestRoute evaluates all routes for a fixed input amount and returns
// the one with the highest realized output. Ties break toward fewer hops,
// then toward enumeration order (direct before multi-hop), which keeps the
// result deterministic.
func (o *Optimizer) FindBestRoute(ctx context.Context, from, to string, amountIn decimal.Decimal) (*models.RouteComparison, error) {
	if from == to {
		return nil, fmt.Errorf("route endpoints must differ, got %s on both sides", from)
	}

	var routes []models.RouteQuote

	// Direct quote first; missing liquidity is not fatal.
	if direct, err := o.source.Quote(ctx, from, to, amountIn, models.FixedInput); err != nil {
		o.logger.DebugWithComponent(logger.Route, "Direct route %s->%s unavailable: %v", from, to, err)
		metrics.RouteFailures.WithLabelValues("direct").Inc()
	} else {
		routes = append(routes, models.RouteQuote{
			Path:       []string{from, to},
			AmountIn:   direct.AmountIn,
			AmountOut:  direct.AmountOut,
			Provenance: direct.Provenance,
		})
	}

	for _, mid := range o.intermediates {
		if mid == from || mid == to || mid == o.native {
			continue
		}

		first, err := o.source.Quote(ctx, from, mid, amountIn, models.FixedInput)
		if err != nil {
			o.logger.DebugWithComponent(logger.Route, "Route %s->%s->%s failed on first hop: %v", from, mid, to, err)
			metrics.RouteFailures.WithLabelValues("multihop").Inc()
			continue
		}
		second, err := o.source.Quote(ctx, mid, to, first.AmountOut, models.FixedInput)
		if err != nil {
			o.logger.DebugWithComponent(logger.Route, "Route %s->%s->%s failed on second hop: %v", from, mid, to, err)
			metrics.RouteFailures.WithLabelValues("multihop").Inc()
			continue
		}

		routes = append(routes, models.RouteQuote{
			Path:       []string{from, mid, to},
			AmountIn:   amountIn,
			AmountOut:  second.AmountOut,
			Provenance: second.Provenance,
		})
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: %s->%s", models.ErrNoRouteAvailable, from, to)
	}
	metrics.RoutesEvaluated.Observe(float64(len(routes)))

	best := routes[0]
	worst := routes[0]
	for _, r := range routes[1:] {
		if r.AmountOut.GreaterThan(best.AmountOut) ||
			(r.AmountOut.Equal(best.AmountOut) && r.Hops() < best.Hops()) {
			best = r
		}
		if r.AmountOut.LessThan(worst.AmountOut) {
			worst = r
		}
	}

	o.logger.InfoWithComponent(logger.Route, "Best route %v yields %s %s (%d routes evaluated)",
		best.Path, best.AmountOut, to, len(routes))

	return &models.RouteComparison{
		Best:           best,
		All:            routes,
		SavingsVsWorst: best.AmountOut.Sub(worst.AmountOut),
	}, nil
}

// FindCheapestRoute evaluates all routes for a fixed output amount and
// returns the one requiring the least input. Same tolerance and tie-break
// rules as FindBestRoute. Used when the recipient's receipt amount must be
// exact and the payer's debit is what varies.
func (o *Optimizer) FindCheapestRoute(ctx context.Context, from, to string, amountOut decimal.Decimal) (*models.RouteComparison, error) {
	if from == to {
		return nil, fmt.Errorf("route endpoints must differ, got %s on both sides", from)
	}

	var routes []models.RouteQuote

	if direct, err := o.source.Quote(ctx, from, to, amountOut, models.FixedOutput); err != nil {
		o.logger.DebugWithComponent(logger.Route, "Direct route %s->%s unavailable: %v", from, to, err)
		metrics.RouteFailures.WithLabelValues("direct").Inc()
	} else {
		routes = append(routes, models.RouteQuote{
			Path:       []string{from, to},
			AmountIn:   direct.AmountIn,
			AmountOut:  direct.AmountOut,
			Provenance: direct.Provenance,
		})
	}

	for _, mid := range o.intermediates {
		if mid == from || mid == to || mid == o.native {
			continue
		}

		// Work backwards: how much of the intermediate does the final hop
		// need, then how much source does that cost.
		second, err := o.source.Quote(ctx, mid, to, amountOut, models.FixedOutput)
		if err != nil {
			o.logger.DebugWithComponent(logger.Route, "Route %s->%s->%s failed on final hop: %v", from, mid, to, err)
			metrics.RouteFailures.WithLabelValues("multihop").Inc()
			continue
		}
		first, err := o.source.Quote(ctx, from, mid, second.AmountIn, models.FixedOutput)
		if err != nil {
			o.logger.DebugWithComponent(logger.Route, "Route %s->%s->%s failed on first hop: %v", from, mid, to, err)
			metrics.RouteFailures.WithLabelValues("multihop").Inc()
			continue
		}

		routes = append(routes, models.RouteQuote{
			Path:       []string{from, mid, to},
			AmountIn:   first.AmountIn,
			AmountOut:  amountOut,
			Provenance: first.Provenance,
		})
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: %s->%s", models.ErrNoRouteAvailable, from, to)
	}
	metrics.RoutesEvaluated.Observe(float64(len(routes)))

	best := routes[0]
	worst := routes[0]
	for _, r := range routes[1:] {
		if r.AmountIn.LessThan(best.AmountIn) ||
			(r.AmountIn.Equal(best.AmountIn) && r.Hops() < best.Hops()) {
			best = r
		}
		if r.AmountIn.GreaterThan(worst.AmountIn) {
			worst = r
		}
	}

	o.logger.InfoWithComponent(logger.Route, "Cheapest route %v costs %s %s (%d routes evaluated)",
		best.Path, best.AmountIn, from, len(routes))

	return &models.RouteComparison{
		Best:           best,
		All:            routes,
		SavingsVsWorst: worst.AmountIn.Sub(best.AmountIn),
	}, nil
}
