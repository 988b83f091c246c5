// Package quotes adapts the swap venue's price discovery into the exchange
// quotes the rest of the engine consumes. It holds no business logic beyond
// caching and unit conversion.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/paystream-hq/payflow/pkg/circuitbreaker"
	"github.com/paystream-hq/payflow/pkg/config"
	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/metrics"
	"github.com/paystream-hq/payflow/pkg/models"
)

// Source produces exchange quotes for a currency pair.
type Source interface {
	Quote(ctx context.Context, from, to string, amount decimal.Decimal, dir models.QuoteDirection) (*models.Quote, error)
}

// Quoter is the venue capability the source needs from the chain client.
type Quoter interface {
	AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	AmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error)
}

// VenueSource quotes against a single on-chain swap venue.
type VenueSource struct {
	quoter     Quoter
	tokens     *config.Registry
	cache      *QuoteCache
	breaker    *circuitbreaker.CircuitBreaker
	provenance string
	logger     logger.Logger
}

var _ Source = (*VenueSource)(nil)

// NewVenueSource creates a quote source backed by the swap venue.
func NewVenueSource(quoter Quoter, tokens *config.Registry, ttl time.Duration, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *VenueSource {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &VenueSource{
		quoter:     quoter,
		tokens:     tokens,
		cache:      NewQuoteCache(ttl),
		breaker:    breaker,
		provenance: "swap-venue",
		logger:     log,
	}
}

// Quote returns an exchange quote for the pair. With FixedInput the input
// amount is given and the output computed; with FixedOutput the desired
// output is given and the required input computed.
func (s *VenueSource) Quote(ctx context.Context, from, to string, amount decimal.Decimal, dir models.QuoteDirection) (*models.Quote, error) {
	if from == to {
		return nil, fmt.Errorf("cannot quote %s against itself", from)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("quote amount must be positive, got %s", amount)
	}

	if cached, ok := s.cache.Get(from, to, amount, dir); ok {
		metrics.QuoteCacheHits.Inc()
		return cached, nil
	}
	metrics.QuoteCacheMisses.Inc()

	if s.breaker != nil && s.breaker.IsEnabled() && s.breaker.IsOpen() {
		return nil, fmt.Errorf("quote venue circuit open for %s/%s", from, to)
	}

	fromToken, ok := s.tokens.Lookup(from)
	if !ok {
		return nil, fmt.Errorf("unknown currency: %s", from)
	}
	toToken, ok := s.tokens.Lookup(to)
	if !ok {
		return nil, fmt.Errorf("unknown currency: %s", to)
	}

	path := []common.Address{fromToken.Address, toToken.Address}

	var amountIn, amountOut decimal.Decimal
	switch dir {
	case models.FixedInput:
		amounts, err := s.quoter.AmountsOut(ctx, fromToken.ToAtomic(amount), path)
		if err != nil {
			return nil, s.venueError(from, to, err)
		}
		amountIn = amount
		amountOut = toToken.FromAtomic(amounts[len(amounts)-1])
	case models.FixedOutput:
		amounts, err := s.quoter.AmountsIn(ctx, toToken.ToAtomic(amount), path)
		if err != nil {
			return nil, s.venueError(from, to, err)
		}
		amountIn = fromToken.FromAtomic(amounts[0])
		amountOut = amount
	default:
		return nil, fmt.Errorf("unknown quote direction: %s", dir)
	}

	if amountIn.IsZero() || amountOut.IsZero() {
		return nil, fmt.Errorf("%w: venue returned zero amount for %s/%s", models.ErrNoLiquidity, from, to)
	}

	quote := &models.Quote{
		From:       from,
		To:         to,
		AmountIn:   amountIn,
		AmountOut:  amountOut,
		Rate:       amountOut.Div(amountIn),
		Provenance: s.provenance,
		Timestamp:  time.Now(),
	}
	s.cache.Set(from, to, amount, dir, quote)

	s.logger.DebugWithComponent(logger.Quote, "Quoted %s %s -> %s %s (rate %s)",
		amountIn, from, amountOut, to, quote.Rate)
	return quote, nil
}

// venueError classifies a venue failure. Missing liquidity is a normal
// answer and must not feed the circuit breaker.
func (s *VenueSource) venueError(from, to string, err error) error {
	if errors.Is(err, models.ErrNoLiquidity) {
		return fmt.Errorf("%w: %s/%s", models.ErrNoLiquidity, from, to)
	}
	if s.breaker != nil {
		s.breaker.RecordFailure()
	}
	return fmt.Errorf("quote venue error for %s/%s: %v", from, to, err)
}
