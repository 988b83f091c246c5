package quotes

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paystream-hq/payflow/pkg/circuitbreaker"
	"github.com/paystream-hq/payflow/pkg/config"
	"github.com/paystream-hq/payflow/pkg/models"
)

// mockQuoter answers venue amount queries with fixed results and counts
// calls.
type mockQuoter struct {
	out   *big.Int
	in    *big.Int
	err   error
	calls int
}

func (m *mockQuoter) AmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []*big.Int{amountIn, m.out}, nil
}

func (m *mockQuoter) AmountsIn(_ context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []*big.Int{m.in, amountOut}, nil
}

func testTokens(t *testing.T) *config.Registry {
	tokens, err := config.NewRegistry(config.CeloMainnetID)
	require.NoError(t, err)
	return tokens
}

func atomic18(human string) *big.Int {
	return decimal.RequireFromString(human).Shift(18).BigInt()
}

func TestQuoteFixedInput(t *testing.T) {
	quoter := &mockQuoter{out: atomic18("90")}
	source := NewVenueSource(quoter, testTokens(t), time.Minute, nil, nil)

	quote, err := source.Quote(context.Background(), "cUSD", "cEUR", decimal.NewFromInt(100), models.FixedInput)
	require.NoError(t, err)

	assert.True(t, quote.AmountIn.Equal(decimal.NewFromInt(100)))
	assert.True(t, quote.AmountOut.Equal(decimal.NewFromInt(90)), "got %s", quote.AmountOut)
	assert.True(t, quote.Rate.Equal(decimal.RequireFromString("0.9")), "got %s", quote.Rate)
	assert.Equal(t, "swap-venue", quote.Provenance)
}

func TestQuoteFixedOutput(t *testing.T) {
	quoter := &mockQuoter{in: atomic18("20")}
	source := NewVenueSource(quoter, testTokens(t), time.Minute, nil, nil)

	quote, err := source.Quote(context.Background(), "cUSD", "cREAL", decimal.NewFromInt(100), models.FixedOutput)
	require.NoError(t, err)

	assert.True(t, quote.AmountOut.Equal(decimal.NewFromInt(100)))
	assert.True(t, quote.AmountIn.Equal(decimal.NewFromInt(20)), "got %s", quote.AmountIn)
	assert.True(t, quote.Rate.Equal(decimal.NewFromInt(5)), "got %s", quote.Rate)
}

func TestQuoteHandlesMixedDecimals(t *testing.T) {
	// 100 cUSD (18 decimals) into USDC (6 decimals): the venue answers in
	// each token's own atomic units.
	quoter := &mockQuoter{out: big.NewInt(99_500_000)} // 99.5 USDC
	source := NewVenueSource(quoter, testTokens(t), time.Minute, nil, nil)

	quote, err := source.Quote(context.Background(), "cUSD", "USDC", decimal.NewFromInt(100), models.FixedInput)
	require.NoError(t, err)
	assert.True(t, quote.AmountOut.Equal(decimal.RequireFromString("99.5")), "got %s", quote.AmountOut)
}

func TestQuoteCachesResult(t *testing.T) {
	quoter := &mockQuoter{out: atomic18("90")}
	source := NewVenueSource(quoter, testTokens(t), time.Minute, nil, nil)
	ctx := context.Background()

	_, err := source.Quote(ctx, "cUSD", "cEUR", decimal.NewFromInt(100), models.FixedInput)
	require.NoError(t, err)
	_, err = source.Quote(ctx, "cUSD", "cEUR", decimal.NewFromInt(100), models.FixedInput)
	require.NoError(t, err)

	assert.Equal(t, 1, quoter.calls)
}

func TestQuoteRejectsSamePair(t *testing.T) {
	source := NewVenueSource(&mockQuoter{}, testTokens(t), time.Minute, nil, nil)

	_, err := source.Quote(context.Background(), "cUSD", "cUSD", decimal.NewFromInt(100), models.FixedInput)
	assert.Error(t, err)
}

func TestQuoteRejectsNonPositiveAmount(t *testing.T) {
	source := NewVenueSource(&mockQuoter{}, testTokens(t), time.Minute, nil, nil)

	_, err := source.Quote(context.Background(), "cUSD", "cEUR", decimal.Zero, models.FixedInput)
	assert.Error(t, err)
}

func TestQuoteNoLiquidityDoesNotTripBreaker(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(true, 1, time.Minute, time.Minute, nil)
	quoter := &mockQuoter{err: models.ErrNoLiquidity}
	source := NewVenueSource(quoter, testTokens(t), time.Minute, breaker, nil)

	_, err := source.Quote(context.Background(), "cUSD", "cEUR", decimal.NewFromInt(100), models.FixedInput)
	assert.ErrorIs(t, err, models.ErrNoLiquidity)
	assert.False(t, breaker.IsOpen())
}

func TestQuoteVenueErrorTripsBreaker(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(true, 1, time.Minute, time.Minute, nil)
	quoter := &mockQuoter{err: errors.New("rpc connection refused")}
	source := NewVenueSource(quoter, testTokens(t), time.Minute, breaker, nil)
	ctx := context.Background()

	_, err := source.Quote(ctx, "cUSD", "cEUR", decimal.NewFromInt(100), models.FixedInput)
	require.Error(t, err)
	require.True(t, breaker.IsOpen())

	// With the circuit open the venue is not called again.
	before := quoter.calls
	_, err = source.Quote(ctx, "cUSD", "cEUR", decimal.NewFromInt(200), models.FixedInput)
	require.Error(t, err)
	assert.Equal(t, before, quoter.calls)
}

func TestQuoteUnknownCurrency(t *testing.T) {
	source := NewVenueSource(&mockQuoter{}, testTokens(t), time.Minute, nil, nil)

	_, err := source.Quote(context.Background(), "cUSD", "cGBP", decimal.NewFromInt(100), models.FixedInput)
	assert.Error(t, err)
}
