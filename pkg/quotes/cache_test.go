package quotes

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paystream-hq/payflow/pkg/models"
)

func testQuote(from, to string) *models.Quote {
	return &models.Quote{
		From:      from,
		To:        to,
		AmountIn:  decimal.NewFromInt(100),
		AmountOut: decimal.NewFromInt(90),
		Rate:      decimal.RequireFromString("0.9"),
		Timestamp: time.Now(),
	}
}

func TestCacheHit(t *testing.T) {
	cache := NewQuoteCache(time.Minute)
	amount := decimal.NewFromInt(100)

	cache.Set("cUSD", "cEUR", amount, models.FixedInput, testQuote("cUSD", "cEUR"))

	got, ok := cache.Get("cUSD", "cEUR", amount, models.FixedInput)
	require.True(t, ok)
	assert.Equal(t, "cUSD", got.From)
	assert.Equal(t, "cEUR", got.To)
}

func TestCacheMissOnDifferentKey(t *testing.T) {
	cache := NewQuoteCache(time.Minute)
	amount := decimal.NewFromInt(100)

	cache.Set("cUSD", "cEUR", amount, models.FixedInput, testQuote("cUSD", "cEUR"))

	// Same pair, different amount.
	_, ok := cache.Get("cUSD", "cEUR", decimal.NewFromInt(200), models.FixedInput)
	assert.False(t, ok)

	// Same pair and amount, different direction.
	_, ok = cache.Get("cUSD", "cEUR", amount, models.FixedOutput)
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewQuoteCache(10 * time.Millisecond)
	amount := decimal.NewFromInt(100)

	cache.Set("cUSD", "cEUR", amount, models.FixedInput, testQuote("cUSD", "cEUR"))
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get("cUSD", "cEUR", amount, models.FixedInput)
	assert.False(t, ok)

	// Expired entries stay in the map until overwritten.
	assert.Equal(t, 1, cache.Len())
}

func TestCacheClear(t *testing.T) {
	cache := NewQuoteCache(time.Minute)
	cache.Set("cUSD", "cEUR", decimal.NewFromInt(1), models.FixedInput, testQuote("cUSD", "cEUR"))
	cache.Set("cUSD", "cREAL", decimal.NewFromInt(1), models.FixedInput, testQuote("cUSD", "cREAL"))
	require.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewQuoteCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(id))
			pair := fmt.Sprintf("c%d", id)
			cache.Set("cUSD", pair, amount, models.FixedInput, testQuote("cUSD", pair))
			cache.Get("cUSD", pair, amount, models.FixedInput)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, cache.Len())
}
