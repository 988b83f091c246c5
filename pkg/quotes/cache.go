package quotes

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paystream-hq/payflow/pkg/models"
)

// QuoteCache manages cached quotes to avoid duplicate venue calls. Quotes
// are time-bound: an entry older than the TTL must not be reused to build a
// transaction, so Get treats it as absent.
type QuoteCache struct {
	mu       sync.RWMutex
	cache    map[string]*cachedQuote
	cacheTTL time.Duration
}

// cachedQuote represents a cached quote with its insertion timestamp.
type cachedQuote struct {
	quote     *models.Quote
	timestamp time.Time
}

// NewQuoteCache creates a new quote cache.
func NewQuoteCache(cacheTTL time.Duration) *QuoteCache {
	return &QuoteCache{
		cache:    make(map[string]*cachedQuote),
		cacheTTL: cacheTTL,
	}
}

func cacheKey(from, to string, amount decimal.Decimal, dir models.QuoteDirection) string {
	return fmt.Sprintf("%s/%s/%s/%s", from, to, amount.String(), dir)
}

// Get retrieves a cached quote if it's still valid, otherwise returns nil.
func (c *QuoteCache) Get(from, to string, amount decimal.Decimal, dir models.QuoteDirection) (*models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[cacheKey(from, to, amount, dir)]
	if !exists {
		return nil, false
	}

	// Check if cache is still valid
	if time.Since(cached.timestamp) > c.cacheTTL {
		return nil, false
	}

	return cached.quote, true
}

// Set stores a quote in the cache with the current timestamp.
func (c *QuoteCache) Set(from, to string, amount decimal.Decimal, dir models.QuoteDirection, quote *models.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[cacheKey(from, to, amount, dir)] = &cachedQuote{
		quote:     quote,
		timestamp: time.Now(),
	}
}

// Clear removes all cached entries.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cachedQuote)
}

// Len returns the number of cached entries, valid or expired.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
