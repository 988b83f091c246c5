package guard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestGuard() *Guard {
	rates := map[string]decimal.Decimal{
		"KES": decimal.RequireFromString("0.0077"),
		"NGN": decimal.RequireFromString("0.00065"),
	}
	return New(
		decimal.NewFromInt(5000),
		decimal.NewFromInt(500),
		"cUSD",
		rates,
	)
}

func TestCheckBoundaries(t *testing.T) {
	g := newTestGuard()

	tests := []struct {
		name            string
		amount          string
		currency        string
		allowed         bool
		requiresConfirm bool
	}{
		{
			name:     "small amount passes quietly",
			amount:   "100",
			currency: "cUSD",
			allowed:  true,
		},
		{
			name:     "amount equal to threshold is not flagged",
			amount:   "500",
			currency: "cUSD",
			allowed:  true,
		},
		{
			name:            "one cent above threshold is flagged",
			amount:          "500.01",
			currency:        "cUSD",
			allowed:         true,
			requiresConfirm: true,
		},
		{
			name:            "amount equal to ceiling is allowed",
			amount:          "5000",
			currency:        "cUSD",
			allowed:         true,
			requiresConfirm: true,
		},
		{
			name:     "amount above ceiling is rejected",
			amount:   "5000.01",
			currency: "cUSD",
			allowed:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Check(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.allowed, result.Allowed)
			assert.Equal(t, tt.requiresConfirm, result.RequiresConfirmation)
		})
	}
}

func TestCheckConvertsLocalCurrency(t *testing.T) {
	g := newTestGuard()

	// 100,000 KES at 0.0077 is 770 reference units: allowed but above the
	// confirmation threshold.
	result := g.Check(decimal.NewFromInt(100000), "KES")
	assert.True(t, result.Allowed)
	assert.True(t, result.RequiresConfirmation)

	// 1,000,000 KES is 7,700 reference units, over the ceiling.
	result = g.Check(decimal.NewFromInt(1000000), "KES")
	assert.False(t, result.Allowed)
}

func TestCheckUnknownCurrencyTreatedAtParity(t *testing.T) {
	g := newTestGuard()

	result := g.Check(decimal.NewFromInt(6000), "cJPY")
	assert.False(t, result.Allowed)

	result = g.Check(decimal.NewFromInt(400), "cJPY")
	assert.True(t, result.Allowed)
	assert.False(t, result.RequiresConfirmation)
}

func TestRateLookup(t *testing.T) {
	g := newTestGuard()

	assert.Equal(t, "cUSD", g.Reference())

	rate, ok := g.Rate("cUSD")
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	rate, ok = g.Rate("KES")
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.0077")))

	_, ok = g.Rate("XXX")
	assert.False(t, ok)
}
