package config

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToAtomic converts a human-denominated amount into the token's atomic
// units, truncating below the token's precision.
func (t Token) ToAtomic(amount decimal.Decimal) *big.Int {
	return amount.Shift(t.Decimals).Truncate(0).BigInt()
}

// FromAtomic converts atomic units back into a human-denominated amount.
func (t Token) FromAtomic(amount *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(amount, 0).Shift(-t.Decimals)
}
