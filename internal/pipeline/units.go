package pipeline

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToRawAmount converts a human amount into base units. Amounts with more fractional digits
// than the token supports are rejected rather than rounded.
func ToRawAmount(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, Errorf(KindInvalidRequest, "amount must not be negative: %s", amount.String())
	}
	shifted := amount.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, Errorf(KindInvalidRequest, "amount %s has more than %d decimals", amount.String(), decimals)
	}
	return shifted.BigInt(), nil
}

// FromRawAmount renders base units as a human amount.
func FromRawAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
