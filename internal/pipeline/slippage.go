package pipeline

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"liquidityBuilder/internal/model"
)

var (
	wad          = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	maxSlippage  = decimal.NewFromInt(100)
	percentToWad = int32(16)
)

// Slippage is a tolerance in percent ("0.5" means half a percent).
type Slippage struct {
	percent decimal.Decimal
}

// ParseSlippage reads a percentage from a decimal string. Negative values and values of 100 or
// more are rejected; an empty string yields fallback.
func ParseSlippage(raw string, fallback decimal.Decimal) (Slippage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewSlippage(fallback)
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return Slippage{}, Errorf(KindInvalidRequest, "invalid slippage %q", raw)
	}
	return NewSlippage(pct)
}

// NewSlippage validates pct.
func NewSlippage(pct decimal.Decimal) (Slippage, error) {
	if pct.IsNegative() || pct.GreaterThanOrEqual(maxSlippage) {
		return Slippage{}, Errorf(KindInvalidRequest, "slippage must be in [0, 100): %s", pct.String())
	}
	return Slippage{percent: pct}, nil
}

// MustSlippage is NewSlippage for constants.
func MustSlippage(pct string) Slippage {
	s, err := NewSlippage(decimal.RequireFromString(pct))
	if err != nil {
		panic(err)
	}
	return s
}

func (s Slippage) String() string { return s.percent.String() }

// scaled is the tolerance as a fraction of 1e18, truncated.
func (s Slippage) scaled() *big.Int {
	return s.percent.Shift(percentToWad).BigInt()
}

// MinOut lowers amount by the tolerance, rounding down.
func (s Slippage) MinOut(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	factor := new(big.Int).Sub(wad, s.scaled())
	out := new(big.Int).Mul(amount, factor)
	return out.Quo(out, wad)
}

// MaxIn raises amount by the tolerance. It rounds down like MinOut, so a tolerance too small
// to move amount by one unit leaves it unchanged.
func (s Slippage) MaxIn(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	factor := new(big.Int).Add(wad, s.scaled())
	out := new(big.Int).Mul(amount, factor)
	return out.Quo(out, wad)
}

// Bound applies the tolerance to every amount in the unfavorable direction for kind.
func (s Slippage) Bound(kind model.BoundKind, amounts []model.TokenAmount) model.Bound {
	bound := model.Bound{Kind: kind, Amounts: make([]model.TokenAmount, 0, len(amounts))}
	for _, amount := range amounts {
		var raw *big.Int
		switch kind {
		case model.BoundMinOut:
			raw = s.MinOut(amount.Amount())
		case model.BoundMaxIn:
			raw = s.MaxIn(amount.Amount())
		default:
			raw = new(big.Int).Set(amount.Amount())
		}
		bound.Amounts = append(bound.Amounts, model.NewTokenAmount(amount.Address, amount.Decimals, raw))
	}
	return bound
}
