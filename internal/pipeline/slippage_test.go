package pipeline

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"liquidityBuilder/internal/model"
)

func TestSlippageZeroIsExact(t *testing.T) {
	s := MustSlippage("0")
	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.Equal(t, amount, s.MinOut(amount))
	require.Equal(t, amount, s.MaxIn(amount))
}

func TestSlippageIsMonotonic(t *testing.T) {
	amount, _ := new(big.Int).SetString("987654321987654321", 10)
	steps := []string{"0", "0.001", "0.01", "0.5", "1", "3", "10", "50", "99.99"}

	prevMin := new(big.Int).Set(amount)
	prevMax := new(big.Int).Set(amount)
	for _, step := range steps {
		s := MustSlippage(step)
		lo, hi := s.MinOut(amount), s.MaxIn(amount)
		if lo.Cmp(prevMin) > 0 {
			t.Fatalf("slippage %s tightened min out: %s > %s", step, lo, prevMin)
		}
		if hi.Cmp(prevMax) < 0 {
			t.Fatalf("slippage %s tightened max in: %s < %s", step, hi, prevMax)
		}
		prevMin, prevMax = lo, hi
	}
}

func TestSlippageValues(t *testing.T) {
	s := MustSlippage("3")
	require.Equal(t, big.NewInt(970), s.MinOut(big.NewInt(1000)))
	require.Equal(t, big.NewInt(1030), s.MaxIn(big.NewInt(1000)))

	half := MustSlippage("0.5")
	require.Equal(t, big.NewInt(995), half.MinOut(big.NewInt(1000)))
}

func TestSlippageRoundsDown(t *testing.T) {
	s := MustSlippage("50")
	require.Equal(t, big.NewInt(4), s.MaxIn(big.NewInt(3)))
	require.Equal(t, big.NewInt(1), s.MaxIn(big.NewInt(1)))
	require.Equal(t, big.NewInt(1), s.MinOut(big.NewInt(3)))
	require.Equal(t, big.NewInt(0), s.MinOut(big.NewInt(1)))
}

func TestParseSlippage(t *testing.T) {
	fallback := decimal.RequireFromString("0.5")

	s, err := ParseSlippage("", fallback)
	require.NoError(t, err)
	require.Equal(t, "0.5", s.String())

	s, err = ParseSlippage(" 2.25 ", fallback)
	require.NoError(t, err)
	require.Equal(t, "2.25", s.String())

	for _, bad := range []string{"-1", "100", "250", "abc"} {
		_, err := ParseSlippage(bad, fallback)
		requireKind(t, err, KindInvalidRequest)
	}
}

func TestBoundKeepsTokenMetadata(t *testing.T) {
	in := []model.TokenAmount{amount(tokenX, 6, 1000), amount(tokenY, 18, 0)}
	bound := MustSlippage("1").Bound(model.BoundMaxIn, in)
	require.Equal(t, model.BoundMaxIn, bound.Kind)
	require.Len(t, bound.Amounts, 2)
	require.Equal(t, tokenX, bound.Amounts[0].Address)
	require.Equal(t, uint8(6), bound.Amounts[0].Decimals)
	require.Equal(t, big.NewInt(1010), bound.Amounts[0].RawAmount)
	require.Zero(t, bound.Amounts[1].RawAmount.Sign())
	// the quote must not be mutated
	require.Equal(t, big.NewInt(1000), in[0].RawAmount)
}

func TestToRawAmount(t *testing.T) {
	raw, err := ToRawAmount(decimal.RequireFromString("1.5"), 6)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_500_000), raw)

	_, err = ToRawAmount(decimal.RequireFromString("0.0000001"), 6)
	requireKind(t, err, KindInvalidRequest)

	require.Equal(t, "1.5", FromRawAmount(big.NewInt(1_500_000), 6).String())
}
