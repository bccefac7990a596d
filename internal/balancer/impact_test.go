package balancer

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

func TestValueImpact(t *testing.T) {
	pool := boostedPool() // 1050 USD over 1000 shares: 1.05 USD per BPT

	tests := []struct {
		name   string
		action pipeline.Action
		quote  *model.Quote
		want   string
	}{
		{
			name:   "add loses value",
			action: pipeline.ActionAdd,
			quote: &model.Quote{
				AmountsIn: []model.TokenAmount{amountOf(wS.Address, 18, mul(e18, 210))}, // 105 USD
				BptOut:    pool.Bpt(mul(e18, 99)),                                       // 103.95 USD
			},
			want: "1.00",
		},
		{
			name:   "add gaining value floors at zero",
			action: pipeline.ActionAdd,
			quote: &model.Quote{
				AmountsIn: []model.TokenAmount{amountOf(wS.Address, 18, mul(e18, 210))},
				BptOut:    pool.Bpt(mul(e18, 101)),
			},
			want: "0.00",
		},
		{
			name:   "remove into underlying",
			action: pipeline.ActionRemove,
			quote: &model.Quote{
				BptIn:      pool.Bpt(mul(e18, 100)),                                      // 105 USD
				AmountsOut: []model.TokenAmount{amountOf(usdc.Address, 6, mul(e6, 102))}, // 102 USD
			},
			want: "2.86",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := valueImpact(tt.action, pool, tt.quote)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestValueImpactNeedsPrices(t *testing.T) {
	pool := boostedPool()
	pool.Tokens[0].PriceUSD = decimal.Zero
	quote := &model.Quote{
		AmountsIn: []model.TokenAmount{amountOf(wS.Address, 18, e18)},
		BptOut:    pool.Bpt(e18),
	}
	_, err := valueImpact(pipeline.ActionAdd, pool, quote)
	require.Error(t, err)

	pool.TotalShares = new(big.Int)
	_, err = valueImpact(pipeline.ActionAdd, pool, quote)
	require.Error(t, err)
}

func TestPriceImpactQuotesWhenNoQuoteGiven(t *testing.T) {
	caller := &fakeCaller{t: t, outputs: map[string][]interface{}{
		"queryAddLiquidityUnbalanced": {mul(e18, 99)},
	}}
	r := NewResolver(nil, caller, SonicAddresses, nil)
	req := &pipeline.Request{
		Action: pipeline.ActionAdd, Operation: pipeline.OpUnbalanced, Family: pipeline.FamilyV3,
		User: userAddr, Amounts: []model.TokenAmount{amountOf(wS.Address, 18, mul(e18, 210))},
	}

	impact, err := r.PriceImpact(context.Background(), req, boostedPool(), nil)
	require.NoError(t, err)
	require.Equal(t, "1.00", impact.StringFixed(2))
	require.Len(t, caller.calls, 1)
}
