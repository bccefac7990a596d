package balancer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

var hundred = decimal.NewFromInt(100)

// PriceImpact compares the USD value a user gives up with the value received, using the pool's
// TVL per share to price BPT. A nil quote is quoted first. The result is floored at zero.
func (r *Resolver) PriceImpact(ctx context.Context, req *pipeline.Request, pool *model.PoolState, quote *model.Quote) (decimal.Decimal, error) {
	if quote == nil {
		var err error
		if quote, err = r.Quote(ctx, req, pool); err != nil {
			return decimal.Zero, err
		}
	}
	return valueImpact(req.Action, pool, quote)
}

func valueImpact(action pipeline.Action, pool *model.PoolState, quote *model.Quote) (decimal.Decimal, error) {
	sharePrice, err := bptPrice(pool)
	if err != nil {
		return decimal.Zero, err
	}

	var given, received decimal.Decimal
	if action == pipeline.ActionAdd {
		if given, err = usdValue(pool, quote.AmountsIn); err != nil {
			return decimal.Zero, err
		}
		received = human(quote.BptOut).Mul(sharePrice)
	} else {
		given = human(quote.BptIn).Mul(sharePrice)
		if received, err = usdValue(pool, quote.AmountsOut); err != nil {
			return decimal.Zero, err
		}
	}

	if !given.IsPositive() {
		return decimal.Zero, nil
	}
	impact := given.Sub(received).Div(given).Mul(hundred)
	if impact.IsNegative() {
		return decimal.Zero, nil
	}
	return impact, nil
}

func bptPrice(pool *model.PoolState) (decimal.Decimal, error) {
	if pool.TotalShares == nil || pool.TotalShares.Sign() == 0 {
		return decimal.Zero, fmt.Errorf("pool %s has no shares", pool.ID)
	}
	shares := decimal.NewFromBigInt(pool.TotalShares, -model.BptDecimals)
	return pool.TotalLiquidityUSD.Div(shares), nil
}

func usdValue(pool *model.PoolState, amounts []model.TokenAmount) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, amount := range amounts {
		if amount.IsZero() {
			continue
		}
		price, ok := pool.TokenPriceUSD(amount.Address)
		if !ok {
			return decimal.Zero, fmt.Errorf("no USD price for %s", amount.Address.Hex())
		}
		total = total.Add(human(amount).Mul(price))
	}
	return total, nil
}

func human(amount model.TokenAmount) decimal.Decimal {
	return decimal.NewFromBigInt(amount.Amount(), -int32(amount.Decimals))
}
