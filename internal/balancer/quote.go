package balancer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityBuilder/internal/chain"
	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

// PoolSource loads pool snapshots.
type PoolSource interface {
	FetchPool(ctx context.Context, poolID string) (*model.PoolState, error)
}

// Caller runs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error)
}

// Resolver quotes liquidity operations with on-chain query calls: the v2 BalancerQueries
// helper and the v3 router query functions. It holds no pool state between calls.
type Resolver struct {
	pools  PoolSource
	caller Caller
	addrs  Addresses
	logger *zap.Logger
}

func NewResolver(pools PoolSource, caller Caller, addrs Addresses, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{pools: pools, caller: caller, addrs: addrs, logger: logger}
}

// FetchPoolState loads a fresh snapshot. Only boosted fetches keep underlying tokens.
func (r *Resolver) FetchPoolState(ctx context.Context, poolID string, boosted bool) (*model.PoolState, error) {
	pool, err := r.pools.FetchPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if !boosted {
		for i := range pool.Tokens {
			pool.Tokens[i].Underlying = nil
		}
	}
	return pool, nil
}

// Quote computes the exact amounts of req against pool.
func (r *Resolver) Quote(ctx context.Context, req *pipeline.Request, pool *model.PoolState) (*model.Quote, error) {
	switch req.Family {
	case pipeline.FamilyV2:
		if req.Action == pipeline.ActionAdd {
			return r.quoteJoinV2(ctx, req, pool)
		}
		return r.quoteExitV2(ctx, req, pool)
	case pipeline.FamilyV3:
		if req.Boosted() {
			return r.quoteBoosted(ctx, req, pool)
		}
		if req.Action == pipeline.ActionAdd {
			return r.quoteAddV3(ctx, req, pool)
		}
		return r.quoteRemoveV3(ctx, req, pool)
	default:
		return nil, fmt.Errorf("unsupported family %s", req.Family)
	}
}

type joinRequest struct {
	Assets              []common.Address
	MaxAmountsIn        []*big.Int
	UserData            []byte
	FromInternalBalance bool
}

type exitRequest struct {
	Assets            []common.Address
	MinAmountsOut     []*big.Int
	UserData          []byte
	ToInternalBalance bool
}

func (r *Resolver) quoteJoinV2(ctx context.Context, req *pipeline.Request, pool *model.PoolState) (*model.Quote, error) {
	layout := newV2Layout(pool)
	poolID, err := pool.PoolID32()
	if err != nil {
		return nil, err
	}

	join := joinRequest{Assets: layout.assets}
	switch req.Operation {
	case pipeline.OpUnbalanced:
		if join.MaxAmountsIn, err = layout.slots(req.Amounts); err != nil {
			return nil, err
		}
		join.UserData, err = userDataExactTokensIn(layout.dropBpt(join.MaxAmountsIn), new(big.Int))
	case pipeline.OpProportional:
		var bptOut *big.Int
		if bptOut, err = proportionalBptOut(pool, *req.Amount); err != nil {
			return nil, err
		}
		join.MaxAmountsIn = layout.unlimited()
		join.UserData, err = userDataAllTokensInForExactBptOut(bptOut)
	case pipeline.OpSingleTokenExactOut:
		idx := layout.assetIndex(req.Token)
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not a pool asset", req.Token.Hex())
		}
		join.MaxAmountsIn = zeros(len(layout.assets))
		join.MaxAmountsIn[idx] = unlimitedAmount()
		join.UserData, err = userDataTokenInForExactBptOut(req.Amount.Amount(), layout.userIndex(idx))
	default:
		return nil, fmt.Errorf("unsupported v2 add %s", req.Operation)
	}
	if err != nil {
		return nil, err
	}

	parsed, err := queriesV2ABI.get()
	if err != nil {
		return nil, fmt.Errorf("parse queries abi: %w", err)
	}
	values, err := r.caller.Call(ctx, r.addrs.V2Queries, parsed, "queryJoin", [32]byte(poolID), req.User, req.User, join)
	if err != nil {
		return nil, err
	}
	bptOut, amountsIn, err := unpackAmountAndList(values, "queryJoin")
	if err != nil {
		return nil, err
	}
	in, err := layout.amounts(amountsIn)
	if err != nil {
		return nil, fmt.Errorf("queryJoin: %w", err)
	}
	return &model.Quote{AmountsIn: in, BptOut: pool.Bpt(bptOut)}, nil
}

func (r *Resolver) quoteExitV2(ctx context.Context, req *pipeline.Request, pool *model.PoolState) (*model.Quote, error) {
	layout := newV2Layout(pool)
	kinds := exitKindsFor(pool.Type)
	poolID, err := pool.PoolID32()
	if err != nil {
		return nil, err
	}

	exit := exitRequest{Assets: layout.assets, MinAmountsOut: zeros(len(layout.assets))}
	switch req.Operation {
	case pipeline.OpProportional:
		exit.UserData, err = userDataExactBptInForTokensOut(kinds, req.Amount.Amount())
	case pipeline.OpSingleTokenExactIn:
		idx := layout.assetIndex(req.Token)
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not a pool asset", req.Token.Hex())
		}
		exit.UserData, err = userDataExactBptInForOneTokenOut(kinds, req.Amount.Amount(), layout.userIndex(idx))
	case pipeline.OpSingleTokenExactOut, pipeline.OpUnbalanced:
		amounts := req.Amounts
		if req.Amount != nil {
			amounts = []model.TokenAmount{*req.Amount}
		}
		var out []*big.Int
		if out, err = layout.slots(amounts); err != nil {
			return nil, err
		}
		exit.MinAmountsOut = out
		exit.UserData, err = userDataBptInForExactTokensOut(kinds, layout.dropBpt(out), unlimitedAmount())
	default:
		return nil, fmt.Errorf("unsupported v2 remove %s", req.Operation)
	}
	if err != nil {
		return nil, err
	}

	parsed, err := queriesV2ABI.get()
	if err != nil {
		return nil, fmt.Errorf("parse queries abi: %w", err)
	}
	values, err := r.caller.Call(ctx, r.addrs.V2Queries, parsed, "queryExit", [32]byte(poolID), req.User, req.User, exit)
	if err != nil {
		return nil, err
	}
	bptIn, amountsOut, err := unpackAmountAndList(values, "queryExit")
	if err != nil {
		return nil, err
	}
	out, err := layout.amounts(amountsOut)
	if err != nil {
		return nil, fmt.Errorf("queryExit: %w", err)
	}
	switch {
	case req.Operation == pipeline.OpSingleTokenExactIn:
		out = onlyToken(out, req.Token)
	case req.Amount != nil:
		out = onlyToken(out, req.Amount.Address)
	}
	return &model.Quote{AmountsOut: out, BptIn: pool.Bpt(bptIn)}, nil
}

func (r *Resolver) quoteAddV3(ctx context.Context, req *pipeline.Request, pool *model.PoolState) (*model.Quote, error) {
	parsed, err := routerV3ABI.get()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	router := r.addrs.V3Router

	switch req.Operation {
	case pipeline.OpUnbalanced:
		exact, err := v3Slots(pool, req.Amounts)
		if err != nil {
			return nil, err
		}
		values, err := r.caller.Call(ctx, router, parsed, "queryAddLiquidityUnbalanced", pool.Address, exact, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		bptOut, err := unpackAmount(values, "queryAddLiquidityUnbalanced")
		if err != nil {
			return nil, err
		}
		return &model.Quote{AmountsIn: poolAmounts(pool, exact), BptOut: pool.Bpt(bptOut)}, nil

	case pipeline.OpProportional:
		bptOut, err := proportionalBptOut(pool, *req.Amount)
		if err != nil {
			return nil, err
		}
		values, err := r.caller.Call(ctx, router, parsed, "queryAddLiquidityProportional", pool.Address, bptOut, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		amountsIn, err := unpackList(values, "queryAddLiquidityProportional")
		if err != nil {
			return nil, err
		}
		return &model.Quote{AmountsIn: poolAmounts(pool, amountsIn), BptOut: pool.Bpt(bptOut)}, nil

	case pipeline.OpSingleTokenExactOut:
		token, ok := pool.Token(req.Token)
		if !ok {
			return nil, fmt.Errorf("token %s is not in pool", req.Token.Hex())
		}
		bptOut := req.Amount.Amount()
		values, err := r.caller.Call(ctx, router, parsed, "queryAddLiquiditySingleTokenExactOut", pool.Address, token.Address, bptOut, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		amountIn, err := unpackAmount(values, "queryAddLiquiditySingleTokenExactOut")
		if err != nil {
			return nil, err
		}
		return &model.Quote{
			AmountsIn: []model.TokenAmount{model.NewTokenAmount(token.Address, token.Decimals, amountIn)},
			BptOut:    pool.Bpt(bptOut),
		}, nil
	}
	return nil, fmt.Errorf("unsupported v3 add %s", req.Operation)
}

func (r *Resolver) quoteRemoveV3(ctx context.Context, req *pipeline.Request, pool *model.PoolState) (*model.Quote, error) {
	parsed, err := routerV3ABI.get()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	router := r.addrs.V3Router

	switch req.Operation {
	case pipeline.OpProportional:
		bptIn := req.Amount.Amount()
		values, err := r.caller.Call(ctx, router, parsed, "queryRemoveLiquidityProportional", pool.Address, bptIn, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		amountsOut, err := unpackList(values, "queryRemoveLiquidityProportional")
		if err != nil {
			return nil, err
		}
		return &model.Quote{AmountsOut: poolAmounts(pool, amountsOut), BptIn: pool.Bpt(bptIn)}, nil

	case pipeline.OpSingleTokenExactIn:
		token, ok := pool.Token(req.Token)
		if !ok {
			return nil, fmt.Errorf("token %s is not in pool", req.Token.Hex())
		}
		bptIn := req.Amount.Amount()
		values, err := r.caller.Call(ctx, router, parsed, "queryRemoveLiquiditySingleTokenExactIn", pool.Address, bptIn, token.Address, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		amountOut, err := unpackAmount(values, "queryRemoveLiquiditySingleTokenExactIn")
		if err != nil {
			return nil, err
		}
		return &model.Quote{
			AmountsOut: []model.TokenAmount{model.NewTokenAmount(token.Address, token.Decimals, amountOut)},
			BptIn:      pool.Bpt(bptIn),
		}, nil

	case pipeline.OpSingleTokenExactOut:
		token, ok := pool.Token(req.Amount.Address)
		if !ok {
			return nil, fmt.Errorf("token %s is not in pool", req.Amount.Address.Hex())
		}
		amountOut := req.Amount.Amount()
		values, err := r.caller.Call(ctx, router, parsed, "queryRemoveLiquiditySingleTokenExactOut", pool.Address, token.Address, amountOut, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		bptIn, err := unpackAmount(values, "queryRemoveLiquiditySingleTokenExactOut")
		if err != nil {
			return nil, err
		}
		return &model.Quote{
			AmountsOut: []model.TokenAmount{model.NewTokenAmount(token.Address, token.Decimals, amountOut)},
			BptIn:      pool.Bpt(bptIn),
		}, nil
	}
	return nil, fmt.Errorf("unsupported v3 remove %s", req.Operation)
}

func (r *Resolver) quoteBoosted(ctx context.Context, req *pipeline.Request, pool *model.PoolState) (*model.Quote, error) {
	parsed, err := compositeRouterABI.get()
	if err != nil {
		return nil, fmt.Errorf("parse composite router abi: %w", err)
	}
	router := r.addrs.V3CompositeRouter

	switch {
	case req.Action == pipeline.ActionAdd && req.Operation == pipeline.OpBoostedUnbalanced:
		exact, wrap, err := boostedSlots(pool, req.Amounts)
		if err != nil {
			return nil, err
		}
		values, err := r.caller.Call(ctx, router, parsed, "queryAddLiquidityUnbalancedToERC4626Pool", pool.Address, wrap, exact, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		bptOut, err := unpackAmount(values, "queryAddLiquidityUnbalancedToERC4626Pool")
		if err != nil {
			return nil, err
		}
		return &model.Quote{AmountsIn: userAmounts(pool, wrap, exact), BptOut: pool.Bpt(bptOut), WrapUnderlying: wrap}, nil

	case req.Action == pipeline.ActionAdd && req.Operation == pipeline.OpBoostedProportional:
		wrap := wrapFlags(pool, req.TokensIn)
		bptOut, err := proportionalBptOut(pool, *req.Amount)
		if err != nil {
			return nil, err
		}
		values, err := r.caller.Call(ctx, router, parsed, "queryAddLiquidityProportionalToERC4626Pool", pool.Address, wrap, bptOut, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		amountsIn, err := unpackList(values, "queryAddLiquidityProportionalToERC4626Pool")
		if err != nil {
			return nil, err
		}
		return &model.Quote{AmountsIn: userAmounts(pool, wrap, amountsIn), BptOut: pool.Bpt(bptOut), WrapUnderlying: wrap}, nil

	case req.Action == pipeline.ActionRemove && req.Operation == pipeline.OpBoostedProportional:
		unwrap := make([]bool, len(pool.Tokens))
		for i, token := range pool.Tokens {
			unwrap[i] = token.Underlying != nil
		}
		bptIn := req.Amount.Amount()
		values, err := r.caller.Call(ctx, router, parsed, "queryRemoveLiquidityProportionalFromERC4626Pool", pool.Address, unwrap, bptIn, common.Address{}, []byte{})
		if err != nil {
			return nil, err
		}
		amountsOut, err := unpackList(values, "queryRemoveLiquidityProportionalFromERC4626Pool")
		if err != nil {
			return nil, err
		}
		return &model.Quote{AmountsOut: userAmounts(pool, unwrap, amountsOut), BptIn: pool.Bpt(bptIn), WrapUnderlying: unwrap}, nil
	}
	return nil, fmt.Errorf("unsupported boosted %s %s", req.Action, req.Operation)
}

// proportionalBptOut estimates the shares matching a reference amount. The reference may be
// the BPT itself, a pool token, or the underlying of a wrapped pool token.
func proportionalBptOut(pool *model.PoolState, ref model.TokenAmount) (*big.Int, error) {
	if ref.Address == pool.Address {
		return new(big.Int).Set(ref.Amount()), nil
	}
	if pool.TotalShares == nil || pool.TotalShares.Sign() == 0 {
		return nil, errors.New("pool has no shares")
	}

	wrapped := ref.Amount()
	idx := pool.TokenIndex(ref.Address)
	if idx < 0 {
		idx = pool.UnderlyingIndex(ref.Address)
		if idx < 0 {
			return nil, fmt.Errorf("reference token %s is not in pool", ref.Address.Hex())
		}
		token := pool.Tokens[idx]
		if token.PriceUSD.IsZero() || token.Underlying.PriceUSD.IsZero() {
			return nil, fmt.Errorf("no price to convert %s into %s", ref.Address.Hex(), token.Address.Hex())
		}
		human := decimal.NewFromBigInt(wrapped, -int32(ref.Decimals))
		wrapped = human.Mul(token.Underlying.PriceUSD).Div(token.PriceUSD).Shift(int32(token.Decimals)).BigInt()
	}

	balance := pool.Tokens[idx].Balance
	if balance == nil || balance.Sign() == 0 {
		return nil, fmt.Errorf("pool token %s has no balance", pool.Tokens[idx].Address.Hex())
	}
	out := new(big.Int).Mul(wrapped, pool.TotalShares)
	return out.Quo(out, balance), nil
}

// v3Slots lays amounts out in pool token order.
func v3Slots(pool *model.PoolState, amounts []model.TokenAmount) ([]*big.Int, error) {
	out := zeros(len(pool.Tokens))
	for _, amount := range amounts {
		idx := pool.TokenIndex(amount.Address)
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not in pool", amount.Address.Hex())
		}
		out[idx] = new(big.Int).Set(amount.Amount())
	}
	return out, nil
}

// boostedSlots also accepts underlyings and flags their slots for wrapping.
func boostedSlots(pool *model.PoolState, amounts []model.TokenAmount) ([]*big.Int, []bool, error) {
	out := zeros(len(pool.Tokens))
	wrap := make([]bool, len(pool.Tokens))
	for _, amount := range amounts {
		idx := pool.TokenIndex(amount.Address)
		if idx < 0 {
			if idx = pool.UnderlyingIndex(amount.Address); idx < 0 {
				return nil, nil, fmt.Errorf("token %s is not in pool", amount.Address.Hex())
			}
			wrap[idx] = true
		}
		out[idx] = new(big.Int).Set(amount.Amount())
	}
	return out, wrap, nil
}

func wrapFlags(pool *model.PoolState, tokensIn []common.Address) []bool {
	wrap := make([]bool, len(pool.Tokens))
	for _, addr := range tokensIn {
		if pool.TokenIndex(addr) < 0 {
			if idx := pool.UnderlyingIndex(addr); idx >= 0 {
				wrap[idx] = true
			}
		}
	}
	return wrap
}

func poolAmounts(pool *model.PoolState, values []*big.Int) []model.TokenAmount {
	out := make([]model.TokenAmount, 0, len(values))
	for i, v := range values {
		if i >= len(pool.Tokens) {
			break
		}
		out = append(out, model.NewTokenAmount(pool.Tokens[i].Address, pool.Tokens[i].Decimals, v))
	}
	return out
}

// userAmounts names each slot by the token the user actually sends or receives.
func userAmounts(pool *model.PoolState, wrap []bool, values []*big.Int) []model.TokenAmount {
	out := make([]model.TokenAmount, 0, len(values))
	for i, v := range values {
		if i >= len(pool.Tokens) {
			break
		}
		token := pool.Tokens[i]
		if i < len(wrap) && wrap[i] && token.Underlying != nil {
			out = append(out, model.NewTokenAmount(token.Underlying.Address, token.Underlying.Decimals, v))
			continue
		}
		out = append(out, model.NewTokenAmount(token.Address, token.Decimals, v))
	}
	return out
}

func onlyToken(amounts []model.TokenAmount, token common.Address) []model.TokenAmount {
	if amount, ok := model.FindAmount(amounts, token); ok {
		return []model.TokenAmount{amount}
	}
	return amounts
}

func unpackAmount(values []interface{}, method string) (*big.Int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty response", method)
	}
	v, err := chain.AsBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

func unpackList(values []interface{}, method string) ([]*big.Int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty response", method)
	}
	v, err := chain.AsBigInts(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

func unpackAmountAndList(values []interface{}, method string) (*big.Int, []*big.Int, error) {
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("%s: short response", method)
	}
	amount, err := chain.AsBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}
	list, err := chain.AsBigInts(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}
	return amount, list, nil
}
