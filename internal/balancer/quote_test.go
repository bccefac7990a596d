package balancer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

// fakeCaller packs every call so argument shapes are checked against the ABI, then answers
// from canned outputs keyed by method.
type fakeCaller struct {
	t       *testing.T
	outputs map[string][]interface{}
	calls   []recordedCall
}

type recordedCall struct {
	to     common.Address
	method string
	args   []interface{}
}

func (f *fakeCaller) Call(_ context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	f.t.Helper()
	_, err := parsed.Pack(method, args...)
	require.NoError(f.t, err, "pack %s", method)
	f.calls = append(f.calls, recordedCall{to: to, method: method, args: args})
	out, ok := f.outputs[method]
	require.True(f.t, ok, "unexpected call %s", method)
	return out, nil
}

type staticPools struct {
	pool *model.PoolState
}

func (s staticPools) FetchPool(context.Context, string) (*model.PoolState, error) {
	copied := *s.pool
	copied.Tokens = append([]model.PoolToken(nil), s.pool.Tokens...)
	return &copied, nil
}

var (
	bptAddr   = common.HexToAddress("0x374641076B68371e69D03C417DAc3E5F236c32FA")
	daiAddr   = common.HexToAddress("0x8d11ec38a3eb5e956b052f67da8bdc9bef8abf3e")
	waUSDC    = common.HexToAddress("0x6047828dc181963ba44974801ff68e538da5eaf9")
	userAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	v2PoolID  = "0x374641076b68371e69d03c417dac3e5f236c32fa000000000000000000000006"
	e18       = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	e6        = big.NewInt(1_000_000)
	thousand6 = new(big.Int).Mul(big.NewInt(1000), e6)
)

func mul(a *big.Int, n int64) *big.Int {
	return new(big.Int).Mul(a, big.NewInt(n))
}

// composablePool registers its own BPT at index 1, between USDC and DAI.
func composablePool() *model.PoolState {
	return &model.PoolState{
		ID:              v2PoolID,
		Address:         bptAddr,
		Name:            "USD Stable",
		Type:            model.PoolTypeComposableStable,
		ProtocolVersion: 2,
		Tokens: []model.PoolToken{
			{Address: usdc.Address, Decimals: 6, Index: 0, Balance: thousand6, PriceUSD: decimal.NewFromInt(1)},
			{Address: bptAddr, Decimals: 18, Index: 1, Balance: mul(e18, 1_000_000), PriceUSD: decimal.NewFromInt(1)},
			{Address: daiAddr, Decimals: 18, Index: 2, Balance: mul(e18, 1000), PriceUSD: decimal.NewFromInt(1)},
		},
		TotalShares:       mul(e18, 2000),
		TotalLiquidityUSD: decimal.NewFromInt(2000),
	}
}

func boostedPool() *model.PoolState {
	return &model.PoolState{
		ID:              bptAddr.Hex(),
		Address:         bptAddr,
		Name:            "Boosted Stable",
		ProtocolVersion: 3,
		Tokens: []model.PoolToken{
			{Address: wS.Address, Decimals: 18, Index: 0, Balance: mul(e18, 1000), PriceUSD: decimal.RequireFromString("0.5")},
			{
				Address: waUSDC, Decimals: 6, Index: 1, Balance: mul(e6, 500), PriceUSD: decimal.RequireFromString("1.1"),
				Underlying: &model.UnderlyingToken{Token: usdc, PriceUSD: decimal.NewFromInt(1)},
			},
		},
		TotalShares:       mul(e18, 1000),
		TotalLiquidityUSD: decimal.NewFromInt(1050),
	}
}

func amountOf(addr common.Address, decimals uint8, raw *big.Int) model.TokenAmount {
	return model.NewTokenAmount(addr, decimals, raw)
}

func decodeUserData(t *testing.T, data []byte, types ...abi.Type) []interface{} {
	t.Helper()
	args := make(abi.Arguments, 0, len(types))
	for _, typ := range types {
		args = append(args, abi.Argument{Type: typ})
	}
	values, err := args.Unpack(data)
	require.NoError(t, err)
	return values
}

func TestFetchPoolStateStripsUnderlyingsUnlessBoosted(t *testing.T) {
	r := NewResolver(staticPools{pool: boostedPool()}, nil, SonicAddresses, nil)

	plain, err := r.FetchPoolState(context.Background(), "id", false)
	require.NoError(t, err)
	require.Nil(t, plain.Tokens[1].Underlying)

	boosted, err := r.FetchPoolState(context.Background(), "id", true)
	require.NoError(t, err)
	require.NotNil(t, boosted.Tokens[1].Underlying)
}

func TestQuoteExitV2SingleTokenSkipsBptIndex(t *testing.T) {
	caller := &fakeCaller{t: t, outputs: map[string][]interface{}{
		"queryExit": {mul(e18, 10), []*big.Int{big.NewInt(0), big.NewInt(0), mul(e18, 9)}},
	}}
	r := NewResolver(nil, caller, SonicAddresses, nil)
	bptIn := amountOf(bptAddr, 18, mul(e18, 10))
	req := &pipeline.Request{
		Action: pipeline.ActionRemove, Operation: pipeline.OpSingleTokenExactIn, Family: pipeline.FamilyV2,
		User: userAddr, Amount: &bptIn, Token: daiAddr,
	}

	quote, err := r.Quote(context.Background(), req, composablePool())
	require.NoError(t, err)
	require.Len(t, quote.AmountsOut, 1)
	require.Equal(t, daiAddr, quote.AmountsOut[0].Address)
	require.Equal(t, mul(e18, 9).String(), quote.AmountsOut[0].Amount().String())
	require.Equal(t, mul(e18, 10).String(), quote.BptIn.Amount().String())

	require.Len(t, caller.calls, 1)
	require.Equal(t, SonicAddresses.V2Queries, caller.calls[0].to)
	exit := caller.calls[0].args[3].(exitRequest)
	require.Equal(t, []common.Address{usdc.Address, bptAddr, daiAddr}, exit.Assets)

	values := decodeUserData(t, exit.UserData, uint256Type, uint256Type, uint256Type)
	require.Equal(t, int64(0), values[0].(*big.Int).Int64(), "one token out kind")
	// DAI is asset 2 but user data index 1 once the BPT is skipped.
	require.Equal(t, int64(1), values[2].(*big.Int).Int64())
}

func TestQuoteJoinV2UnbalancedDropsBptFromUserData(t *testing.T) {
	caller := &fakeCaller{t: t, outputs: map[string][]interface{}{
		"queryJoin": {mul(e18, 5), []*big.Int{thousand6, big.NewInt(0), big.NewInt(0)}},
	}}
	r := NewResolver(nil, caller, SonicAddresses, nil)
	req := &pipeline.Request{
		Action: pipeline.ActionAdd, Operation: pipeline.OpUnbalanced, Family: pipeline.FamilyV2,
		User: userAddr, Amounts: []model.TokenAmount{amountOf(usdc.Address, 6, thousand6)},
	}

	quote, err := r.Quote(context.Background(), req, composablePool())
	require.NoError(t, err)
	require.Len(t, quote.AmountsIn, 2)
	require.Equal(t, mul(e18, 5).String(), quote.BptOut.Amount().String())

	join := caller.calls[0].args[3].(joinRequest)
	values := decodeUserData(t, join.UserData, uint256Type, uint256sType, uint256Type)
	require.Equal(t, int64(joinExactTokensIn), values[0].(*big.Int).Int64())
	require.Len(t, values[1].([]*big.Int), 2)
}

func TestQuoteV3SingleTokenExactOutRemove(t *testing.T) {
	caller := &fakeCaller{t: t, outputs: map[string][]interface{}{
		"queryRemoveLiquiditySingleTokenExactOut": {mul(e18, 3)},
	}}
	r := NewResolver(nil, caller, SonicAddresses, nil)
	out := amountOf(wS.Address, 18, mul(e18, 2))
	req := &pipeline.Request{
		Action: pipeline.ActionRemove, Operation: pipeline.OpSingleTokenExactOut, Family: pipeline.FamilyV3,
		User: userAddr, Amount: &out,
	}

	quote, err := r.Quote(context.Background(), req, boostedPool())
	require.NoError(t, err)
	require.Equal(t, mul(e18, 3).String(), quote.BptIn.Amount().String())
	require.Equal(t, bptAddr, quote.BptIn.Address)
	require.Equal(t, SonicAddresses.V3Router, caller.calls[0].to)
	require.Equal(t, common.Address{}, caller.calls[0].args[3], "queries run from the zero address")
}

func TestQuoteBoostedUnbalancedWrapsUnderlying(t *testing.T) {
	caller := &fakeCaller{t: t, outputs: map[string][]interface{}{
		"queryAddLiquidityUnbalancedToERC4626Pool": {mul(e18, 100)},
	}}
	r := NewResolver(nil, caller, SonicAddresses, nil)
	req := &pipeline.Request{
		Action: pipeline.ActionAdd, Operation: pipeline.OpBoostedUnbalanced, Family: pipeline.FamilyV3,
		User: userAddr, Amounts: []model.TokenAmount{amountOf(usdc.Address, 6, mul(e6, 100))},
	}

	quote, err := r.Quote(context.Background(), req, boostedPool())
	require.NoError(t, err)
	require.Equal(t, []bool{false, true}, quote.WrapUnderlying)
	require.Equal(t, SonicAddresses.V3CompositeRouter, caller.calls[0].to)

	in, ok := model.FindAmount(quote.AmountsIn, usdc.Address)
	require.True(t, ok, "amounts in are named by the underlying the user sends")
	require.Equal(t, mul(e6, 100).String(), in.Amount().String())
}

func TestQuoteBoostedRemoveUnwrapsEveryWrappedToken(t *testing.T) {
	caller := &fakeCaller{t: t, outputs: map[string][]interface{}{
		"queryRemoveLiquidityProportionalFromERC4626Pool": {[]*big.Int{mul(e18, 10), mul(e6, 5)}},
	}}
	r := NewResolver(nil, caller, SonicAddresses, nil)
	bptIn := amountOf(bptAddr, 18, mul(e18, 10))
	req := &pipeline.Request{
		Action: pipeline.ActionRemove, Operation: pipeline.OpBoostedProportional, Family: pipeline.FamilyV3,
		User: userAddr, Amount: &bptIn,
	}

	quote, err := r.Quote(context.Background(), req, boostedPool())
	require.NoError(t, err)
	require.Equal(t, []bool{false, true}, caller.calls[0].args[1])
	require.Equal(t, wS.Address, quote.AmountsOut[0].Address)
	require.Equal(t, usdc.Address, quote.AmountsOut[1].Address)
}

func TestProportionalBptOut(t *testing.T) {
	pool := boostedPool()

	got, err := proportionalBptOut(pool, amountOf(bptAddr, 18, e18))
	require.NoError(t, err)
	require.Equal(t, e18.String(), got.String(), "BPT reference is used as-is")

	// 10 wS of 1000 in the pool is 1% of the shares.
	got, err = proportionalBptOut(pool, amountOf(wS.Address, 18, mul(e18, 10)))
	require.NoError(t, err)
	require.Equal(t, mul(e18, 10).String(), got.String())

	// 11 USDC converts to 10 waUSDC at a 1.1 rate, which is 2% of the wrapped balance.
	got, err = proportionalBptOut(pool, amountOf(usdc.Address, 6, mul(e6, 11)))
	require.NoError(t, err)
	require.Equal(t, mul(e18, 20).String(), got.String())

	_, err = proportionalBptOut(pool, amountOf(daiAddr, 18, e18))
	require.Error(t, err)
}
