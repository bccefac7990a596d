package balancer

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

func decodeCall(t *testing.T, l *lazyABI, method string, data []byte) []interface{} {
	t.Helper()
	parsed, err := l.get()
	require.NoError(t, err)
	m, ok := parsed.Methods[method]
	require.True(t, ok)
	require.True(t, bytes.HasPrefix(data, m.ID), "selector of %s", method)
	values, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return values
}

func TestTargets(t *testing.T) {
	enc := NewEncoder(SonicAddresses)
	require.Equal(t, SonicAddresses.V2Vault, enc.LiquidityTarget(&pipeline.Request{Family: pipeline.FamilyV2, Operation: pipeline.OpUnbalanced}))
	require.Equal(t, SonicAddresses.V3Router, enc.LiquidityTarget(&pipeline.Request{Family: pipeline.FamilyV3, Operation: pipeline.OpUnbalanced}))
	require.Equal(t, SonicAddresses.V3CompositeRouter, enc.LiquidityTarget(&pipeline.Request{Family: pipeline.FamilyV3, Operation: pipeline.OpBoostedProportional}))
	require.Equal(t, SonicAddresses.V2Vault, enc.SwapTarget(pipeline.FamilyV2))
	require.Equal(t, SonicAddresses.V3BatchRouter, enc.SwapTarget(pipeline.FamilyV3))
}

func TestEncodeRemoveSingleTokenExactInV3(t *testing.T) {
	pool := boostedPool()
	bptIn := amountOf(bptAddr, 18, mul(e18, 10))
	req := &pipeline.Request{
		Action: pipeline.ActionRemove, Operation: pipeline.OpSingleTokenExactIn, Family: pipeline.FamilyV3,
		User: userAddr, Amount: &bptIn, Token: wS.Address,
	}
	quote := &model.Quote{BptIn: bptIn, AmountsOut: []model.TokenAmount{amountOf(wS.Address, 18, mul(e18, 20))}}
	bound := pipeline.MustSlippage("1").Bound(model.BoundMinOut, quote.AmountsOut)

	data, err := NewEncoder(SonicAddresses).EncodeLiquidity(pipeline.LiquidityCall{
		Request: req, Pool: pool, Quote: quote, Bound: bound, Sender: userAddr, Recipient: userAddr,
	})
	require.NoError(t, err)

	values := decodeCall(t, routerV3ABI, "removeLiquiditySingleTokenExactIn", data)
	require.Equal(t, bptAddr, values[0])
	require.Equal(t, bptIn.Amount().String(), values[1].(*big.Int).String())
	require.Equal(t, wS.Address, values[2])
	require.Equal(t, mul(e17, 198).String(), values[3].(*big.Int).String())
	require.Equal(t, false, values[4])
}

var e17 = new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)

func TestEncodeExitV2ProportionalKeepsBptSlot(t *testing.T) {
	pool := composablePool()
	bptIn := amountOf(bptAddr, 18, mul(e18, 10))
	req := &pipeline.Request{
		Action: pipeline.ActionRemove, Operation: pipeline.OpProportional, Family: pipeline.FamilyV2,
		User: userAddr, Amount: &bptIn,
	}
	quote := &model.Quote{BptIn: bptIn, AmountsOut: []model.TokenAmount{
		amountOf(usdc.Address, 6, mul(e6, 5)),
		amountOf(daiAddr, 18, mul(e18, 5)),
	}}
	bound := pipeline.MustSlippage("0").Bound(model.BoundMinOut, quote.AmountsOut)

	data, err := NewEncoder(SonicAddresses).EncodeLiquidity(pipeline.LiquidityCall{
		Request: req, Pool: pool, Quote: quote, Bound: bound, Sender: userAddr, Recipient: userAddr,
	})
	require.NoError(t, err)

	values := decodeCall(t, vaultV2ABI, "exitPool", data)
	require.Equal(t, userAddr, values[1])
	exit := *abi.ConvertType(values[3], new(exitRequest)).(*exitRequest)
	require.Equal(t, []common.Address{usdc.Address, bptAddr, daiAddr}, exit.Assets)
	require.Len(t, exit.MinAmountsOut, 3)
	require.Equal(t, mul(e6, 5).String(), exit.MinAmountsOut[0].String())
	require.Zero(t, exit.MinAmountsOut[1].Sign())
	require.Equal(t, mul(e18, 5).String(), exit.MinAmountsOut[2].String())
	require.False(t, exit.ToInternalBalance)

	ud := decodeUserData(t, exit.UserData, uint256Type, uint256Type)
	require.Equal(t, int64(2), ud[0].(*big.Int).Int64(), "composable proportional exit kind")
}

func TestEncodeBoostedProportionalAddUsesWrapFlags(t *testing.T) {
	pool := boostedPool()
	ref := amountOf(usdc.Address, 6, mul(e6, 11))
	req := &pipeline.Request{
		Action: pipeline.ActionAdd, Operation: pipeline.OpBoostedProportional, Family: pipeline.FamilyV3,
		User: userAddr, Amount: &ref, TokensIn: []common.Address{wS.Address, usdc.Address},
	}
	quote := &model.Quote{
		AmountsIn: []model.TokenAmount{
			amountOf(wS.Address, 18, mul(e18, 20)),
			amountOf(usdc.Address, 6, mul(e6, 11)),
		},
		BptOut:         pool.Bpt(mul(e18, 20)),
		WrapUnderlying: []bool{false, true},
	}
	bound := pipeline.MustSlippage("0").Bound(model.BoundMaxIn, quote.AmountsIn)

	data, err := NewEncoder(SonicAddresses).EncodeLiquidity(pipeline.LiquidityCall{
		Request: req, Pool: pool, Quote: quote, Bound: bound, Sender: userAddr, Recipient: userAddr,
	})
	require.NoError(t, err)

	values := decodeCall(t, compositeRouterABI, "addLiquidityProportionalToERC4626Pool", data)
	require.Equal(t, []bool{false, true}, values[1])
	maxIn := values[2].([]*big.Int)
	require.Equal(t, mul(e6, 11).String(), maxIn[1].String())
	require.Equal(t, mul(e18, 20).String(), values[3].(*big.Int).String())
}

func swapQuote(version int, pools ...string) *model.SwapQuote {
	return &model.SwapQuote{
		TokenIn:         wS,
		TokenOut:        usdc,
		AmountIn:        mul(e18, 2),
		AmountOut:       mul(e6, 4),
		ProtocolVersion: version,
		Paths: []model.SwapPath{
			{Pools: pools[:1], Tokens: []model.Token{wS, usdc}, IsBuffer: []bool{false}, AmountIn: e18, AmountOut: mul(e6, 3)},
			{Pools: pools[1:], Tokens: []model.Token{wS, usdc}, IsBuffer: []bool{true}, AmountIn: e18, AmountOut: e6},
		},
	}
}

func TestEncodeSwapV3ScalesMinOutPerPath(t *testing.T) {
	quote := swapQuote(3, waUSDC.Hex(), bptAddr.Hex())
	data, err := NewEncoder(SonicAddresses).EncodeSwap(pipeline.SwapCall{
		Quote: quote, MinOut: mul(e6, 2), Sender: userAddr, Recipient: userAddr, Deadline: big.NewInt(1_900_000_000),
	})
	require.NoError(t, err)

	values := decodeCall(t, batchRouterV3ABI, "swapExactIn", data)
	paths := *abi.ConvertType(values[0], new([]swapPathExactIn)).(*[]swapPathExactIn)
	require.Len(t, paths, 2)
	require.Equal(t, "1500000", paths[0].MinAmountOut.String())
	require.Equal(t, "500000", paths[1].MinAmountOut.String())
	require.Equal(t, waUSDC, paths[0].Steps[0].Pool)
	require.True(t, paths[1].Steps[0].IsBuffer)
	require.Equal(t, int64(1_900_000_000), values[1].(*big.Int).Int64())
}

func TestEncodeSwapV2Limits(t *testing.T) {
	quote := swapQuote(2, v2PoolID, v2PoolID)
	data, err := NewEncoder(SonicAddresses).EncodeSwap(pipeline.SwapCall{
		Quote: quote, MinOut: mul(e6, 2), Sender: userAddr, Recipient: userAddr, Deadline: big.NewInt(1),
	})
	require.NoError(t, err)

	values := decodeCall(t, vaultV2ABI, "batchSwap", data)
	require.Equal(t, swapKindGivenIn, values[0])
	require.Equal(t, []common.Address{wS.Address, usdc.Address}, values[2])
	limits := values[4].([]*big.Int)
	require.Equal(t, mul(e18, 2).String(), limits[0].String())
	require.Equal(t, new(big.Int).Neg(mul(e6, 2)).String(), limits[1].String())
}

func TestEncodePermitCall(t *testing.T) {
	enc := NewEncoder(SonicAddresses)
	inner := []byte{0xde, 0xad, 0xbe, 0xef}
	sig := bytes.Repeat([]byte{0x01}, 65)

	t.Run("permit2 batch", func(t *testing.T) {
		permit := &model.SignedPermit{
			Kind: model.PermitBatch2, Owner: userAddr, Spender: SonicAddresses.V3Router, Deadline: big.NewInt(99),
			Details:   []model.PermitDetail{{Token: wS.Address, Amount: e18, Expiration: big.NewInt(99), Nonce: big.NewInt(4)}},
			Signature: sig,
		}
		data, err := enc.EncodePermitCall(permit, inner)
		require.NoError(t, err)

		values := decodeCall(t, routerV3ABI, "permitBatchAndCall", data)
		batch := *abi.ConvertType(values[2], new(permit2Batch)).(*permit2Batch)
		require.Equal(t, SonicAddresses.V3Router, batch.Spender)
		require.Len(t, batch.Details, 1)
		require.Equal(t, int64(4), batch.Details[0].Nonce.Int64())
		require.Equal(t, sig, values[3])
		require.Equal(t, [][]byte{inner}, values[4])
	})

	t.Run("erc20 share permit", func(t *testing.T) {
		permit := &model.SignedPermit{
			Kind: model.PermitERC20, Owner: userAddr, Spender: SonicAddresses.V3Router, Deadline: big.NewInt(99),
			Details:   []model.PermitDetail{{Token: bptAddr, Amount: e18, Expiration: big.NewInt(99), Nonce: big.NewInt(2)}},
			Signature: sig,
		}
		data, err := enc.EncodePermitCall(permit, inner)
		require.NoError(t, err)

		values := decodeCall(t, routerV3ABI, "permitBatchAndCall", data)
		approvals := *abi.ConvertType(values[0], new([]permitApproval)).(*[]permitApproval)
		require.Len(t, approvals, 1)
		require.Equal(t, bptAddr, approvals[0].Token)
		require.Equal(t, userAddr, approvals[0].Owner)
		require.Equal(t, [][]byte{sig}, values[1])
		require.Equal(t, [][]byte{inner}, values[4])
	})

	t.Run("erc20 permit needs one token", func(t *testing.T) {
		_, err := enc.EncodePermitCall(&model.SignedPermit{Kind: model.PermitERC20}, inner)
		require.Error(t, err)
	})
}
