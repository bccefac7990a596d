package balancer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

// Encoder builds calldata for the vault and routers at addrs.
type Encoder struct {
	addrs Addresses
}

func NewEncoder(addrs Addresses) *Encoder {
	return &Encoder{addrs: addrs}
}

// LiquidityTarget returns the contract a liquidity call is sent to.
func (e *Encoder) LiquidityTarget(req *pipeline.Request) common.Address {
	switch {
	case req.Family == pipeline.FamilyV2:
		return e.addrs.V2Vault
	case req.Boosted():
		return e.addrs.V3CompositeRouter
	default:
		return e.addrs.V3Router
	}
}

// SwapTarget returns the contract a swap is sent to.
func (e *Encoder) SwapTarget(family pipeline.Family) common.Address {
	if family == pipeline.FamilyV2 {
		return e.addrs.V2Vault
	}
	return e.addrs.V3BatchRouter
}

// EncodeLiquidity writes the bounded amounts of call into protocol calldata.
func (e *Encoder) EncodeLiquidity(call pipeline.LiquidityCall) ([]byte, error) {
	if call.Request == nil || call.Pool == nil || call.Quote == nil {
		return nil, errors.New("incomplete liquidity call")
	}
	req := call.Request
	switch {
	case req.Family == pipeline.FamilyV2 && req.Action == pipeline.ActionAdd:
		return e.encodeJoinV2(call)
	case req.Family == pipeline.FamilyV2:
		return e.encodeExitV2(call)
	case req.Boosted():
		return e.encodeBoosted(call)
	case req.Action == pipeline.ActionAdd:
		return e.encodeAddV3(call)
	default:
		return e.encodeRemoveV3(call)
	}
}

func (e *Encoder) encodeJoinV2(call pipeline.LiquidityCall) ([]byte, error) {
	pool, quote, req := call.Pool, call.Quote, call.Request
	layout := newV2Layout(pool)
	poolID, err := pool.PoolID32()
	if err != nil {
		return nil, err
	}

	join := joinRequest{Assets: layout.assets}
	switch req.Operation {
	case pipeline.OpUnbalanced:
		if join.MaxAmountsIn, err = layout.slots(quote.AmountsIn); err != nil {
			return nil, err
		}
		join.UserData, err = userDataExactTokensIn(layout.dropBpt(join.MaxAmountsIn), boundAmount(call.Bound, 0))
	case pipeline.OpProportional:
		if join.MaxAmountsIn, err = layout.slots(call.Bound.Amounts); err != nil {
			return nil, err
		}
		join.UserData, err = userDataAllTokensInForExactBptOut(quote.BptOut.Amount())
	case pipeline.OpSingleTokenExactOut:
		idx := layout.assetIndex(req.Token)
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not a pool asset", req.Token.Hex())
		}
		if join.MaxAmountsIn, err = layout.slots(call.Bound.Amounts); err != nil {
			return nil, err
		}
		join.UserData, err = userDataTokenInForExactBptOut(quote.BptOut.Amount(), layout.userIndex(idx))
	default:
		return nil, fmt.Errorf("unsupported v2 add %s", req.Operation)
	}
	if err != nil {
		return nil, err
	}
	return pack(vaultV2ABI, "joinPool", [32]byte(poolID), call.Sender, call.Recipient, join)
}

func (e *Encoder) encodeExitV2(call pipeline.LiquidityCall) ([]byte, error) {
	pool, quote, req := call.Pool, call.Quote, call.Request
	layout := newV2Layout(pool)
	kinds := exitKindsFor(pool.Type)
	poolID, err := pool.PoolID32()
	if err != nil {
		return nil, err
	}

	exit := exitRequest{Assets: layout.assets}
	switch req.Operation {
	case pipeline.OpProportional:
		if exit.MinAmountsOut, err = layout.slots(call.Bound.Amounts); err != nil {
			return nil, err
		}
		exit.UserData, err = userDataExactBptInForTokensOut(kinds, quote.BptIn.Amount())
	case pipeline.OpSingleTokenExactIn:
		idx := layout.assetIndex(req.Token)
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not a pool asset", req.Token.Hex())
		}
		if exit.MinAmountsOut, err = layout.slots(call.Bound.Amounts); err != nil {
			return nil, err
		}
		exit.UserData, err = userDataExactBptInForOneTokenOut(kinds, quote.BptIn.Amount(), layout.userIndex(idx))
	case pipeline.OpSingleTokenExactOut, pipeline.OpUnbalanced:
		if exit.MinAmountsOut, err = layout.slots(quote.AmountsOut); err != nil {
			return nil, err
		}
		exit.UserData, err = userDataBptInForExactTokensOut(kinds, layout.dropBpt(exit.MinAmountsOut), boundAmount(call.Bound, 0))
	default:
		return nil, fmt.Errorf("unsupported v2 remove %s", req.Operation)
	}
	if err != nil {
		return nil, err
	}
	return pack(vaultV2ABI, "exitPool", [32]byte(poolID), call.Sender, call.Recipient, exit)
}

func (e *Encoder) encodeAddV3(call pipeline.LiquidityCall) ([]byte, error) {
	pool, quote, req := call.Pool, call.Quote, call.Request
	switch req.Operation {
	case pipeline.OpUnbalanced:
		exact, err := v3Slots(pool, quote.AmountsIn)
		if err != nil {
			return nil, err
		}
		return pack(routerV3ABI, "addLiquidityUnbalanced", pool.Address, exact, boundAmount(call.Bound, 0), false, []byte{})
	case pipeline.OpProportional:
		maxIn, err := v3Slots(pool, call.Bound.Amounts)
		if err != nil {
			return nil, err
		}
		return pack(routerV3ABI, "addLiquidityProportional", pool.Address, maxIn, quote.BptOut.Amount(), false, []byte{})
	case pipeline.OpSingleTokenExactOut:
		maxIn, ok := model.FindAmount(call.Bound.Amounts, req.Token)
		if !ok {
			return nil, fmt.Errorf("no bound for token %s", req.Token.Hex())
		}
		return pack(routerV3ABI, "addLiquiditySingleTokenExactOut", pool.Address, req.Token, maxIn.Amount(), quote.BptOut.Amount(), false, []byte{})
	}
	return nil, fmt.Errorf("unsupported v3 add %s", req.Operation)
}

func (e *Encoder) encodeRemoveV3(call pipeline.LiquidityCall) ([]byte, error) {
	pool, quote, req := call.Pool, call.Quote, call.Request
	switch req.Operation {
	case pipeline.OpProportional:
		minOut, err := v3Slots(pool, call.Bound.Amounts)
		if err != nil {
			return nil, err
		}
		return pack(routerV3ABI, "removeLiquidityProportional", pool.Address, quote.BptIn.Amount(), minOut, false, []byte{})
	case pipeline.OpSingleTokenExactIn:
		minOut, ok := model.FindAmount(call.Bound.Amounts, req.Token)
		if !ok {
			return nil, fmt.Errorf("no bound for token %s", req.Token.Hex())
		}
		return pack(routerV3ABI, "removeLiquiditySingleTokenExactIn", pool.Address, quote.BptIn.Amount(), req.Token, minOut.Amount(), false, []byte{})
	case pipeline.OpSingleTokenExactOut:
		if len(quote.AmountsOut) != 1 {
			return nil, fmt.Errorf("exact-out remove needs one amount, got %d", len(quote.AmountsOut))
		}
		out := quote.AmountsOut[0]
		return pack(routerV3ABI, "removeLiquiditySingleTokenExactOut", pool.Address, boundAmount(call.Bound, 0), out.Address, out.Amount(), false, []byte{})
	}
	return nil, fmt.Errorf("unsupported v3 remove %s", req.Operation)
}

func (e *Encoder) encodeBoosted(call pipeline.LiquidityCall) ([]byte, error) {
	pool, quote, req := call.Pool, call.Quote, call.Request
	wrap := quote.WrapUnderlying
	if len(wrap) != len(pool.Tokens) {
		wrap = make([]bool, len(pool.Tokens))
	}
	switch {
	case req.Action == pipeline.ActionAdd && req.Operation == pipeline.OpBoostedUnbalanced:
		exact, err := userSlots(pool, wrap, quote.AmountsIn)
		if err != nil {
			return nil, err
		}
		return pack(compositeRouterABI, "addLiquidityUnbalancedToERC4626Pool", pool.Address, wrap, exact, boundAmount(call.Bound, 0), false, []byte{})
	case req.Action == pipeline.ActionAdd && req.Operation == pipeline.OpBoostedProportional:
		maxIn, err := userSlots(pool, wrap, call.Bound.Amounts)
		if err != nil {
			return nil, err
		}
		return pack(compositeRouterABI, "addLiquidityProportionalToERC4626Pool", pool.Address, wrap, maxIn, quote.BptOut.Amount(), false, []byte{})
	case req.Action == pipeline.ActionRemove && req.Operation == pipeline.OpBoostedProportional:
		minOut, err := userSlots(pool, wrap, call.Bound.Amounts)
		if err != nil {
			return nil, err
		}
		return pack(compositeRouterABI, "removeLiquidityProportionalFromERC4626Pool", pool.Address, wrap, quote.BptIn.Amount(), minOut, false, []byte{})
	}
	return nil, fmt.Errorf("unsupported boosted %s %s", req.Action, req.Operation)
}

// userSlots is the inverse of userAmounts: amounts named by user tokens back into pool order.
func userSlots(pool *model.PoolState, wrap []bool, amounts []model.TokenAmount) ([]*big.Int, error) {
	out := zeros(len(pool.Tokens))
	for _, amount := range amounts {
		idx := pool.TokenIndex(amount.Address)
		if idx < 0 {
			idx = pool.UnderlyingIndex(amount.Address)
		}
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not in pool", amount.Address.Hex())
		}
		if wrap[idx] != (pool.Tokens[idx].Address != amount.Address) {
			return nil, fmt.Errorf("token %s does not match the wrap flag of slot %d", amount.Address.Hex(), idx)
		}
		out[idx] = new(big.Int).Set(amount.Amount())
	}
	return out, nil
}

type batchSwapStep struct {
	PoolID        [32]byte `abi:"poolId"`
	AssetInIndex  *big.Int
	AssetOutIndex *big.Int
	Amount        *big.Int
	UserData      []byte
}

type fundManagement struct {
	Sender              common.Address
	FromInternalBalance bool
	Recipient           common.Address
	ToInternalBalance   bool
}

type swapPathStep struct {
	Pool     common.Address
	TokenOut common.Address
	IsBuffer bool
}

type swapPathExactIn struct {
	TokenIn       common.Address
	Steps         []swapPathStep
	ExactAmountIn *big.Int
	MinAmountOut  *big.Int
}

// swapKindGivenIn is the vault's exact-in swap kind.
const swapKindGivenIn uint8 = 0

// EncodeSwap builds a v2 batchSwap or a v3 batch router swapExactIn from the routed quote.
func (e *Encoder) EncodeSwap(call pipeline.SwapCall) ([]byte, error) {
	quote := call.Quote
	if quote == nil || len(quote.Paths) == 0 {
		return nil, errors.New("swap quote has no paths")
	}
	if call.MinOut == nil {
		return nil, errors.New("swap call has no minimum output")
	}
	switch pipeline.FamilyForVersion(quote.ProtocolVersion) {
	case pipeline.FamilyV2:
		return e.encodeBatchSwapV2(call)
	case pipeline.FamilyV3:
		return e.encodeSwapExactInV3(call)
	default:
		return nil, fmt.Errorf("unsupported swap protocol version %d", quote.ProtocolVersion)
	}
}

func (e *Encoder) encodeBatchSwapV2(call pipeline.SwapCall) ([]byte, error) {
	quote := call.Quote
	var assets []common.Address
	assetIndex := func(addr common.Address) *big.Int {
		for i, a := range assets {
			if a == addr {
				return big.NewInt(int64(i))
			}
		}
		assets = append(assets, addr)
		return big.NewInt(int64(len(assets) - 1))
	}

	var steps []batchSwapStep
	for _, path := range quote.Paths {
		for i, id := range path.Pools {
			poolID, err := hexutil.Decode(id)
			if err != nil || len(poolID) != common.HashLength {
				return nil, fmt.Errorf("invalid v2 pool id %s", id)
			}
			amount := new(big.Int)
			if i == 0 {
				amount.Set(path.AmountIn)
			}
			steps = append(steps, batchSwapStep{
				PoolID:        [32]byte(common.BytesToHash(poolID)),
				AssetInIndex:  assetIndex(path.Tokens[i].Address),
				AssetOutIndex: assetIndex(path.Tokens[i+1].Address),
				Amount:        amount,
				UserData:      []byte{},
			})
		}
	}

	limits := zeros(len(assets))
	for i, a := range assets {
		switch a {
		case quote.TokenIn.Address:
			limits[i] = new(big.Int).Set(quote.AmountIn)
		case quote.TokenOut.Address:
			limits[i] = new(big.Int).Neg(call.MinOut)
		}
	}
	funds := fundManagement{Sender: call.Sender, Recipient: call.Recipient}
	return pack(vaultV2ABI, "batchSwap", swapKindGivenIn, steps, assets, funds, limits, call.Deadline)
}

func (e *Encoder) encodeSwapExactInV3(call pipeline.SwapCall) ([]byte, error) {
	quote := call.Quote
	paths := make([]swapPathExactIn, 0, len(quote.Paths))
	for _, path := range quote.Paths {
		if len(path.Tokens) == 0 {
			return nil, errors.New("swap path has no tokens")
		}
		p := swapPathExactIn{
			TokenIn:       path.Tokens[0].Address,
			ExactAmountIn: new(big.Int).Set(path.AmountIn),
			MinAmountOut:  pathMinOut(path.AmountOut, call.MinOut, quote.AmountOut),
		}
		for i, pool := range path.Pools {
			if !common.IsHexAddress(pool) {
				return nil, fmt.Errorf("invalid v3 pool address %s", pool)
			}
			p.Steps = append(p.Steps, swapPathStep{
				Pool:     common.HexToAddress(pool),
				TokenOut: path.Tokens[i+1].Address,
				IsBuffer: i < len(path.IsBuffer) && path.IsBuffer[i],
			})
		}
		paths = append(paths, p)
	}
	return pack(batchRouterV3ABI, "swapExactIn", paths, call.Deadline, false, []byte{})
}

// pathMinOut scales the overall minimum down to one path's share of the output.
func pathMinOut(pathOut, minOut, totalOut *big.Int) *big.Int {
	if totalOut == nil || totalOut.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(pathOut, minOut)
	return out.Quo(out, totalOut)
}

type permitApproval struct {
	Token    common.Address
	Owner    common.Address
	Spender  common.Address
	Amount   *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

type permit2Detail struct {
	Token      common.Address
	Amount     *big.Int
	Expiration *big.Int
	Nonce      *big.Int
}

type permit2Batch struct {
	Details     []permit2Detail
	Spender     common.Address
	SigDeadline *big.Int
}

// EncodePermitCall wraps inner into permitBatchAndCall so one transaction consumes the permit
// and runs the operation.
func (e *Encoder) EncodePermitCall(permit *model.SignedPermit, inner []byte) ([]byte, error) {
	if permit == nil {
		return nil, errors.New("permit is nil")
	}
	var (
		erc20Permits = []permitApproval{}
		erc20Sigs    = [][]byte{}
		batch        = permit2Batch{Details: []permit2Detail{}, SigDeadline: new(big.Int)}
		batchSig     = []byte{}
	)
	switch permit.Kind {
	case model.PermitERC20:
		if len(permit.Details) != 1 {
			return nil, fmt.Errorf("erc20 permit needs one detail, got %d", len(permit.Details))
		}
		d := permit.Details[0]
		erc20Permits = append(erc20Permits, permitApproval{
			Token:    d.Token,
			Owner:    permit.Owner,
			Spender:  permit.Spender,
			Amount:   d.Amount,
			Nonce:    d.Nonce,
			Deadline: permit.Deadline,
		})
		erc20Sigs = append(erc20Sigs, permit.Signature)
	case model.PermitBatch2:
		for _, d := range permit.Details {
			batch.Details = append(batch.Details, permit2Detail{
				Token:      d.Token,
				Amount:     d.Amount,
				Expiration: d.Expiration,
				Nonce:      d.Nonce,
			})
		}
		batch.Spender = permit.Spender
		batch.SigDeadline = permit.Deadline
		batchSig = permit.Signature
	default:
		return nil, fmt.Errorf("unknown permit kind %d", permit.Kind)
	}
	return pack(routerV3ABI, "permitBatchAndCall", erc20Permits, erc20Sigs, batch, batchSig, [][]byte{inner})
}

func boundAmount(bound model.Bound, i int) *big.Int {
	if i < len(bound.Amounts) {
		return bound.Amounts[i].Amount()
	}
	return new(big.Int)
}

func pack(l *lazyABI, method string, args ...interface{}) ([]byte, error) {
	parsed, err := l.get()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}
