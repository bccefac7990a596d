package pipeline

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"liquidityBuilder/internal/model"
)

var (
	poolBPT   = common.HexToAddress("0x2c2e9f0a8b3f6a2a0b6f8e1a7a4c6e2d3b9f1a01")
	tokenX    = common.HexToAddress("0x29219dd400f2bf60e5a23d13be72b486d4038894")
	tokenY    = common.HexToAddress("0x039e2fb66102314ce7b64ce5ce3e5183bc94ad38")
	foreign   = common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	userAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	vaultAddr = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	router    = common.HexToAddress("0x6077b9801b5627a65a5eee70697c793751d1a71c")
	permit2   = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	staking   = common.HexToAddress("0xE5DA20F15420aD15DE0fa650600aFc998bbE3955")
	stakePool = common.HexToAddress("0xD5F7FC8ba92756a34693bAA386Edcc8Dd5B3F141")
)

// trace records the order in which collaborators are reached.
type trace struct {
	steps []string
}

func (t *trace) add(step string) {
	if t != nil {
		t.steps = append(t.steps, step)
	}
}

func (t *trace) index(step string) int {
	for i, s := range t.steps {
		if s == step {
			return i
		}
	}
	return -1
}

type fakeBalances struct {
	trace  *trace
	tokens map[common.Address]*big.Int
	native *big.Int
	calls  int
}

func (f *fakeBalances) TokenBalance(_ context.Context, token, _ common.Address) (*big.Int, error) {
	f.calls++
	f.trace.add("balance")
	if v, ok := f.tokens[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeBalances) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	f.calls++
	f.trace.add("native")
	if f.native == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(f.native), nil
}

type fakePools struct {
	trace       *trace
	pool        *model.PoolState
	quote       *model.Quote
	impact      decimal.Decimal
	advisoryErr error
	fetchErr    error
	quoteErr    error

	fetchCalls    int
	quoteCalls    int
	impactCalls   int
	advisoryCalls int
}

func (f *fakePools) FetchPoolState(context.Context, string, bool) (*model.PoolState, error) {
	f.fetchCalls++
	f.trace.add("fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pool, nil
}

func (f *fakePools) Quote(context.Context, *Request, *model.PoolState) (*model.Quote, error) {
	f.quoteCalls++
	f.trace.add("quote")
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakePools) PriceImpact(_ context.Context, _ *Request, _ *model.PoolState, quote *model.Quote) (decimal.Decimal, error) {
	if quote == nil {
		f.advisoryCalls++
		f.trace.add("advisory")
		if f.advisoryErr != nil {
			return decimal.Zero, f.advisoryErr
		}
		return f.impact, nil
	}
	f.impactCalls++
	f.trace.add("impact")
	return f.impact, nil
}

type fakeTokens map[string]model.Token

func (f fakeTokens) ResolveToken(_ context.Context, identifier string) (*model.Token, error) {
	if token, ok := f[strings.ToLower(identifier)]; ok {
		return &token, nil
	}
	return nil, nil
}

type fakeSwaps struct {
	quote *model.SwapQuote
	calls int
}

func (f *fakeSwaps) QuoteSwap(context.Context, model.Token, model.Token, *big.Int) (*model.SwapQuote, error) {
	f.calls++
	if f.quote == nil {
		return nil, errors.New("no route")
	}
	return f.quote, nil
}

type fakeEncoder struct {
	trace       *trace
	liquidity   []LiquidityCall
	swaps       []SwapCall
	permitCalls int
}

func (f *fakeEncoder) LiquidityTarget(req *Request) common.Address {
	if req.Family == FamilyV2 {
		return vaultAddr
	}
	return router
}

func (f *fakeEncoder) SwapTarget(family Family) common.Address {
	if family == FamilyV2 {
		return vaultAddr
	}
	return router
}

func (f *fakeEncoder) EncodeLiquidity(call LiquidityCall) ([]byte, error) {
	f.trace.add("encode")
	f.liquidity = append(f.liquidity, call)
	return []byte{0x01, 0x02}, nil
}

func (f *fakeEncoder) EncodeSwap(call SwapCall) ([]byte, error) {
	f.trace.add("encode")
	f.swaps = append(f.swaps, call)
	return []byte{0x03}, nil
}

func (f *fakeEncoder) EncodePermitCall(_ *model.SignedPermit, inner []byte) ([]byte, error) {
	f.permitCalls++
	return append([]byte{0xff}, inner...), nil
}

func (f *fakeEncoder) EncodeDeposit() ([]byte, error) { return []byte{0xd0}, nil }

func (f *fakeEncoder) EncodeUndelegate(amount *big.Int) ([]byte, error) {
	return append([]byte{0xd1}, amount.Bytes()...), nil
}

func (f *fakeEncoder) EncodeWithdraw(id *big.Int, _ bool) ([]byte, error) {
	return append([]byte{0xd2}, id.Bytes()...), nil
}

type fakeNonces struct{}

func (fakeNonces) Permit2Nonce(context.Context, common.Address, common.Address, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(7), nil
}

func (fakeNonces) PermitNonce(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(2), nil
}

type fakeSigner struct {
	trace *trace
	err   error
	typed []*apitypes.TypedData
}

func (f *fakeSigner) Address() common.Address { return userAddr }

func (f *fakeSigner) SignTypedData(_ context.Context, typed *apitypes.TypedData) ([]byte, error) {
	f.trace.add("sign")
	f.typed = append(f.typed, typed)
	if f.err != nil {
		return nil, f.err
	}
	return make([]byte, 65), nil
}

func amount(addr common.Address, decimals uint8, raw int64) model.TokenAmount {
	return model.NewTokenAmount(addr, decimals, big.NewInt(raw))
}

func testPool(version int) *model.PoolState {
	return &model.PoolState{
		ID:              "0x2c2e9f0a8b3f6a2a0b6f8e1a7a4c6e2d3b9f1a01000200000000000000000001",
		Address:         poolBPT,
		Name:            "Stable Pool",
		Type:            model.PoolTypeWeighted,
		ProtocolVersion: version,
		Tokens: []model.PoolToken{
			{Address: tokenX, Symbol: "USDC", Decimals: 6, Index: 0},
			{Address: tokenY, Symbol: "wS", Decimals: 18, Index: 1},
		},
		TotalShares: big.NewInt(1_000_000_000),
	}
}

type harness struct {
	trace    *trace
	balances *fakeBalances
	pools    *fakePools
	tokens   fakeTokens
	swaps    *fakeSwaps
	encoder  *fakeEncoder
	signer   *fakeSigner
	pipeline *Pipeline
}

func newHarness(version int, withSigner bool) *harness {
	tr := &trace{}
	h := &harness{
		trace:    tr,
		balances: &fakeBalances{trace: tr, tokens: map[common.Address]*big.Int{}},
		pools:    &fakePools{trace: tr, pool: testPool(version)},
		tokens:   fakeTokens{},
		swaps:    &fakeSwaps{},
		encoder:  &fakeEncoder{trace: tr},
	}
	deps := Deps{
		Balances: h.balances,
		Pools:    h.pools,
		Tokens:   h.tokens,
		Swaps:    h.swaps,
		Encoder:  h.encoder,
		Staking:  h.encoder,
		Nonces:   fakeNonces{},
	}
	if withSigner {
		h.signer = &fakeSigner{trace: tr}
		deps.Signer = h.signer
	}
	h.pipeline = New(Config{
		ChainID:         big.NewInt(146),
		MaxPriceImpact:  decimal.NewFromInt(5),
		Permit2:         permit2,
		StakingContract: staking,
		StakingPool:     stakePool,
	}, deps)
	return h
}
