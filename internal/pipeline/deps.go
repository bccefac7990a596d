package pipeline

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
)

// PoolResolver fetches pool state and computes quotes. Implementations must not cache state
// across calls.
type PoolResolver interface {
	FetchPoolState(ctx context.Context, poolID string, boosted bool) (*model.PoolState, error)
	Quote(ctx context.Context, req *Request, pool *model.PoolState) (*model.Quote, error)
	// PriceImpact estimates impact in percent. A nil quote asks for a pre-quote estimate.
	PriceImpact(ctx context.Context, req *Request, pool *model.PoolState, quote *model.Quote) (decimal.Decimal, error)
}

// TokenResolver maps a symbol, name or address to a token record. It returns nil, nil when
// nothing matches.
type TokenResolver interface {
	ResolveToken(ctx context.Context, identifier string) (*model.Token, error)
}

// SwapRouter quotes exact-in swaps.
type SwapRouter interface {
	QuoteSwap(ctx context.Context, tokenIn, tokenOut model.Token, amountIn *big.Int) (*model.SwapQuote, error)
}

// LiquidityCall carries everything needed to encode an add or remove call.
type LiquidityCall struct {
	Request   *Request
	Pool      *model.PoolState
	Quote     *model.Quote
	Bound     model.Bound
	Sender    common.Address
	Recipient common.Address
	Deadline  *big.Int
}

// SwapCall carries everything needed to encode a swap.
type SwapCall struct {
	Quote     *model.SwapQuote
	MinOut    *big.Int
	Sender    common.Address
	Recipient common.Address
	Deadline  *big.Int
}

// CallEncoder produces protocol calldata.
type CallEncoder interface {
	LiquidityTarget(req *Request) common.Address
	SwapTarget(family Family) common.Address
	EncodeLiquidity(call LiquidityCall) ([]byte, error)
	EncodeSwap(call SwapCall) ([]byte, error)
	// EncodePermitCall wraps inner into a single call that first consumes permit.
	EncodePermitCall(permit *model.SignedPermit, inner []byte) ([]byte, error)
}

// StakingEncoder produces staking contract calldata.
type StakingEncoder interface {
	EncodeDeposit() ([]byte, error)
	EncodeUndelegate(amount *big.Int) ([]byte, error)
	EncodeWithdraw(withdrawID *big.Int, emergency bool) ([]byte, error)
}

// NonceReader reads the replay counters permits are bound to.
type NonceReader interface {
	Permit2Nonce(ctx context.Context, permit2, owner, token, spender common.Address) (*big.Int, error)
	PermitNonce(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Signer produces EIP-712 signatures.
type Signer interface {
	Address() common.Address
	SignTypedData(ctx context.Context, typed *apitypes.TypedData) ([]byte, error)
}

// Config holds network parameters. StakingContract is the liquid staking share token: it takes
// undelegate calls and reports staked balances. StakingPool takes native deposits and withdrawals
// of matured requests.
type Config struct {
	ChainID         *big.Int
	MaxPriceImpact  decimal.Decimal
	Permit2         common.Address
	StakingContract common.Address
	StakingPool     common.Address
	DeadlineTTL     time.Duration
}

// Deps are the collaborators a Pipeline talks to. Signer may be nil, in which case permit
// operations fail with KindAuthorizationFailed.
type Deps struct {
	Balances BalanceReader
	Pools    PoolResolver
	Tokens   TokenResolver
	Swaps    SwapRouter
	Encoder  CallEncoder
	Staking  StakingEncoder
	Nonces   NonceReader
	Signer   Signer
	Logger   *zap.Logger
	Now      func() time.Time
}
