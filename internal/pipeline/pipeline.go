package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
)

// DefaultDeadlineTTL bounds how long a built call and its permit stay valid.
const DefaultDeadlineTTL = 30 * time.Minute

// Pipeline turns typed requests into submittable transaction descriptions. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg      Config
	deps     Deps
	balances *BalanceVerifier
	guard    *ImpactGuard
	logger   *zap.Logger
}

func New(cfg Config, deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.DeadlineTTL <= 0 {
		cfg.DeadlineTTL = DefaultDeadlineTTL
	}
	if cfg.ChainID == nil {
		cfg.ChainID = new(big.Int)
	}
	return &Pipeline{
		cfg:      cfg,
		deps:     deps,
		balances: NewBalanceVerifier(deps.Balances),
		guard:    NewImpactGuard(cfg.MaxPriceImpact, deps.Logger),
		logger:   deps.Logger,
	}
}

// Run executes req. Every failure aborts the whole request; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*model.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch {
	case req.Operation.IsLiquidity():
		return p.runLiquidity(ctx, req)
	case req.Operation == OpSwap:
		return p.runSwap(ctx, req)
	default:
		return p.runStake(ctx, req)
	}
}

func (p *Pipeline) deadline() *big.Int {
	return big.NewInt(p.deps.Now().Add(p.cfg.DeadlineTTL).Unix())
}

func (p *Pipeline) runLiquidity(ctx context.Context, req *Request) (*model.Response, error) {
	plan, ok := PlanFor(req.Action, req.Operation, req.Family)
	if !ok {
		return nil, Errorf(KindInvalidRequest, "%s %s is not supported for %s pools", req.Action, req.Operation, req.Family)
	}
	log := p.logger.With(
		zap.String("action", req.Action.String()),
		zap.String("operation", req.Operation.String()),
		zap.String("family", req.Family.String()),
		zap.String("pool", req.PoolID),
	)

	if plan.Balance == BalanceBefore {
		if err := p.balances.CheckTokens(ctx, req.User, requestInputs(req)); err != nil {
			return nil, err
		}
	}

	pool, err := p.deps.Pools.FetchPoolState(ctx, req.PoolID, plan.Boosted)
	if err != nil {
		return nil, Wrap(KindPoolNotFound, err, "fetch pool "+req.PoolID)
	}
	if pool == nil {
		return nil, Errorf(KindPoolNotFound, "pool %s not found", req.PoolID)
	}
	if family := FamilyForVersion(pool.ProtocolVersion); family != req.Family {
		return nil, Errorf(KindInvalidRequest, "pool %s is a v%d pool, not %s", req.PoolID, pool.ProtocolVersion, req.Family)
	}

	if err := checkMembership(plan.Membership, req, pool); err != nil {
		return nil, err
	}

	if plan.AdvisoryImpact {
		p.guard.Advisory(func() (decimal.Decimal, error) {
			return p.deps.Pools.PriceImpact(ctx, req, pool, nil)
		})
	}

	quote, err := p.deps.Pools.Quote(ctx, req, pool)
	if err != nil {
		return nil, Wrap(KindQuote, err, "quote")
	}

	exact := quoteInputs(req, quote)
	if plan.Balance == BalanceAfter {
		if err := p.balances.CheckTokens(ctx, req.User, exact); err != nil {
			return nil, err
		}
	}

	var impact decimal.Decimal
	if plan.EnforceImpact {
		impact, err = p.deps.Pools.PriceImpact(ctx, req, pool, quote)
		if err != nil {
			return nil, Wrap(KindQuote, err, "price impact")
		}
		if err := p.guard.Enforce(impact); err != nil {
			return nil, err
		}
	}

	bound := req.Slippage.Bound(plan.Bound, boundedSide(req.Action, plan.Bound, quote))
	signed := exact
	if plan.Bound == model.BoundMaxIn {
		signed = bound.Amounts
	}

	target := p.deps.Encoder.LiquidityTarget(req)
	deadline := p.deadline()
	permitKind := model.PermitBatch2
	if req.Action == ActionRemove {
		permitKind = model.PermitERC20
	}
	auth, err := p.authorize(ctx, authRequest{
		family:   req.Family,
		target:   target,
		owner:    req.User,
		exact:    exact,
		signed:   signed,
		kind:     permitKind,
		token:    pool.Name,
		deadline: deadline,
	})
	if err != nil {
		return nil, err
	}

	data, err := p.deps.Encoder.EncodeLiquidity(LiquidityCall{
		Request:   req,
		Pool:      pool,
		Quote:     quote,
		Bound:     bound,
		Sender:    req.User,
		Recipient: req.User,
		Deadline:  deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", req.Action, req.Operation, err)
	}
	if auth.permit != nil {
		if data, err = p.deps.Encoder.EncodePermitCall(auth.permit, data); err != nil {
			return nil, fmt.Errorf("encode permit call: %w", err)
		}
	}

	resp := &model.Response{
		Transaction:   model.TransactionCall{To: target, Data: data, Value: new(big.Int), Bound: bound},
		Authorization: auth.strategy,
		Approvals:     auth.approvals,
		PoolAddress:   pool.Address.Hex(),
	}
	if plan.EnforceImpact {
		resp.PriceImpact = impact.StringFixed(2)
	}
	assembleLiquidity(resp, req, quote, bound)

	log.Info("liquidity call built",
		zap.String("to", target.Hex()),
		zap.String("authorization", auth.strategy),
	)
	return resp, nil
}

// requestInputs are the amounts the user spends that are known before quoting.
func requestInputs(req *Request) []model.TokenAmount {
	if len(req.Amounts) > 0 {
		if req.Action == ActionAdd {
			return req.Amounts
		}
		return nil
	}
	if req.Amount == nil {
		return nil
	}
	return []model.TokenAmount{*req.Amount}
}

// quoteInputs are the exact amounts the quote says the user spends.
func quoteInputs(req *Request, quote *model.Quote) []model.TokenAmount {
	if req.Action == ActionAdd {
		return quote.AmountsIn
	}
	return []model.TokenAmount{quote.BptIn}
}

func boundedSide(action Action, kind model.BoundKind, quote *model.Quote) []model.TokenAmount {
	switch {
	case action == ActionAdd && kind == model.BoundMinOut:
		return []model.TokenAmount{quote.BptOut}
	case action == ActionAdd:
		return quote.AmountsIn
	case kind == model.BoundMinOut:
		return quote.AmountsOut
	default:
		return []model.TokenAmount{quote.BptIn}
	}
}

// checkMembership runs before any quote call so foreign tokens never reach the resolver.
func checkMembership(mode Membership, req *Request, pool *model.PoolState) error {
	if req.Action == ActionRemove && req.Amount != nil && bptDenominated(req) && req.Amount.Address != pool.Address {
		return Errorf(KindTokenNotInPool, "Token %s is not the share token of pool %s", req.Amount.Address.Hex(), pool.Address.Hex())
	}
	if mode == MembershipSkip {
		return nil
	}
	targets := membershipTargets(req)
	for _, addr := range targets {
		// A composable pool lists its share token among its tokens; only
		// MembershipTokensOrBpt accepts it.
		isBpt := addr == pool.Address
		var ok bool
		switch mode {
		case MembershipTokensOrBpt:
			ok = isBpt || pool.HasToken(addr)
		case MembershipTokensOrUnderlying:
			ok = !isBpt && pool.HasTokenOrUnderlying(addr)
		default:
			ok = !isBpt && pool.HasToken(addr)
		}
		if ok {
			continue
		}
		if len(targets) > 1 {
			return Errorf(KindTokenNotInPool, "Not all tokens are in the pool: %s is not in pool %s", addr.Hex(), pool.Address.Hex())
		}
		return Errorf(KindTokenNotInPool, "Token %s not found in pool %s", addr.Hex(), pool.Address.Hex())
	}
	return nil
}

func bptDenominated(req *Request) bool {
	switch req.Operation {
	case OpProportional, OpSingleTokenExactIn, OpBoostedProportional:
		return true
	}
	return false
}

func membershipTargets(req *Request) []common.Address {
	var out []common.Address
	for _, amount := range req.Amounts {
		out = append(out, amount.Address)
	}
	switch {
	case req.Action == ActionAdd && req.Amount != nil && (req.Operation == OpProportional || req.Operation == OpBoostedProportional):
		out = append(out, req.Amount.Address)
		out = append(out, req.TokensIn...)
	case req.Action == ActionAdd && req.Operation == OpSingleTokenExactOut:
		out = append(out, req.Token)
	case req.Action == ActionRemove && req.Operation == OpSingleTokenExactIn:
		out = append(out, req.Token)
	case req.Action == ActionRemove && req.Operation == OpSingleTokenExactOut && req.Amount != nil:
		out = append(out, req.Amount.Address)
	}
	return out
}

func assembleLiquidity(resp *model.Response, req *Request, quote *model.Quote, bound model.Bound) {
	if req.Action == ActionAdd {
		resp.ExpectedBptOut = quote.BptOut.Amount().String()
		resp.Tokens = model.Views(quote.AmountsIn)
		if bound.Kind == model.BoundMinOut && len(bound.Amounts) > 0 {
			resp.MinBptOut = bound.Amounts[0].Amount().String()
		} else {
			resp.MaxAmountsIn = model.Views(bound.Amounts)
		}
		return
	}

	resp.BptIn = quote.BptIn.Amount().String()
	resp.ExpectedAmountsOut = model.Views(quote.AmountsOut)
	if bound.Kind == model.BoundMaxIn && len(bound.Amounts) > 0 {
		resp.MaxBptIn = bound.Amounts[0].Amount().String()
	} else {
		resp.MinAmountsOut = model.Views(bound.Amounts)
	}
	if req.Operation == OpSingleTokenExactIn {
		resp.TokenOut = req.Token.Hex()
		if out, ok := model.FindAmount(quote.AmountsOut, req.Token); ok {
			resp.ExpectedAmountOut = out.Amount().String()
		}
		if out, ok := model.FindAmount(bound.Amounts, req.Token); ok {
			resp.MinAmountOut = out.Amount().String()
		}
	}
}
