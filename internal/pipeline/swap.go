package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
)

func (p *Pipeline) runSwap(ctx context.Context, req *Request) (*model.Response, error) {
	tokenIn, err := p.resolveToken(ctx, req.TokenIn)
	if err != nil {
		return nil, err
	}
	tokenOut, err := p.resolveToken(ctx, req.TokenOut)
	if err != nil {
		return nil, err
	}

	raw, err := ToRawAmount(req.SwapAmount, tokenIn.Decimals)
	if err != nil {
		return nil, err
	}
	amountIn := model.NewTokenAmount(tokenIn.Address, tokenIn.Decimals, raw)
	if err := p.balances.CheckToken(ctx, req.User, amountIn); err != nil {
		return nil, err
	}

	quote, err := p.deps.Swaps.QuoteSwap(ctx, *tokenIn, *tokenOut, raw)
	if err != nil {
		return nil, Wrap(KindQuote, err, "quote swap")
	}
	if err := p.guard.Enforce(quote.PriceImpact); err != nil {
		return nil, err
	}
	family := FamilyForVersion(quote.ProtocolVersion)
	if family == FamilyUnknown {
		return nil, Errorf(KindQuote, "unsupported swap protocol version %d", quote.ProtocolVersion)
	}

	minOut := req.Slippage.MinOut(quote.AmountOut)
	bound := model.Bound{
		Kind:    model.BoundMinOut,
		Amounts: []model.TokenAmount{model.NewTokenAmount(tokenOut.Address, tokenOut.Decimals, minOut)},
	}
	target := p.deps.Encoder.SwapTarget(family)
	deadline := p.deadline()

	auth, err := p.authorize(ctx, authRequest{
		family:   family,
		target:   target,
		owner:    req.User,
		exact:    []model.TokenAmount{amountIn},
		signed:   []model.TokenAmount{amountIn},
		kind:     model.PermitBatch2,
		deadline: deadline,
	})
	if err != nil {
		return nil, err
	}

	data, err := p.deps.Encoder.EncodeSwap(SwapCall{
		Quote:     quote,
		MinOut:    minOut,
		Sender:    req.User,
		Recipient: req.User,
		Deadline:  deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap: %w", err)
	}
	if auth.permit != nil {
		if data, err = p.deps.Encoder.EncodePermitCall(auth.permit, data); err != nil {
			return nil, fmt.Errorf("encode permit call: %w", err)
		}
	}

	p.logger.Info("swap call built",
		zap.String("tokenIn", tokenIn.Address.Hex()),
		zap.String("tokenOut", tokenOut.Address.Hex()),
		zap.Int("paths", len(quote.Paths)),
	)
	return &model.Response{
		Transaction:       model.TransactionCall{To: target, Data: data, Value: new(big.Int), Bound: bound},
		Authorization:     auth.strategy,
		Approvals:         auth.approvals,
		PriceImpact:       quote.PriceImpact.StringFixed(2),
		TokenIn:           tokenIn.Address.Hex(),
		TokenOut:          tokenOut.Address.Hex(),
		AmountIn:          raw.String(),
		ExpectedAmountOut: quote.AmountOut.String(),
		MinAmountOut:      minOut.String(),
	}, nil
}

func (p *Pipeline) resolveToken(ctx context.Context, identifier string) (*model.Token, error) {
	token, err := p.deps.Tokens.ResolveToken(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("resolve token %s: %w", identifier, err)
	}
	if token == nil {
		return nil, Errorf(KindTokenNotFound, "Token not found: %s", identifier)
	}
	return token, nil
}
