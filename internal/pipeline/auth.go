package pipeline

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/signer"
)

// authorization is the outcome of the authorization step. permit is set only for FamilyV3.
type authorization struct {
	strategy  string
	approvals []model.ApprovalInstruction
	permit    *model.SignedPermit
}

type authRequest struct {
	family   Family
	target   common.Address
	owner    common.Address
	exact    []model.TokenAmount
	signed   []model.TokenAmount
	kind     model.PermitKind
	token    string
	deadline *big.Int
}

func (p *Pipeline) authorize(ctx context.Context, in authRequest) (*authorization, error) {
	switch in.family {
	case FamilyV2:
		return &authorization{
			strategy:  model.AuthorizationApproval,
			approvals: approvals(in.exact, in.target, true),
		}, nil
	case FamilyV3:
		return p.signPermit(ctx, in)
	default:
		return nil, Errorf(KindInvalidRequest, "unsupported protocol family %s", in.family)
	}
}

// approvals returns one instruction per distinct non-zero token.
func approvals(amounts []model.TokenAmount, spender common.Address, required bool) []model.ApprovalInstruction {
	seen := make(map[common.Address]int, len(amounts))
	out := make([]model.ApprovalInstruction, 0, len(amounts))
	for _, amount := range amounts {
		if amount.IsZero() {
			continue
		}
		if idx, ok := seen[amount.Address]; ok {
			out[idx].Amount.Add(out[idx].Amount, amount.Amount())
			continue
		}
		seen[amount.Address] = len(out)
		out = append(out, model.ApprovalInstruction{
			Token:    amount.Address,
			Spender:  spender,
			Amount:   new(big.Int).Set(amount.Amount()),
			Required: required,
		})
	}
	return out
}

func (p *Pipeline) signPermit(ctx context.Context, in authRequest) (*authorization, error) {
	if p.deps.Signer == nil {
		return nil, Errorf(KindAuthorizationFailed, "signer not configured")
	}
	permit := &model.SignedPermit{
		Kind:     in.kind,
		Owner:    in.owner,
		Spender:  in.target,
		Deadline: in.deadline,
	}

	var info []model.ApprovalInstruction
	switch in.kind {
	case model.PermitERC20:
		info = approvals(in.signed, in.target, false)
		if len(info) != 1 {
			return nil, Errorf(KindAuthorizationFailed, "share permit needs exactly one token, got %d", len(info))
		}
		nonce, err := p.deps.Nonces.PermitNonce(ctx, info[0].Token, in.owner)
		if err != nil {
			return nil, Wrap(KindAuthorizationFailed, err, "read permit nonce")
		}
		permit.Details = []model.PermitDetail{{
			Token:      info[0].Token,
			Amount:     info[0].Amount,
			Expiration: in.deadline,
			Nonce:      nonce,
		}}
	default:
		info = approvals(in.signed, p.cfg.Permit2, false)
		if len(info) == 0 {
			return nil, Errorf(KindAuthorizationFailed, "nothing to authorize")
		}
		for _, a := range info {
			nonce, err := p.deps.Nonces.Permit2Nonce(ctx, p.cfg.Permit2, in.owner, a.Token, in.target)
			if err != nil {
				return nil, Wrap(KindAuthorizationFailed, err, "read permit2 nonce")
			}
			permit.Details = append(permit.Details, model.PermitDetail{
				Token:      a.Token,
				Amount:     a.Amount,
				Expiration: in.deadline,
				Nonce:      nonce,
			})
		}
	}

	typed := signer.PermitBatchTypedData(p.cfg.ChainID, p.cfg.Permit2, permit)
	if in.kind == model.PermitERC20 {
		typed = signer.ERC20PermitTypedData(p.cfg.ChainID, in.token, permit)
	}
	sig, err := p.deps.Signer.SignTypedData(ctx, typed)
	if err != nil {
		return nil, &Error{Kind: KindAuthorizationFailed, Message: "sign permit", Err: err}
	}
	permit.Signature = sig

	p.logger.Debug("permit signed",
		zap.String("owner", in.owner.Hex()),
		zap.String("spender", in.target.Hex()),
		zap.Int("tokens", len(permit.Details)),
	)
	return &authorization{strategy: model.AuthorizationPermit, approvals: info, permit: permit}, nil
}
