package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
)

// runStake builds staking calls. There is no pool and no price impact. Deposits and
// withdrawals go to the staking pool; undelegation burns shares on the share token contract.
func (p *Pipeline) runStake(ctx context.Context, req *Request) (*model.Response, error) {
	staking := p.cfg.StakingContract
	target := p.cfg.StakingPool
	if req.Operation == OpStakeUndelegate {
		target = staking
	}
	if target == (common.Address{}) {
		return nil, Errorf(KindInvalidRequest, "staking contract not configured")
	}

	var (
		data  []byte
		value = new(big.Int)
		err   error
		resp  = &model.Response{}
	)
	switch req.Operation {
	case OpStakeDeposit:
		if err := p.balances.CheckNative(ctx, req.User, req.StakeAmount); err != nil {
			return nil, err
		}
		data, err = p.deps.Staking.EncodeDeposit()
		value.Set(req.StakeAmount)
		resp.AmountIn = req.StakeAmount.String()
	case OpStakeUndelegate:
		shares := model.NewTokenAmount(staking, 18, req.StakeAmount)
		if err := p.balances.CheckToken(ctx, req.User, shares); err != nil {
			return nil, err
		}
		data, err = p.deps.Staking.EncodeUndelegate(req.StakeAmount)
		resp.AmountIn = req.StakeAmount.String()
	case OpStakeWithdraw:
		data, err = p.deps.Staking.EncodeWithdraw(req.WithdrawID, false)
	default:
		return nil, Errorf(KindInvalidRequest, "unsupported operation %s", req.Operation)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Operation, err)
	}

	resp.Transaction = model.TransactionCall{To: target, Data: data, Value: value}
	p.logger.Info("staking call built",
		zap.String("operation", req.Operation.String()),
		zap.String("user", req.User.Hex()),
	)
	return resp, nil
}

// StakeBalance reports the staked share balance of holder.
func (p *Pipeline) StakeBalance(ctx context.Context, holder common.Address) (*model.BalanceResponse, error) {
	if p.cfg.StakingContract == (common.Address{}) {
		return nil, Errorf(KindInvalidRequest, "staking contract not configured")
	}
	balance, err := p.deps.Balances.TokenBalance(ctx, p.cfg.StakingContract, holder)
	if err != nil {
		return nil, fmt.Errorf("staked balance of %s: %w", holder.Hex(), err)
	}
	return &model.BalanceResponse{
		Address: holder.Hex(),
		Token:   p.cfg.StakingContract.Hex(),
		Balance: balance.String(),
	}, nil
}
