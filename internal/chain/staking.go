package chain

import (
	"fmt"
	"math/big"
)

// StakingEncoder packs calls to the liquid staking contract.
type StakingEncoder struct{}

// EncodeDeposit packs deposit(); the stake travels as the call value.
func (StakingEncoder) EncodeDeposit() ([]byte, error) {
	return packStaking("deposit")
}

func (StakingEncoder) EncodeUndelegate(amount *big.Int) ([]byte, error) {
	return packStaking("undelegateFromPool", amount)
}

func (StakingEncoder) EncodeWithdraw(withdrawID *big.Int, emergency bool) ([]byte, error) {
	return packStaking("withdraw", withdrawID, emergency)
}

func packStaking(method string, args ...interface{}) ([]byte, error) {
	parsed, err := StakingABI()
	if err != nil {
		return nil, fmt.Errorf("parse staking abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}
