package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityBuilder/internal/model"
)

// BalanceReader reads holdings. Token balances are balanceOf calls on the token contract;
// the native balance is an account-level read.
type BalanceReader interface {
	TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error)
	NativeBalance(ctx context.Context, holder common.Address) (*big.Int, error)
}

// BalanceVerifier rejects requests the holder cannot fund.
type BalanceVerifier struct {
	reader BalanceReader
}

func NewBalanceVerifier(reader BalanceReader) *BalanceVerifier {
	return &BalanceVerifier{reader: reader}
}

// CheckToken fails with KindInsufficientBalance when holder has less than required.
func (v *BalanceVerifier) CheckToken(ctx context.Context, holder common.Address, required model.TokenAmount) error {
	if required.IsZero() {
		return nil
	}
	have, err := v.reader.TokenBalance(ctx, required.Address, holder)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", required.Address.Hex(), err)
	}
	return compare(required.Address.Hex(), required.Amount(), have)
}

// CheckTokens verifies amounts in order and stops at the first shortfall.
func (v *BalanceVerifier) CheckTokens(ctx context.Context, holder common.Address, required []model.TokenAmount) error {
	for _, amount := range required {
		if err := v.CheckToken(ctx, holder, amount); err != nil {
			return err
		}
	}
	return nil
}

// CheckNative verifies the holder's native currency balance.
func (v *BalanceVerifier) CheckNative(ctx context.Context, holder common.Address, required *big.Int) error {
	if required == nil || required.Sign() == 0 {
		return nil
	}
	have, err := v.reader.NativeBalance(ctx, holder)
	if err != nil {
		return fmt.Errorf("native balance: %w", err)
	}
	return compare("native", required, have)
}

func compare(token string, required, have *big.Int) error {
	if have == nil {
		have = new(big.Int)
	}
	if have.Cmp(required) >= 0 {
		return nil
	}
	shortfall := new(big.Int).Sub(required, have)
	return Errorf(KindInsufficientBalance,
		"Insufficient balance for token %s. Required: %s, Have: %s, Shortfall: %s",
		token, required.String(), have.String(), shortfall.String())
}
