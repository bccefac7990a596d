package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a resolved ERC-20 token record.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol,omitempty"`
	Name     string         `json:"name,omitempty"`
	Decimals uint8          `json:"decimals"`
}

// TokenAmount is a token quantity in base units.
type TokenAmount struct {
	Address   common.Address
	Decimals  uint8
	RawAmount *big.Int
}

// NewTokenAmount copies raw so callers can keep mutating their own value.
func NewTokenAmount(address common.Address, decimals uint8, raw *big.Int) TokenAmount {
	amount := TokenAmount{Address: address, Decimals: decimals, RawAmount: new(big.Int)}
	if raw != nil {
		amount.RawAmount.Set(raw)
	}
	return amount
}

// Amount returns the raw amount, treating a missing value as zero.
func (a TokenAmount) Amount() *big.Int {
	if a.RawAmount == nil {
		return new(big.Int)
	}
	return a.RawAmount
}

// IsZero reports whether the amount is absent or zero.
func (a TokenAmount) IsZero() bool {
	return a.RawAmount == nil || a.RawAmount.Sign() == 0
}

// View renders the amount for responses.
func (a TokenAmount) View() AmountView {
	return AmountView{Address: a.Address.Hex(), Amount: a.Amount().String()}
}

// AmountView is the JSON form of a token amount.
type AmountView struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Views renders a list of amounts.
func Views(amounts []TokenAmount) []AmountView {
	if len(amounts) == 0 {
		return nil
	}
	out := make([]AmountView, 0, len(amounts))
	for _, amount := range amounts {
		out = append(out, amount.View())
	}
	return out
}

// FindAmount returns the amount for address, if present.
func FindAmount(amounts []TokenAmount, address common.Address) (TokenAmount, bool) {
	for _, amount := range amounts {
		if amount.Address == address {
			return amount, true
		}
	}
	return TokenAmount{}, false
}
