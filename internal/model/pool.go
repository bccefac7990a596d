package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Pool types that change how v2 user data is encoded.
const (
	PoolTypeWeighted         = "WEIGHTED"
	PoolTypeComposableStable = "COMPOSABLE_STABLE"
)

// PoolToken is one constituent of a pool.
type PoolToken struct {
	Address    common.Address
	Symbol     string
	Decimals   uint8
	Index      int
	Balance    *big.Int
	PriceUSD   decimal.Decimal
	Underlying *UnderlyingToken
}

// UnderlyingToken is the asset wrapped by an ERC-4626 pool token.
type UnderlyingToken struct {
	Token
	PriceUSD decimal.Decimal
}

// PoolState is a point-in-time snapshot of a pool, fetched per request.
type PoolState struct {
	ID                string
	Address           common.Address
	Name              string
	Type              string
	ProtocolVersion   int
	Tokens            []PoolToken
	TotalShares       *big.Int
	TotalLiquidityUSD decimal.Decimal
}

// BptDecimals is the precision of every pool share token.
const BptDecimals = 18

// Bpt wraps raw as an amount of the pool's own share token.
func (p *PoolState) Bpt(raw *big.Int) TokenAmount {
	return NewTokenAmount(p.Address, BptDecimals, raw)
}

// TokenIndex returns the position of address among the pool tokens, or -1.
func (p *PoolState) TokenIndex(address common.Address) int {
	for i, token := range p.Tokens {
		if token.Address == address {
			return i
		}
	}
	return -1
}

// UnderlyingIndex returns the position of the pool token wrapping address, or -1.
func (p *PoolState) UnderlyingIndex(address common.Address) int {
	for i, token := range p.Tokens {
		if token.Underlying != nil && token.Underlying.Address == address {
			return i
		}
	}
	return -1
}

// HasToken reports whether address is a pool token. Addresses are parsed from hex, so the
// comparison is case-insensitive.
func (p *PoolState) HasToken(address common.Address) bool {
	return p.TokenIndex(address) >= 0
}

// HasTokenOrUnderlying also accepts the underlying of a wrapped pool token.
func (p *PoolState) HasTokenOrUnderlying(address common.Address) bool {
	return p.TokenIndex(address) >= 0 || p.UnderlyingIndex(address) >= 0
}

// Token returns the pool token at address.
func (p *PoolState) Token(address common.Address) (PoolToken, bool) {
	idx := p.TokenIndex(address)
	if idx < 0 {
		return PoolToken{}, false
	}
	return p.Tokens[idx], true
}

// IsComposable reports whether the BPT is itself listed among the pool tokens.
func (p *PoolState) IsComposable() bool {
	return p.HasToken(p.Address)
}

// PoolID32 decodes the v2 vault pool id.
func (p *PoolState) PoolID32() (common.Hash, error) {
	data, err := hexutil.Decode(strings.TrimSpace(p.ID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode pool id %s: %w", p.ID, err)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid pool id length: %s", p.ID)
	}
	return common.BytesToHash(data), nil
}

// TokenPriceUSD returns the USD price of a pool token or underlying token.
func (p *PoolState) TokenPriceUSD(address common.Address) (decimal.Decimal, bool) {
	for _, token := range p.Tokens {
		if token.Address == address {
			return token.PriceUSD, !token.PriceUSD.IsZero()
		}
		if token.Underlying != nil && token.Underlying.Address == address {
			return token.Underlying.PriceUSD, !token.Underlying.PriceUSD.IsZero()
		}
	}
	return decimal.Zero, false
}
