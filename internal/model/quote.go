package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Quote is the resolver's result for a liquidity operation. Add operations fill AmountsIn and
// BptOut; remove operations fill BptIn and AmountsOut.
type Quote struct {
	AmountsIn  []TokenAmount
	AmountsOut []TokenAmount
	BptIn      TokenAmount
	BptOut     TokenAmount

	// WrapUnderlying marks, per pool token position, that the user side of a boosted
	// operation uses the underlying asset instead of the wrapped pool token.
	WrapUnderlying []bool
}

// SwapPath is one route of a smart-order-router result.
type SwapPath struct {
	Pools     []string
	Tokens    []Token
	IsBuffer  []bool
	AmountIn  *big.Int
	AmountOut *big.Int
}

// SwapQuote is the routed result of an exact-in swap.
type SwapQuote struct {
	TokenIn         Token
	TokenOut        Token
	AmountIn        *big.Int
	AmountOut       *big.Int
	PriceImpact     decimal.Decimal
	ProtocolVersion int
	Paths           []SwapPath
}
