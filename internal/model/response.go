package model

// Authorization strategies reported to callers.
const (
	AuthorizationApproval = "approval"
	AuthorizationPermit   = "permit"
)

// Response is the envelope returned for every built transaction. Fields that do not apply to
// an operation are omitted.
type Response struct {
	Transaction   TransactionCall       `json:"transaction"`
	Authorization string                `json:"authorization,omitempty"`
	Approvals     []ApprovalInstruction `json:"approvals,omitempty"`
	PoolAddress   string                `json:"poolAddress,omitempty"`
	PriceImpact   string                `json:"priceImpact,omitempty"`

	ExpectedBptOut string       `json:"expectedBptOut,omitempty"`
	MinBptOut      string       `json:"minBptOut,omitempty"`
	Tokens         []AmountView `json:"tokens,omitempty"`
	MaxAmountsIn   []AmountView `json:"maxAmountsIn,omitempty"`

	BptIn              string       `json:"bptIn,omitempty"`
	MaxBptIn           string       `json:"maxBptIn,omitempty"`
	ExpectedAmountsOut []AmountView `json:"expectedAmountsOut,omitempty"`
	MinAmountsOut      []AmountView `json:"minAmountsOut,omitempty"`

	TokenIn           string `json:"tokenIn,omitempty"`
	TokenOut          string `json:"tokenOut,omitempty"`
	AmountIn          string `json:"amountIn,omitempty"`
	ExpectedAmountOut string `json:"expectedAmountOut,omitempty"`
	MinAmountOut      string `json:"minAmountOut,omitempty"`
}

// BalanceResponse reports a holder's balance of one token.
type BalanceResponse struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}
