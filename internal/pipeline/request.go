package pipeline

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"liquidityBuilder/internal/model"
)

// Action is the direction of a liquidity operation.
type Action int

const (
	ActionNone Action = iota
	ActionAdd
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	default:
		return "none"
	}
}

// Operation is the request variant.
type Operation int

const (
	OpProportional Operation = iota + 1
	OpUnbalanced
	OpSingleTokenExactIn
	OpSingleTokenExactOut
	OpBoostedProportional
	OpBoostedUnbalanced
	OpSwap
	OpStakeDeposit
	OpStakeUndelegate
	OpStakeWithdraw
)

var operationNames = map[Operation]string{
	OpProportional:        "proportional",
	OpUnbalanced:          "unbalanced",
	OpSingleTokenExactIn:  "single-token-exact-in",
	OpSingleTokenExactOut: "single-token-exact-out",
	OpBoostedProportional: "boosted-proportional",
	OpBoostedUnbalanced:   "boosted-unbalanced",
	OpSwap:                "swap",
	OpStakeDeposit:        "stake-deposit",
	OpStakeUndelegate:     "stake-undelegate",
	OpStakeWithdraw:       "stake-withdraw",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// IsLiquidity reports whether the operation adds or removes pool liquidity.
func (o Operation) IsLiquidity() bool {
	return o >= OpProportional && o <= OpBoostedUnbalanced
}

// Family is the protocol generation; it decides the authorization strategy.
type Family int

const (
	FamilyUnknown Family = iota
	// FamilyV2 pools are authorized with plain allowances the caller grants.
	FamilyV2
	// FamilyV3 pools are authorized with a permit signed by this service.
	FamilyV3
)

func (f Family) String() string {
	switch f {
	case FamilyV2:
		return "v2"
	case FamilyV3:
		return "v3"
	default:
		return "unknown"
	}
}

// FamilyForVersion maps a pool protocol version to its family.
func FamilyForVersion(version int) Family {
	switch version {
	case 2:
		return FamilyV2
	case 3:
		return FamilyV3
	default:
		return FamilyUnknown
	}
}

// Request is a typed operation request. Which amount fields are set depends on Operation:
//
//	unbalanced, boosted-unbalanced          Amounts (amounts in for add, amounts out for remove)
//	proportional add, boosted-proportional  Amount = reference amount (+ TokensIn for boosted add)
//	proportional remove, exact-in remove    Amount = BPT in (+ Token = token out)
//	single-token add                        Amount = BPT out, Token = token in
//	exact-out remove                        Amount = amount out of a pool token
//	swap                                    TokenIn, TokenOut, SwapAmount
//	stake deposit / undelegate              StakeAmount
//	stake withdraw                          WithdrawID
type Request struct {
	Action    Action
	Operation Operation
	Family    Family
	PoolID    string
	User      common.Address
	Slippage  Slippage

	Amounts  []model.TokenAmount
	Amount   *model.TokenAmount
	Token    common.Address
	TokensIn []common.Address

	TokenIn    string
	TokenOut   string
	SwapAmount decimal.Decimal

	StakeAmount *big.Int
	WithdrawID  *big.Int
}

// Boosted reports whether the request targets an ERC-4626 boosted pool.
func (r *Request) Boosted() bool {
	return r.Operation == OpBoostedProportional || r.Operation == OpBoostedUnbalanced
}

// ExactOut reports whether the user-side input is unknown until the quote is computed.
func (r *Request) ExactOut() bool {
	switch {
	case r.Action == ActionAdd && r.Operation == OpSingleTokenExactOut:
		return true
	case r.Action == ActionRemove && (r.Operation == OpSingleTokenExactOut || r.Operation == OpUnbalanced):
		return true
	}
	return false
}

// Validate enforces the one-shape-per-operation rule.
func (r *Request) Validate() error {
	if r == nil {
		return Errorf(KindInvalidRequest, "request is required")
	}
	if r.Operation != OpStakeWithdraw && r.User == (common.Address{}) {
		return Errorf(KindInvalidRequest, "userAddress is required")
	}
	if r.Operation.IsLiquidity() {
		if r.PoolID == "" {
			return Errorf(KindInvalidRequest, "poolId is required")
		}
		if r.Action != ActionAdd && r.Action != ActionRemove {
			return Errorf(KindInvalidRequest, "liquidity action is required")
		}
	}

	switch r.Operation {
	case OpUnbalanced, OpBoostedUnbalanced:
		if r.Amount != nil {
			return Errorf(KindInvalidRequest, "%s takes an amount list, not a single amount", r.Operation)
		}
		if len(r.Amounts) == 0 {
			return Errorf(KindInvalidRequest, "at least one amount is required")
		}
		seen := make(map[common.Address]struct{}, len(r.Amounts))
		for _, amount := range r.Amounts {
			if _, dup := seen[amount.Address]; dup {
				return Errorf(KindInvalidRequest, "duplicate token %s", amount.Address.Hex())
			}
			seen[amount.Address] = struct{}{}
		}
	case OpProportional, OpBoostedProportional, OpSingleTokenExactIn, OpSingleTokenExactOut:
		if len(r.Amounts) > 0 {
			return Errorf(KindInvalidRequest, "%s takes a single amount, not a list", r.Operation)
		}
		if r.Amount == nil || r.Amount.IsZero() {
			return Errorf(KindInvalidRequest, "a non-zero amount is required")
		}
		if r.Operation == OpBoostedProportional && r.Action == ActionAdd && len(r.TokensIn) == 0 {
			return Errorf(KindInvalidRequest, "tokensIn is required")
		}
		needsToken := r.Operation == OpSingleTokenExactIn || (r.Operation == OpSingleTokenExactOut && r.Action == ActionAdd)
		if needsToken && r.Token == (common.Address{}) {
			return Errorf(KindInvalidRequest, "token address is required")
		}
	case OpSwap:
		if r.TokenIn == "" || r.TokenOut == "" {
			return Errorf(KindInvalidRequest, "tokenIn and tokenOut are required")
		}
		if !r.SwapAmount.IsPositive() {
			return Errorf(KindInvalidRequest, "amount must be positive")
		}
	case OpStakeDeposit, OpStakeUndelegate:
		if r.StakeAmount == nil || r.StakeAmount.Sign() <= 0 {
			return Errorf(KindInvalidRequest, "amount must be positive")
		}
	case OpStakeWithdraw:
		if r.WithdrawID == nil || r.WithdrawID.Sign() < 0 {
			return Errorf(KindInvalidRequest, "withdrawId is required")
		}
	default:
		return Errorf(KindInvalidRequest, "unsupported operation %s", r.Operation)
	}
	return nil
}
