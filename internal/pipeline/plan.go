package pipeline

import "liquidityBuilder/internal/model"

// BalanceTiming places the balance check relative to quoting.
type BalanceTiming int

const (
	BalanceSkip BalanceTiming = iota
	// BalanceBefore checks amounts known from the request.
	BalanceBefore
	// BalanceAfter checks the input the quote derived; used by exact-out operations.
	BalanceAfter
)

// Membership selects which pool token set explicit addresses are checked against.
type Membership int

const (
	MembershipSkip Membership = iota
	MembershipTokens
	// MembershipTokensOrBpt also accepts the pool's own share token.
	MembershipTokensOrBpt
	// MembershipTokensOrUnderlying also accepts underlyings of wrapped pool tokens.
	MembershipTokensOrUnderlying
)

// Plan is the step selection for one (action, operation, family) combination.
type Plan struct {
	Boosted        bool
	Membership     Membership
	Balance        BalanceTiming
	AdvisoryImpact bool
	EnforceImpact  bool
	Bound          model.BoundKind
}

type planKey struct {
	action    Action
	operation Operation
	family    Family
}

var plans = map[planKey]Plan{
	{ActionAdd, OpUnbalanced, FamilyV2}: {
		Membership: MembershipTokens, Balance: BalanceBefore, EnforceImpact: true, Bound: model.BoundMinOut,
	},
	{ActionAdd, OpProportional, FamilyV2}: {
		Membership: MembershipTokensOrBpt, Balance: BalanceBefore, Bound: model.BoundMaxIn,
	},
	{ActionAdd, OpSingleTokenExactOut, FamilyV2}: {
		Membership: MembershipTokens, Balance: BalanceAfter, EnforceImpact: true, Bound: model.BoundMaxIn,
	},
	{ActionAdd, OpUnbalanced, FamilyV3}: {
		Membership: MembershipTokens, Balance: BalanceBefore, AdvisoryImpact: true, EnforceImpact: true, Bound: model.BoundMinOut,
	},
	{ActionAdd, OpProportional, FamilyV3}: {
		Membership: MembershipTokensOrBpt, Balance: BalanceBefore, Bound: model.BoundMaxIn,
	},
	{ActionAdd, OpSingleTokenExactOut, FamilyV3}: {
		Membership: MembershipTokens, Balance: BalanceAfter, AdvisoryImpact: true, EnforceImpact: true, Bound: model.BoundMaxIn,
	},
	{ActionAdd, OpBoostedProportional, FamilyV3}: {
		Boosted: true, Membership: MembershipTokensOrUnderlying, Balance: BalanceBefore, Bound: model.BoundMaxIn,
	},
	{ActionAdd, OpBoostedUnbalanced, FamilyV3}: {
		Boosted: true, Membership: MembershipTokensOrUnderlying, Balance: BalanceBefore, EnforceImpact: true, Bound: model.BoundMinOut,
	},

	{ActionRemove, OpProportional, FamilyV2}: {
		Membership: MembershipSkip, Balance: BalanceBefore, Bound: model.BoundMinOut,
	},
	{ActionRemove, OpSingleTokenExactIn, FamilyV2}: {
		Membership: MembershipTokens, Balance: BalanceBefore, EnforceImpact: true, Bound: model.BoundMinOut,
	},
	{ActionRemove, OpSingleTokenExactOut, FamilyV2}: {
		Membership: MembershipTokens, Balance: BalanceAfter, Bound: model.BoundMaxIn,
	},
	{ActionRemove, OpUnbalanced, FamilyV2}: {
		Membership: MembershipTokens, Balance: BalanceAfter, EnforceImpact: true, Bound: model.BoundMaxIn,
	},
	{ActionRemove, OpProportional, FamilyV3}: {
		Membership: MembershipSkip, Balance: BalanceBefore, Bound: model.BoundMinOut,
	},
	{ActionRemove, OpSingleTokenExactIn, FamilyV3}: {
		Membership: MembershipTokens, Balance: BalanceBefore, EnforceImpact: true, Bound: model.BoundMinOut,
	},
	{ActionRemove, OpSingleTokenExactOut, FamilyV3}: {
		Membership: MembershipTokens, Balance: BalanceAfter, Bound: model.BoundMaxIn,
	},
	{ActionRemove, OpBoostedProportional, FamilyV3}: {
		Boosted: true, Balance: BalanceBefore, Bound: model.BoundMinOut,
	},
}

// PlanFor looks up the plan for a liquidity request.
func PlanFor(action Action, op Operation, family Family) (Plan, bool) {
	plan, ok := plans[planKey{action: action, operation: op, family: family}]
	return plan, ok
}
