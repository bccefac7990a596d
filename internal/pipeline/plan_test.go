package pipeline

import (
	"testing"

	"liquidityBuilder/internal/model"
)

func TestPlanTable(t *testing.T) {
	liquidityOps := []Operation{
		OpProportional, OpUnbalanced, OpSingleTokenExactIn, OpSingleTokenExactOut,
		OpBoostedProportional, OpBoostedUnbalanced,
	}
	for _, action := range []Action{ActionAdd, ActionRemove} {
		for _, op := range liquidityOps {
			for _, family := range []Family{FamilyV2, FamilyV3} {
				plan, ok := PlanFor(action, op, family)
				if !ok {
					continue
				}
				req := &Request{Action: action, Operation: op}

				if req.ExactOut() && plan.Balance != BalanceAfter {
					t.Fatalf("%s %s %s: exact-out must check balance after quoting", action, op, family)
				}
				if !req.ExactOut() && plan.Balance != BalanceBefore {
					t.Fatalf("%s %s %s: balance must be checked before quoting", action, op, family)
				}
				if plan.Boosted != req.Boosted() {
					t.Fatalf("%s %s %s: boosted flag mismatch", action, op, family)
				}
				if plan.Boosted && family != FamilyV3 {
					t.Fatalf("%s %s: boosted pools exist only in v3", action, op)
				}
				if op == OpProportional && action == ActionRemove && plan.EnforceImpact {
					t.Fatalf("proportional removal is impact-neutral")
				}
				if plan.AdvisoryImpact && !plan.EnforceImpact {
					t.Fatalf("%s %s %s: advisory impact without enforcement", action, op, family)
				}
				if plan.Bound == model.BoundNone {
					t.Fatalf("%s %s %s: missing bound", action, op, family)
				}
				if req.ExactOut() && plan.Bound != model.BoundMaxIn {
					t.Fatalf("%s %s %s: exact-out must bound the input", action, op, family)
				}
			}
		}
	}
}

func TestPlanCoverage(t *testing.T) {
	want := []planKey{
		{ActionAdd, OpUnbalanced, FamilyV2},
		{ActionAdd, OpProportional, FamilyV2},
		{ActionAdd, OpSingleTokenExactOut, FamilyV2},
		{ActionAdd, OpUnbalanced, FamilyV3},
		{ActionAdd, OpProportional, FamilyV3},
		{ActionAdd, OpSingleTokenExactOut, FamilyV3},
		{ActionAdd, OpBoostedProportional, FamilyV3},
		{ActionAdd, OpBoostedUnbalanced, FamilyV3},
		{ActionRemove, OpProportional, FamilyV2},
		{ActionRemove, OpSingleTokenExactIn, FamilyV2},
		{ActionRemove, OpSingleTokenExactOut, FamilyV2},
		{ActionRemove, OpUnbalanced, FamilyV2},
		{ActionRemove, OpProportional, FamilyV3},
		{ActionRemove, OpSingleTokenExactIn, FamilyV3},
		{ActionRemove, OpSingleTokenExactOut, FamilyV3},
		{ActionRemove, OpBoostedProportional, FamilyV3},
	}
	if len(plans) != len(want) {
		t.Fatalf("expected %d plans, got %d", len(want), len(plans))
	}
	for _, key := range want {
		if _, ok := PlanFor(key.action, key.operation, key.family); !ok {
			t.Fatalf("missing plan for %s %s %s", key.action, key.operation, key.family)
		}
	}
	if _, ok := PlanFor(ActionRemove, OpUnbalanced, FamilyV3); ok {
		t.Fatalf("unbalanced removal is not offered for v3 pools")
	}
}
