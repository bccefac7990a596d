package pipeline

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestImpactGuardEnforce(t *testing.T) {
	g := NewImpactGuard(decimal.Zero, zap.NewNop())

	if err := g.Enforce(decimal.RequireFromString("5")); err != nil {
		t.Fatalf("impact at the ceiling must pass: %v", err)
	}
	err := g.Enforce(decimal.RequireFromString("5.004"))
	if KindOf(err) != KindPriceImpactTooHigh {
		t.Fatalf("expected PriceImpactTooHigh, got %v", err)
	}
	if err.Error() != "High price impact: 5.00%" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestImpactGuardAdvisoryOnlyLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := NewImpactGuard(decimal.NewFromInt(5), zap.New(core))

	if g.Advisory(func() (decimal.Decimal, error) { return decimal.Zero, errors.New("boom") }) {
		t.Fatalf("failed estimate reported as usable")
	}
	if !g.Advisory(func() (decimal.Decimal, error) { return decimal.NewFromInt(9), nil }) {
		t.Fatalf("estimate above the ceiling is still usable")
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 warnings, got %d", logs.Len())
	}
}
