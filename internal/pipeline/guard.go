package pipeline

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMaxPriceImpact is the ceiling in percent.
var DefaultMaxPriceImpact = decimal.NewFromInt(5)

// ImpactGuard evaluates price impact in two phases. The advisory phase runs before quoting and
// only logs; the enforcing phase runs on the computed quote and rejects.
type ImpactGuard struct {
	max    decimal.Decimal
	logger *zap.Logger
}

func NewImpactGuard(ceiling decimal.Decimal, logger *zap.Logger) *ImpactGuard {
	if ceiling.IsZero() {
		ceiling = DefaultMaxPriceImpact
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImpactGuard{max: ceiling, logger: logger}
}

// Advisory runs evaluate and reports whether the estimate was usable. Failures and excess
// impact are logged, never returned.
func (g *ImpactGuard) Advisory(evaluate func() (decimal.Decimal, error)) bool {
	impact, err := evaluate()
	if err != nil {
		g.logger.Warn("advisory price impact unavailable", zap.Error(err))
		return false
	}
	if impact.GreaterThan(g.max) {
		g.logger.Warn("advisory price impact above ceiling",
			zap.String("impact", impact.StringFixed(2)),
			zap.String("max", g.max.String()),
		)
	}
	return true
}

// Enforce fails when impact strictly exceeds the ceiling.
func (g *ImpactGuard) Enforce(impact decimal.Decimal) error {
	if impact.GreaterThan(g.max) {
		return Errorf(KindPriceImpactTooHigh, "High price impact: %s%%", impact.StringFixed(2))
	}
	return nil
}
