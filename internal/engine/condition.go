package engine

import "github.com/mrdeadlift/relic-engine/internal/model"

// IsActive reports whether the effect's condition holds under ctx.
// An effect without a condition is always active. Pure: same inputs
// always yield the same answer.
func IsActive(e *model.Effect, ctx *model.CalculationContext) bool {
	cond := e.Condition
	if cond == nil {
		return true
	}

	switch cond.Kind {
	case model.ConditionWeaponType:
		return ctx.WeaponType != "" && ctx.WeaponType == cond.Target
	case model.ConditionCombatStyle:
		return ctx.CombatStyle != "" && ctx.CombatStyle == cond.Target
	case model.ConditionEnemyType:
		return ctx.EnemyType != "" && ctx.EnemyType == cond.Target
	case model.ConditionChainFirst:
		return ctx.FirstHit
	case model.ConditionHealthBelow:
		return ctx.HealthPct <= cond.Value
	case model.ConditionComboCount:
		return float64(ctx.ComboCount) >= cond.Value
	default:
		return false
	}
}

// ScaledValue returns the effect's value under ctx. Enumerated conditions
// gate without scaling; numeric conditions scale the base value by how far
// the context exceeds the threshold, clamped to the effect's declared
// range when one is present. Callers check IsActive first.
func ScaledValue(e *model.Effect, ctx *model.CalculationContext) float64 {
	cond := e.Condition
	if cond == nil || !cond.Kind.IsNumeric() {
		return e.Value
	}

	var ratio float64
	switch cond.Kind {
	case model.ConditionHealthBelow:
		// Deeper below the threshold scales harder: at the threshold the
		// ratio is 1.0, at zero health it reaches 2.0.
		if cond.Value <= 0 {
			ratio = 1
		} else {
			ratio = 1 + (cond.Value-ctx.HealthPct)/cond.Value
		}
	case model.ConditionComboCount:
		if cond.Value <= 0 {
			ratio = 1
		} else {
			ratio = float64(ctx.ComboCount) / cond.Value
		}
	default:
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}

	scaled := e.Value * ratio
	if e.HasRange() {
		if scaled < e.MinValue {
			scaled = e.MinValue
		}
		if scaled > e.MaxValue {
			scaled = e.MaxValue
		}
	}
	return scaled
}
