package engine

import "github.com/mrdeadlift/relic-engine/internal/model"

// Per-member synergy weights. Category groups outweigh effect-kind groups.
const (
	categorySynergyPerRelic = 0.15
	kindSynergyPerEffect    = 0.10
)

// SynergyBonus derives the selection-wide synergy bonus: every category
// shared by at least two relics contributes 0.15 per relic in the group,
// and every effect kind appearing on at least two effects contributes
// 0.10 per effect. Computed from the selection as a whole, independent of
// per-effect conditions.
func SynergyBonus(relics []*model.Relic) float64 {
	if len(relics) < 2 {
		return 0
	}

	categories := make(map[string]int)
	kinds := make(map[model.EffectKind]int)
	for _, r := range relics {
		categories[r.Category]++
		for i := range r.Effects {
			kinds[r.Effects[i].Kind]++
		}
	}

	var bonus float64
	for _, n := range categories {
		if n >= 2 {
			bonus += categorySynergyPerRelic * float64(n)
		}
	}
	for _, n := range kinds {
		if n >= 2 {
			bonus += kindSynergyPerEffect * float64(n)
		}
	}
	return bonus
}
