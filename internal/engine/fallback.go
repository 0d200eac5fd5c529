package engine

import (
	"time"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

// fallbackAttackPerRelic is the naive flat contribution assumed for a
// relic when no detailed data is reachable.
const fallbackAttackPerRelic = 0.1

// Fallback computes the minimal, dependency-free estimate used when
// neither the detailed local engine nor the remote service is available:
// a naive sum of flat attack contributions and a coarse difficulty from
// relic count. It never fails.
func Fallback(relicIDs []string) *model.CalculationResult {
	n := len(relicIDs)
	if n > model.MaxSelectionSize {
		n = model.MaxSelectionSize
	}

	total := 1.0 + fallbackAttackPerRelic*float64(n)

	// Coarse difficulty: one point per two relics, floor 1 when any
	// relic is selected.
	var difficulty float64
	if n > 0 {
		difficulty = float64((n + 1) / 2)
	}

	var efficiency float64
	if n > 0 {
		div := difficulty
		if div < 1 {
			div = 1
		}
		efficiency = total / div
	}

	details := make([]model.RelicDetail, 0, n)
	for i := 0; i < n; i++ {
		details = append(details, model.RelicDetail{
			ID:           relicIDs[i],
			Name:         relicIDs[i],
			Contribution: fallbackAttackPerRelic,
		})
	}

	return &model.CalculationResult{
		Total:        model.Round2(total),
		Base:         1.0,
		Efficiency:   model.Round2(efficiency),
		Difficulty:   model.Round1(difficulty),
		RelicDetails: details,
		Metadata: model.ResultMetadata{
			CalculatedAt: time.Now(),
			Fallback:     true,
			Offline:      true,
		},
	}
}
