// Package engine implements the relic-effect calculation core: ordered
// effect application, conditional activation, synergy detection, conflict
// handling and memoization.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mrdeadlift/relic-engine/internal/cache"
	"github.com/mrdeadlift/relic-engine/internal/model"
)

// Effect application priority, descending. Flat bonuses anchor the
// calculation, multipliers and percentages follow, situational kinds last.
var kindPriority = [model.EffectKindCount]int{
	model.EffectAttack:             60,
	model.EffectMultiplier:         50,
	model.EffectPercentage:         40,
	model.EffectCriticalMultiplier: 30,
	model.EffectWeaponSpecific:     20,
	model.EffectConditionalDamage:  10,
}

// additiveKind reports whether the kind accumulates into the additive
// percentage bucket; the remaining kinds are multiplicative.
func additiveKind(k model.EffectKind) bool {
	switch k {
	case model.EffectAttack, model.EffectPercentage, model.EffectWeaponSpecific, model.EffectConditionalDamage:
		return true
	default:
		return false
	}
}

// Options tune a single calculation.
type Options struct {
	UseCache           bool
	IncludeBreakdown   bool
	IncludeTrace       bool
	IncludePerformance bool
	CacheTTL           time.Duration // 0 uses the calculator default
}

// DefaultOptions matches what the build-planner UI requests.
func DefaultOptions() Options {
	return Options{UseCache: true, IncludeBreakdown: true}
}

// Calculator is the calculation orchestrator. Construct one per process
// and share it; it is safe for concurrent use.
type Calculator struct {
	catalog  Catalog
	memo     *cache.Cache
	cacheTTL time.Duration
}

// NewCalculator builds a Calculator over the given catalog. A nil memo
// disables memoization regardless of per-call options.
func NewCalculator(catalog Catalog, memo *cache.Cache, cacheTTL time.Duration) *Calculator {
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}
	return &Calculator{catalog: catalog, memo: memo, cacheTTL: cacheTTL}
}

// ClearCache drops all memoized results.
func (c *Calculator) ClearCache() {
	if c.memo != nil {
		c.memo.Clear()
	}
}

// Calculate resolves relic ids through the catalog and computes the
// attack multiplier for them under ctx. Unknown ids are ignored; an
// entirely unknown or empty selection degrades to the identity result.
func (c *Calculator) Calculate(relicIDs []string, ctx *model.CalculationContext, opts Options) (*model.CalculationResult, error) {
	if relicIDs == nil {
		return nil, fmt.Errorf("%w: nil relic id list", ErrInvalidInput)
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(relicIDs) > model.MaxSelectionSize {
		return nil, fmt.Errorf("%w: %d relics, maximum %d", ErrLimitExceeded, len(relicIDs), model.MaxSelectionSize)
	}

	key := CacheKey(relicIDs, ctx)
	if opts.UseCache && c.memo != nil {
		if hit := c.memo.Get(key); hit != nil {
			out := *hit
			out.Metadata.Cached = true
			return &out, nil
		}
	}

	relics := make([]*model.Relic, 0, len(relicIDs))
	for _, id := range relicIDs {
		r := c.catalog.Get(id)
		if r == nil {
			slog.Debug("unknown relic id ignored", "id", id)
			continue
		}
		relics = append(relics, r)
	}

	result := CalculateRelics(relics, ctx, opts)
	result.Metadata.RequestID = Fingerprint(key)

	if opts.UseCache && c.memo != nil {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = c.cacheTTL
		}
		c.memo.Set(key, result, ttl)
	}
	return result, nil
}

// appliedEffect is an effect annotated for ordered processing.
type appliedEffect struct {
	relic    *model.Relic
	effect   *model.Effect
	priority int
	order    int // flatten order, tie-breaker

	value       float64
	overwritten bool
}

// CalculateRelics computes the multiplier for already-resolved relics.
// It never fails for well-formed input; degenerate selections yield the
// identity result. Exposed for the validator and tests.
func CalculateRelics(relics []*model.Relic, ctx *model.CalculationContext, opts Options) *model.CalculationResult {
	start := time.Now()

	included, details := resolveConflicts(relics)

	// Flatten and order by priority, stable on selection order.
	flat := make([]*appliedEffect, 0, len(included)*2)
	order := 0
	for _, r := range included {
		for i := range r.Effects {
			flat = append(flat, &appliedEffect{
				relic:    r,
				effect:   &r.Effects[i],
				priority: kindPriority[r.Effects[i].Kind],
				order:    order,
			})
			order++
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].priority != flat[j].priority {
			return flat[i].priority > flat[j].priority
		}
		return flat[i].order < flat[j].order
	})

	var (
		applied      []*appliedEffect
		uniqueSeen   = make(map[model.EffectKind]bool)
		overwriteIdx = make(map[model.EffectKind]int)
	)
	for _, ae := range flat {
		if !IsActive(ae.effect, ctx) {
			continue
		}
		if ae.effect.Stacking == model.StackUnique && uniqueSeen[ae.effect.Kind] {
			continue // one instance of a unique-stacking kind may apply
		}
		if ae.effect.Stacking == model.StackUnique {
			uniqueSeen[ae.effect.Kind] = true
		}
		if ae.effect.Stacking == model.StackOverwrite {
			if prev, ok := overwriteIdx[ae.effect.Kind]; ok {
				applied[prev].overwritten = true
			}
			overwriteIdx[ae.effect.Kind] = len(applied)
		}
		ae.value = ScaledValue(ae.effect, ctx)
		applied = append(applied, ae)
	}

	var (
		additive       float64
		multiplicative = 1.0
		conditional    float64
		environmental  float64
	)
	perRelic := make(map[string]float64, len(included))
	for _, ae := range applied {
		if ae.overwritten {
			continue
		}
		var contribution float64
		if additiveKind(ae.effect.Kind) {
			additive += ae.value
			contribution = ae.value / 100
		} else {
			multiplicative *= ae.value
			contribution = ae.value - 1
		}
		perRelic[ae.relic.ID] += contribution

		if cond := ae.effect.Condition; cond != nil {
			if cond.Kind == model.ConditionEnemyType {
				environmental += contribution
			} else {
				conditional += contribution
			}
		}
	}

	synergy := SynergyBonus(included)
	total := 1.0*(1+additive/100)*multiplicative + synergy

	var difficultySum float64
	for _, r := range included {
		difficultySum += r.Difficulty
	}
	var avgDifficulty, efficiency float64
	if len(included) > 0 {
		avgDifficulty = difficultySum / float64(len(included))
		div := avgDifficulty
		if div < 1 {
			div = 1
		}
		efficiency = total / div
	}

	result := &model.CalculationResult{
		Total:         model.Round2(total),
		Base:          1.0,
		Synergy:       model.Round2(synergy),
		Conditional:   model.Round2(conditional),
		Environmental: model.Round2(environmental),
		Efficiency:    model.Round2(efficiency),
		Difficulty:    model.Round1(avgDifficulty),
		Metadata: model.ResultMetadata{
			CalculatedAt: time.Now(),
			Local:        true,
		},
	}

	for i := range details {
		details[i].Contribution = model.Round2(perRelic[details[i].ID])
	}
	result.RelicDetails = details

	if opts.IncludeBreakdown {
		result.Breakdown = buildBreakdown(applied)
	}
	if opts.IncludeTrace {
		result.Trace = buildTrace(additive, multiplicative, synergy)
	}
	if opts.IncludePerformance {
		result.Metadata.DurationMicros = time.Since(start).Microseconds()
		result.Metadata.EffectsConsidered = len(flat)
		result.Metadata.EffectsApplied = countApplied(applied)
	}
	return result
}

// resolveConflicts drops relics that conflict with an earlier-selected
// relic. Deterministic: selection order wins.
func resolveConflicts(relics []*model.Relic) ([]*model.Relic, []model.RelicDetail) {
	included := make([]*model.Relic, 0, len(relics))
	details := make([]model.RelicDetail, 0, len(relics))
	for _, r := range relics {
		detail := model.RelicDetail{
			ID:         r.ID,
			Name:       r.Name,
			Category:   r.Category,
			Difficulty: r.Difficulty,
		}
		for _, accepted := range included {
			if r.InConflictWith(accepted.ID) || accepted.InConflictWith(r.ID) {
				detail.Excluded = true
				detail.ExcludedBy = accepted.ID
				break
			}
		}
		if !detail.Excluded {
			included = append(included, r)
		}
		details = append(details, detail)
	}
	return included, details
}

func buildBreakdown(applied []*appliedEffect) []model.EffectContribution {
	breakdown := make([]model.EffectContribution, 0, len(applied))
	for _, ae := range applied {
		breakdown = append(breakdown, model.EffectContribution{
			RelicID:  ae.relic.ID,
			EffectID: ae.effect.ID,
			Kind:     ae.effect.Kind,
			Active:   !ae.overwritten,
			Value:    ae.value,
		})
	}
	return breakdown
}

func buildTrace(additive, multiplicative, synergy float64) []model.TraceStep {
	base := 1.0
	afterAdd := base * (1 + additive/100)
	afterMult := afterAdd * multiplicative
	return []model.TraceStep{
		{Stage: "base", Detail: "base multiplier", Value: base},
		{Stage: "additive", Detail: fmt.Sprintf("+%.2f%% additive bonuses", additive), Value: afterAdd},
		{Stage: "multiplicative", Detail: fmt.Sprintf("×%.4f multiplicative bonuses", multiplicative), Value: afterMult},
		{Stage: "synergy", Detail: fmt.Sprintf("+%.2f synergy", synergy), Value: afterMult + synergy},
	}
}

func countApplied(applied []*appliedEffect) int {
	n := 0
	for _, ae := range applied {
		if !ae.overwritten {
			n++
		}
	}
	return n
}
