// Package validator cross-checks the local calculation engine against an
// authoritative remote service: field-level comparison under configurable
// tolerances, confidence scoring and a recommendation for which result to
// trust.
package validator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/mrdeadlift/relic-engine/internal/engine"
	"github.com/mrdeadlift/relic-engine/internal/model"
)

// comparedFields is the number of result fields checked per validation;
// it bounds the maximum possible severity weight.
const comparedFields = 3

// Config tunes the validator.
type Config struct {
	// Timeout is the hard budget for the remote calculation.
	Timeout time.Duration
	// Relative tolerances per compared field (0.01 = 1%).
	ToleranceTotal      float64
	ToleranceEfficiency float64
	ToleranceDifficulty float64
	// SampleRate is the fraction of CalculateWithValidation calls that
	// actually validate (0.1 = 10%).
	SampleRate float64
	// Strategy picks a result when confidence is inconclusive.
	Strategy model.FallbackStrategy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             5 * time.Second,
		ToleranceTotal:      0.01,
		ToleranceEfficiency: 0.05,
		ToleranceDifficulty: 0.02,
		SampleRate:          0.1,
		Strategy:            model.Conservative,
	}
}

// Validator runs dual-path validation. Safe for concurrent use.
type Validator struct {
	calc   *engine.Calculator
	remote RemoteCalculator
	cfg    Config
	rand   func() float64 // injectable for deterministic sampling in tests
	stats  stats
}

// New builds a Validator. A nil randFn uses math/rand/v2.
func New(calc *engine.Calculator, remote RemoteCalculator, cfg Config, randFn func() float64) *Validator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.SampleRate < 0 {
		cfg.SampleRate = 0
	}
	if randFn == nil {
		randFn = rand.Float64
	}
	return &Validator{calc: calc, remote: remote, cfg: cfg, rand: randFn}
}

// Stats returns a snapshot of the running validation statistics.
func (v *Validator) Stats() model.ValidationStats {
	return v.stats.snapshot()
}

type remoteOutcome struct {
	result *model.CalculationResult
	err    error
}

// Validate computes (or reuses) the local result, obtains the remote
// result under the configured timeout, and compares them. A timeout or
// remote failure yields a ValidationResult carrying a synthetic critical
// discrepancy; it is never surfaced as an error.
func (v *Validator) Validate(ctx context.Context, relicIDs []string, cctx *model.CalculationContext, local *model.CalculationResult) (*model.ValidationResult, error) {
	start := time.Now()

	if local == nil {
		var err error
		local, err = v.calc.Calculate(relicIDs, cctx, engine.Options{UseCache: true})
		if err != nil {
			return nil, err
		}
	}

	tctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	// Race the remote call against the budget. The buffered channel lets
	// the losing branch complete without anyone reading its result.
	ch := make(chan remoteOutcome, 1)
	go func() {
		res, err := v.remote.Calculate(tctx, relicIDs, cctx)
		ch <- remoteOutcome{res, err}
	}()

	var out remoteOutcome
	select {
	case out = <-ch:
	case <-tctx.Done():
		out = remoteOutcome{err: ErrValidationTimeout}
	}

	vr := &model.ValidationResult{Local: local}
	if out.err != nil || out.result == nil {
		timedOut := errors.Is(out.err, ErrValidationTimeout) ||
			errors.Is(out.err, context.DeadlineExceeded) ||
			tctx.Err() != nil
		vr.TimedOut = timedOut
		vr.Discrepancies = []model.Discrepancy{{
			Field:    "remote",
			Severity: model.SeverityCritical,
		}}
		vr.Confidence = 0
		vr.Action = model.ActionManualReview
		vr.Duration = time.Since(start)
		v.stats.record(vr, false)
		slog.Warn("remote validation unavailable", "timed_out", timedOut, "err", out.err)
		return vr, nil
	}

	vr.Remote = out.result
	vr.Discrepancies = v.compare(local, out.result)
	vr.Confidence = confidence(vr.Discrepancies)
	vr.Action = v.recommend(vr)
	vr.Duration = time.Since(start)
	v.stats.record(vr, true)

	slog.Debug("validation completed",
		"discrepancies", len(vr.Discrepancies),
		"confidence", vr.Confidence,
		"action", vr.Action)
	return vr, nil
}

// compare checks total, efficiency and difficulty under their relative
// tolerances.
func (v *Validator) compare(local, remote *model.CalculationResult) []model.Discrepancy {
	fields := []struct {
		name      string
		l, r      float64
		tolerance float64
	}{
		{"total", local.Total, remote.Total, v.cfg.ToleranceTotal},
		{"efficiency", local.Efficiency, remote.Efficiency, v.cfg.ToleranceEfficiency},
		{"difficulty", local.Difficulty, remote.Difficulty, v.cfg.ToleranceDifficulty},
	}

	var out []model.Discrepancy
	for _, f := range fields {
		absDiff := math.Abs(f.l - f.r)
		ref := math.Max(math.Abs(f.r), 1e-9)
		relDiff := absDiff / ref
		if relDiff <= f.tolerance {
			continue
		}
		pct := relDiff * 100
		out = append(out, model.Discrepancy{
			Field:    f.name,
			Local:    f.l,
			Remote:   f.r,
			AbsDiff:  absDiff,
			PctDiff:  pct,
			Severity: model.SeverityForPct(pct),
		})
	}
	return out
}

// confidence scores agreement in [0,1]: 1 minus the severity weight used,
// over the maximum weight the compared fields could have accrued.
func confidence(discrepancies []model.Discrepancy) float64 {
	var used float64
	for _, d := range discrepancies {
		used += d.Severity.Weight()
	}
	return 1 - used/(comparedFields*model.SeverityCritical.Weight())
}

// recommend maps confidence to an action per the configured strategy.
func (v *Validator) recommend(vr *model.ValidationResult) model.RecommendedAction {
	if vr.Confidence < 0.5 || vr.HasCritical() {
		return model.ActionManualReview
	}
	if vr.Confidence > 0.95 {
		return model.ActionUseLocal
	}
	switch v.cfg.Strategy {
	case model.PreferRemote:
		return model.ActionUseRemote
	case model.PreferLocal:
		return model.ActionUseLocal
	default: // conservative
		if vr.Confidence > 0.8 {
			return model.ActionUseLocal
		}
		return model.ActionUseRemote
	}
}

// CalculateWithValidation computes locally, then validates a sampled
// fraction of calls (or every call when force is set) and returns the
// result the recommendation selects. The ValidationResult is nil when
// validation did not run.
func (v *Validator) CalculateWithValidation(ctx context.Context, relicIDs []string, cctx *model.CalculationContext, opts engine.Options, force bool) (*model.CalculationResult, *model.ValidationResult, error) {
	local, err := v.calc.Calculate(relicIDs, cctx, opts)
	if err != nil {
		return nil, nil, err
	}

	if !force && v.rand() >= v.cfg.SampleRate {
		return local, nil, nil
	}

	vr, err := v.Validate(ctx, relicIDs, cctx, local)
	if err != nil {
		return nil, nil, err
	}

	switch vr.Action {
	case model.ActionUseRemote:
		if vr.Remote != nil {
			return vr.Remote, vr, nil
		}
		return local, vr, nil
	default:
		// use_local, and manual_review keeps the local result while the
		// caller inspects the validation outcome.
		return local, vr, nil
	}
}
