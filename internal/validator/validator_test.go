package validator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrdeadlift/relic-engine/internal/engine"
	"github.com/mrdeadlift/relic-engine/internal/model"
)

// stubCatalog backs the local engine in tests.
type stubCatalog map[string]*model.Relic

func (s stubCatalog) Get(id string) *model.Relic { return s[id] }

func (s stubCatalog) All() []*model.Relic {
	out := make([]*model.Relic, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	return out
}

// stubRemote is a scriptable RemoteCalculator.
type stubRemote struct {
	mu       sync.Mutex
	result   *model.CalculationResult
	err      error
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *stubRemote) Calculate(ctx context.Context, relicIDs []string, cctx *model.CalculationContext) (*model.CalculationResult, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	return &out, nil
}

func localResult() *model.CalculationResult {
	return &model.CalculationResult{
		Total:      2.0,
		Base:       1.0,
		Efficiency: 1.0,
		Difficulty: 2.0,
		Metadata:   model.ResultMetadata{Local: true},
	}
}

// remoteLike returns a remote result whose total differs from local by
// the given fraction (0.011 = 1.1%).
func remoteLike(totalSkew float64) *model.CalculationResult {
	r := localResult()
	r.Total = r.Total * (1 + totalSkew)
	r.Metadata.Local = false
	return r
}

func testEngine() *engine.Calculator {
	catalog := stubCatalog{
		"r1": {
			ID: "r1", Name: "r1", Category: "attack", Difficulty: 2,
			Effects: []model.Effect{
				{ID: "fx", Kind: model.EffectPercentage, Value: 100, Stacking: model.StackAdditive},
			},
		},
	}
	return engine.NewCalculator(catalog, nil, 0)
}

func newTestValidator(remote RemoteCalculator, cfg Config, randFn func() float64) *Validator {
	return New(testEngine(), remote, cfg, randFn)
}

func TestValidate_WithinToleranceNotFlagged(t *testing.T) {
	remote := &stubRemote{result: remoteLike(0.009)} // 0.9% < 1% tolerance
	v := newTestValidator(remote, DefaultConfig(), nil)

	vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, localResult())
	require.NoError(t, err)

	assert.Empty(t, vr.Discrepancies)
	assert.InDelta(t, 1.0, vr.Confidence, 1e-9)
	assert.Equal(t, model.ActionUseLocal, vr.Action)
}

func TestValidate_JustOverToleranceFlaggedLow(t *testing.T) {
	remote := &stubRemote{result: remoteLike(0.011)} // 1.1% > 1% tolerance
	v := newTestValidator(remote, DefaultConfig(), nil)

	vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, localResult())
	require.NoError(t, err)

	require.Len(t, vr.Discrepancies, 1)
	assert.Equal(t, "total", vr.Discrepancies[0].Field)
	assert.Equal(t, model.SeverityLow, vr.Discrepancies[0].Severity)
	// confidence = 1 - 0.1/3
	assert.InDelta(t, 1-0.1/3.0, vr.Confidence, 1e-9)
	assert.Equal(t, model.ActionUseLocal, vr.Action)
}

func TestValidate_TimeoutBecomesCriticalDiscrepancy(t *testing.T) {
	remote := &stubRemote{result: remoteLike(0), delay: 200 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	v := newTestValidator(remote, cfg, nil)

	vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, localResult())
	require.NoError(t, err, "a timeout must never surface as an error")

	assert.True(t, vr.TimedOut)
	assert.True(t, vr.HasCritical())
	assert.Less(t, vr.Confidence, 0.5)
	assert.Equal(t, model.ActionManualReview, vr.Action)
	assert.Nil(t, vr.Remote)
}

func TestValidate_RemoteFailureManualReview(t *testing.T) {
	remote := &stubRemote{err: ErrRemoteUnavailable}
	v := newTestValidator(remote, DefaultConfig(), nil)

	vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, localResult())
	require.NoError(t, err)

	assert.True(t, vr.HasCritical())
	assert.Equal(t, model.ActionManualReview, vr.Action)
}

func TestValidate_ComputesLocalWhenAbsent(t *testing.T) {
	remote := &stubRemote{result: &model.CalculationResult{Total: 2.0, Efficiency: 1.0, Difficulty: 2.0}}
	v := newTestValidator(remote, DefaultConfig(), nil)

	// Engine computes 1×(1+100/100)=2.0, efficiency 2.0/2=1.0, difficulty 2.0.
	vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, nil)
	require.NoError(t, err)

	require.NotNil(t, vr.Local)
	assert.Equal(t, 2.0, vr.Local.Total)
	assert.Empty(t, vr.Discrepancies)
}

func TestValidate_StrategySelection(t *testing.T) {
	// ~3% skew: one medium discrepancy, confidence 0.9.
	mediumSkew := 0.03

	tests := []struct {
		name     string
		strategy model.FallbackStrategy
		want     model.RecommendedAction
	}{
		{"conservative keeps local above 0.8", model.Conservative, model.ActionUseLocal},
		{"prefer remote", model.PreferRemote, model.ActionUseRemote},
		{"prefer local", model.PreferLocal, model.ActionUseLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = tt.strategy
			v := newTestValidator(&stubRemote{result: remoteLike(mediumSkew)}, cfg, nil)

			vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, localResult())
			require.NoError(t, err)
			assert.InDelta(t, 0.9, vr.Confidence, 1e-9)
			assert.Equal(t, tt.want, vr.Action)
		})
	}
}

func TestValidate_ConservativePicksRemoteOnLowConfidence(t *testing.T) {
	// ~8% skew on total also skews efficiency ~8%: two high discrepancies,
	// confidence 1 − 1.2/3 = 0.6.
	local := localResult()
	remoteRes := localResult()
	remoteRes.Total *= 1.08
	remoteRes.Efficiency *= 1.08

	cfg := DefaultConfig()
	cfg.Strategy = model.Conservative
	v := newTestValidator(&stubRemote{result: remoteRes}, cfg, nil)

	vr, err := v.Validate(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, local)
	require.NoError(t, err)

	require.Len(t, vr.Discrepancies, 2)
	assert.InDelta(t, 0.6, vr.Confidence, 1e-9)
	assert.Equal(t, model.ActionUseRemote, vr.Action)
}

func TestCalculateWithValidation_Sampling(t *testing.T) {
	ctx := &model.CalculationContext{HealthPct: 1}

	t.Run("unsampled call skips validation", func(t *testing.T) {
		remote := &stubRemote{result: remoteLike(0)}
		v := newTestValidator(remote, DefaultConfig(), func() float64 { return 0.99 })

		res, vr, err := v.CalculateWithValidation(context.Background(), []string{"r1"}, ctx, engine.Options{}, false)
		require.NoError(t, err)
		assert.Nil(t, vr)
		assert.NotNil(t, res)
		assert.Equal(t, int32(0), remote.calls.Load())
	})

	t.Run("sampled call validates", func(t *testing.T) {
		remote := &stubRemote{result: &model.CalculationResult{Total: 2.0, Efficiency: 1.0, Difficulty: 2.0}}
		v := newTestValidator(remote, DefaultConfig(), func() float64 { return 0.0 })

		_, vr, err := v.CalculateWithValidation(context.Background(), []string{"r1"}, ctx, engine.Options{}, false)
		require.NoError(t, err)
		require.NotNil(t, vr)
		assert.Equal(t, int32(1), remote.calls.Load())
	})

	t.Run("force overrides sampling", func(t *testing.T) {
		remote := &stubRemote{result: &model.CalculationResult{Total: 2.0, Efficiency: 1.0, Difficulty: 2.0}}
		v := newTestValidator(remote, DefaultConfig(), func() float64 { return 0.99 })

		_, vr, err := v.CalculateWithValidation(context.Background(), []string{"r1"}, ctx, engine.Options{}, true)
		require.NoError(t, err)
		require.NotNil(t, vr)
	})
}

func TestCalculateWithValidation_UsesRemoteWhenRecommended(t *testing.T) {
	remoteRes := &model.CalculationResult{Total: 2.06, Efficiency: 1.03, Difficulty: 2.0}

	cfg := DefaultConfig()
	cfg.Strategy = model.PreferRemote
	v := newTestValidator(&stubRemote{result: remoteRes}, cfg, nil)

	res, vr, err := v.CalculateWithValidation(context.Background(), []string{"r1"}, &model.CalculationContext{HealthPct: 1}, engine.Options{}, true)
	require.NoError(t, err)
	require.NotNil(t, vr)
	assert.Equal(t, model.ActionUseRemote, vr.Action)
	assert.Equal(t, 2.06, res.Total)
}

func TestValidator_Stats(t *testing.T) {
	remote := &stubRemote{result: remoteLike(0)}
	v := newTestValidator(remote, DefaultConfig(), nil)
	ctx := &model.CalculationContext{HealthPct: 1}

	for range 3 {
		_, err := v.Validate(context.Background(), []string{"r1"}, ctx, localResult())
		require.NoError(t, err)
	}

	remote.mu.Lock()
	remote.err = ErrRemoteUnavailable
	remote.mu.Unlock()
	_, err := v.Validate(context.Background(), []string{"r1"}, ctx, localResult())
	require.NoError(t, err)

	stats := v.Stats()
	assert.Equal(t, 4, stats.Validations)
	assert.Equal(t, 3, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 0.75, stats.ServerReliability, 1e-9)
}

func TestValidateBatch_WavesSettleIndependently(t *testing.T) {
	remote := &stubRemote{result: remoteLike(0), delay: 10 * time.Millisecond}
	v := newTestValidator(remote, DefaultConfig(), nil)

	requests := make([]BatchRequest, 7)
	for i := range requests {
		requests[i] = BatchRequest{
			RelicIDs: []string{"r1"},
			Context:  &model.CalculationContext{HealthPct: 1},
		}
	}

	results := v.ValidateBatch(context.Background(), requests)

	require.Len(t, results, 7)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		require.NoError(t, r.Err)
		require.NotNil(t, r.Result)
	}
	assert.LessOrEqual(t, remote.maxSeen.Load(), int32(3), "wave width must bound remote concurrency")
}

func TestValidateBatch_ItemFailureDoesNotAbortSiblings(t *testing.T) {
	remote := &stubRemote{result: remoteLike(0)}
	v := newTestValidator(remote, DefaultConfig(), nil)

	requests := []BatchRequest{
		{RelicIDs: []string{"r1"}, Context: &model.CalculationContext{HealthPct: 1}},
		{RelicIDs: []string{"r1"}, Context: &model.CalculationContext{HealthPct: 5}}, // invalid
		{RelicIDs: []string{"r1"}, Context: &model.CalculationContext{HealthPct: 1}},
	}

	results := v.ValidateBatch(context.Background(), requests)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.NotNil(t, results[0].Result)
	assert.NotNil(t, results[2].Result)
}
