package validator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

// batchWaveWidth bounds concurrent remote calls per wave so batch
// validation cannot flood the remote service.
const batchWaveWidth = 3

// BatchRequest is one item of a batch validation run.
type BatchRequest struct {
	RelicIDs []string                  `json:"relicIds"`
	Context  *model.CalculationContext `json:"conditionalEffects"`
}

// BatchResult pairs a request index with its validation outcome.
type BatchResult struct {
	Index  int                     `json:"index"`
	Result *model.ValidationResult `json:"result,omitempty"`
	Err    error                   `json:"-"`
}

// ValidateBatch validates requests in waves of batchWaveWidth. Each wave
// fully settles before the next starts, and a failed item never aborts
// its siblings; per-item errors are reported in the result slice.
func (v *Validator) ValidateBatch(ctx context.Context, requests []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(requests))

	for start := 0; start < len(requests); start += batchWaveWidth {
		end := start + batchWaveWidth
		if end > len(requests) {
			end = len(requests)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				vr, err := v.Validate(ctx, requests[i].RelicIDs, requests[i].Context, nil)
				results[i] = BatchResult{Index: i, Result: vr, Err: err}
				return nil // item failures stay in results
			})
		}
		_ = g.Wait() // goroutines always return nil
	}
	return results
}
