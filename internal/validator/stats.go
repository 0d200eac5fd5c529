package validator

import (
	"sync"
	"time"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

// reliabilityWindow is the number of recent validations used for the
// rolling server-reliability figure.
const reliabilityWindow = 20

// stats accumulates running validation statistics. Mutex-guarded: the
// validator is shared across request goroutines.
type stats struct {
	mu sync.Mutex

	validations int
	passed      int
	failed      int

	discrepancyPctSum float64
	discrepancyCount  int
	durationSum       time.Duration

	ring    [reliabilityWindow]bool // true = remote responded in time
	ringIdx int
	ringLen int
}

// record folds one validation outcome into the counters.
func (s *stats) record(vr *model.ValidationResult, remoteOK bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validations++
	if len(vr.Discrepancies) == 0 && remoteOK {
		s.passed++
	} else {
		s.failed++
	}
	for _, d := range vr.Discrepancies {
		s.discrepancyPctSum += d.PctDiff
		s.discrepancyCount++
	}
	s.durationSum += vr.Duration

	s.ring[s.ringIdx] = remoteOK
	s.ringIdx = (s.ringIdx + 1) % reliabilityWindow
	if s.ringLen < reliabilityWindow {
		s.ringLen++
	}
}

// snapshot returns a copy of the current statistics.
func (s *stats) snapshot() model.ValidationStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := model.ValidationStats{
		Validations: s.validations,
		Passed:      s.passed,
		Failed:      s.failed,
	}
	if s.discrepancyCount > 0 {
		out.AvgDiscrepancyPct = s.discrepancyPctSum / float64(s.discrepancyCount)
	}
	if s.validations > 0 {
		out.AvgDuration = s.durationSum / time.Duration(s.validations)
	}
	if s.ringLen > 0 {
		ok := 0
		for i := 0; i < s.ringLen; i++ {
			if s.ring[i] {
				ok++
			}
		}
		out.ServerReliability = float64(ok) / float64(s.ringLen)
	}
	return out
}
