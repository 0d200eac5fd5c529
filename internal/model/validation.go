package model

import (
	"fmt"
	"time"
)

// Severity buckets a discrepancy by its percentage difference.
type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical

	severityCount
)

var severityNames = [severityCount]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < severityCount {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// Weight returns the confidence penalty weight of the severity.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityLow:
		return 0.1
	case SeverityMedium:
		return 0.3
	case SeverityHigh:
		return 0.6
	default:
		return 1.0
	}
}

// MarshalJSON writes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses a severity name.
func (s *Severity) UnmarshalJSON(b []byte) error {
	name := unquote(b)
	for i, n := range severityNames {
		if n == name {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", name)
}

// SeverityForPct buckets an absolute percentage difference.
func SeverityForPct(pct float64) Severity {
	switch {
	case pct < 2:
		return SeverityLow
	case pct < 5:
		return SeverityMedium
	case pct < 10:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Discrepancy is a field-level mismatch between local and remote results.
type Discrepancy struct {
	Field    string   `json:"field"`
	Local    float64  `json:"clientValue"`
	Remote   float64  `json:"serverValue"`
	AbsDiff  float64  `json:"difference"`
	PctDiff  float64  `json:"percentDifference"`
	Severity Severity `json:"severity"`
}

// RecommendedAction tells the caller which result to trust.
type RecommendedAction string

const (
	ActionUseLocal     RecommendedAction = "use_local"
	ActionUseRemote    RecommendedAction = "use_remote"
	ActionManualReview RecommendedAction = "manual_review"
)

// FallbackStrategy selects a result when confidence is inconclusive.
type FallbackStrategy string

const (
	PreferLocal  FallbackStrategy = "prefer_local"
	PreferRemote FallbackStrategy = "prefer_remote"
	Conservative FallbackStrategy = "conservative"
)

// ValidationResult compares a local and a remote calculation.
type ValidationResult struct {
	Local         *CalculationResult `json:"local"`
	Remote        *CalculationResult `json:"remote,omitempty"`
	Discrepancies []Discrepancy      `json:"discrepancies"`
	Confidence    float64            `json:"confidence"` // in [0,1]
	Action        RecommendedAction  `json:"recommendedAction"`
	TimedOut      bool               `json:"timedOut,omitempty"`
	Duration      time.Duration      `json:"-"`
}

// HasCritical reports whether any discrepancy is critical.
func (v *ValidationResult) HasCritical() bool {
	for _, d := range v.Discrepancies {
		if d.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ValidationStats is a snapshot of the validator's running statistics.
type ValidationStats struct {
	Validations       int           `json:"validations"`
	Passed            int           `json:"passed"`
	Failed            int           `json:"failed"`
	AvgDiscrepancyPct float64       `json:"avgDiscrepancyPct"`
	AvgDuration       time.Duration `json:"avgDurationMs"`
	ServerReliability float64       `json:"serverReliability"` // over last 20 runs
}
