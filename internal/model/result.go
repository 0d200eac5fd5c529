package model

import (
	"math"
	"time"
)

// CalculationResult is the structured outcome of one calculation.
// Numeric components are rounded at assembly time: multiplier and
// efficiency to two decimals, difficulty to one.
type CalculationResult struct {
	Total         float64 `json:"total"`
	Base          float64 `json:"base"`
	Synergy       float64 `json:"synergy"`
	Conditional   float64 `json:"conditional"`
	Environmental float64 `json:"environmental"`
	Efficiency    float64 `json:"efficiency"`
	Difficulty    float64 `json:"difficulty"` // average relic difficulty

	RelicDetails []RelicDetail        `json:"relicDetails,omitempty"`
	Breakdown    []EffectContribution `json:"breakdown,omitempty"`
	Trace        []TraceStep          `json:"trace,omitempty"`

	Metadata ResultMetadata `json:"metadata"`
}

// RelicDetail reports how one selected relic participated.
type RelicDetail struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Difficulty   float64 `json:"difficulty"`
	Contribution float64 `json:"contribution"`
	Excluded     bool    `json:"excluded,omitempty"`
	ExcludedBy   string  `json:"excludedBy,omitempty"` // relic id that suppressed it
}

// EffectContribution is one entry of the ordered effect breakdown.
// Effects replaced by a later overwrite appear with Active false so the
// UI can show what was displaced; gated-off and conflicted effects are
// not emitted at all.
type EffectContribution struct {
	RelicID  string     `json:"relicId"`
	EffectID string     `json:"effectId"`
	Kind     EffectKind `json:"kind"`
	Active   bool       `json:"active"`
	Value    float64    `json:"value"` // contributed (possibly scaled) value
}

// TraceStep is one entry of the optional step-by-step trace.
type TraceStep struct {
	Stage  string  `json:"stage"` // base, additive, multiplicative, synergy
	Detail string  `json:"detail"`
	Value  float64 `json:"value"` // running total after the step
}

// ResultMetadata records provenance so callers can assert how a result
// was produced.
type ResultMetadata struct {
	CalculatedAt time.Time `json:"calculatedAt"`
	RequestID    string    `json:"requestId,omitempty"` // key fingerprint

	Cached   bool `json:"cached"`
	Offline  bool `json:"offline"`
	Fallback bool `json:"fallback"`
	Local    bool `json:"clientSide"` // produced by the local detailed engine

	// Performance counters, populated when requested.
	DurationMicros    int64 `json:"durationMicros,omitempty"`
	EffectsConsidered int   `json:"effectsConsidered,omitempty"`
	EffectsApplied    int   `json:"effectsApplied,omitempty"`
}

// Round2 rounds to two decimal places (multiplier, efficiency).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place (difficulty).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
