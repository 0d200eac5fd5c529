package model

import "fmt"

// MaxSelectionSize is the hard cap on relics in one calculation.
const MaxSelectionSize = 9

// Rarity grades a relic. Opaque to the engine except for display.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Relic is a selectable modifier bundle. Immutable once loaded: the
// engine never mutates a relic, so one catalog instance can serve
// concurrent calculations without copying.
type Relic struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Rarity        Rarity   `json:"rarity"`
	Difficulty    float64  `json:"difficulty"`
	Effects       []Effect `json:"effects"`
	ConflictsWith []string `json:"conflictsWith,omitempty"`
}

// InConflictWith reports whether the relic declares a conflict with id.
func (r *Relic) InConflictWith(id string) bool {
	for _, c := range r.ConflictsWith {
		if c == id {
			return true
		}
	}
	return false
}

// Validate checks structural sanity of a loaded relic.
func (r *Relic) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("relic has empty id")
	}
	if r.Name == "" {
		return fmt.Errorf("relic %s: empty name", r.ID)
	}
	if r.Category == "" {
		return fmt.Errorf("relic %s: empty category", r.ID)
	}
	if r.Difficulty < 0 {
		return fmt.Errorf("relic %s: negative difficulty %.2f", r.ID, r.Difficulty)
	}
	for i := range r.Effects {
		if err := r.Effects[i].Validate(); err != nil {
			return fmt.Errorf("relic %s: %w", r.ID, err)
		}
	}
	return nil
}
