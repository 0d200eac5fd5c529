package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CalculationContext is the situational snapshot supplied per calculation.
// The engine treats it as read-only; callers may reuse one instance across
// calls as long as they do not mutate it mid-calculation.
type CalculationContext struct {
	WeaponType  string   `json:"weaponType,omitempty"`
	CombatStyle string   `json:"combatStyle,omitempty"`
	EnemyType   string   `json:"enemyType,omitempty"`
	HealthPct   float64  `json:"healthPct"` // 0.0–1.0, fraction of max health
	ComboCount  int      `json:"comboCount"`
	FirstHit    bool     `json:"firstHit"`
	Environment []string `json:"environment,omitempty"`
}

// Canonical returns a stable serialization of the context. Equal contexts
// produce equal strings regardless of Environment ordering, so the string
// is usable as a cache-key component.
func (c *CalculationContext) Canonical() string {
	env := make([]string, len(c.Environment))
	copy(env, c.Environment)
	sort.Strings(env)

	var sb strings.Builder
	sb.WriteString("w=")
	sb.WriteString(c.WeaponType)
	sb.WriteString("|s=")
	sb.WriteString(c.CombatStyle)
	sb.WriteString("|e=")
	sb.WriteString(c.EnemyType)
	sb.WriteString("|h=")
	sb.WriteString(strconv.FormatFloat(c.HealthPct, 'f', 4, 64))
	sb.WriteString("|c=")
	sb.WriteString(strconv.Itoa(c.ComboCount))
	sb.WriteString("|f=")
	sb.WriteString(strconv.FormatBool(c.FirstHit))
	sb.WriteString("|env=")
	sb.WriteString(strings.Join(env, ","))
	return sb.String()
}

// HasEnvironment reports whether the given environment tag is active.
func (c *CalculationContext) HasEnvironment(tag string) bool {
	for _, t := range c.Environment {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate rejects malformed contexts before any computation runs.
func (c *CalculationContext) Validate() error {
	if c == nil {
		return fmt.Errorf("nil calculation context")
	}
	if c.HealthPct < 0 || c.HealthPct > 1 {
		return fmt.Errorf("health fraction %.4f outside [0,1]", c.HealthPct)
	}
	if c.ComboCount < 0 {
		return fmt.Errorf("negative combo count %d", c.ComboCount)
	}
	return nil
}
