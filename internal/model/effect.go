package model

import "fmt"

// EffectKind is the closed set of effect types a relic can carry.
// Kinds are dispatched exhaustively in the engine; adding a kind here
// requires updating the priority table and bucket assignment there.
type EffectKind uint8

const (
	EffectAttack             EffectKind = iota // flat attack bonus
	EffectPercentage                           // percentage attack bonus
	EffectMultiplier                           // raw damage multiplier
	EffectCriticalMultiplier                   // critical-hit multiplier
	EffectWeaponSpecific                       // bonus tied to a weapon type
	EffectConditionalDamage                    // bonus gated on combat state

	EffectKindCount
)

var effectKindNames = [EffectKindCount]string{
	"attack",
	"percentage",
	"multiplier",
	"critical_multiplier",
	"weapon_specific",
	"conditional_damage",
}

func (k EffectKind) String() string {
	if k < EffectKindCount {
		return effectKindNames[k]
	}
	return fmt.Sprintf("effect_kind(%d)", uint8(k))
}

// ParseEffectKind maps a catalog/wire name to its EffectKind.
func ParseEffectKind(s string) (EffectKind, error) {
	for k, name := range effectKindNames {
		if name == s {
			return EffectKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown effect kind %q", s)
}

// StackingRule is the policy for combining repeated effects of one kind.
type StackingRule uint8

const (
	StackAdditive StackingRule = iota
	StackMultiplicative
	StackOverwrite
	StackUnique

	stackingRuleCount
)

var stackingRuleNames = [stackingRuleCount]string{
	"additive",
	"multiplicative",
	"overwrite",
	"unique",
}

func (r StackingRule) String() string {
	if r < stackingRuleCount {
		return stackingRuleNames[r]
	}
	return fmt.Sprintf("stacking_rule(%d)", uint8(r))
}

// ParseStackingRule maps a catalog/wire name to its StackingRule.
func ParseStackingRule(s string) (StackingRule, error) {
	for r, name := range stackingRuleNames {
		if name == s {
			return StackingRule(r), nil
		}
	}
	return 0, fmt.Errorf("unknown stacking rule %q", s)
}

// MarshalJSON writes the kind as its catalog name.
func (k EffectKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses a catalog name into the kind.
func (k *EffectKind) UnmarshalJSON(b []byte) error {
	parsed, err := ParseEffectKind(unquote(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalJSON writes the rule as its catalog name.
func (r StackingRule) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON parses a catalog name into the rule.
func (r *StackingRule) UnmarshalJSON(b []byte) error {
	parsed, err := ParseStackingRule(unquote(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ConditionKind is the closed set of activation predicates.
type ConditionKind uint8

const (
	ConditionWeaponType  ConditionKind = iota // weapon type equals Target
	ConditionCombatStyle                      // combat style equals Target
	ConditionHealthBelow                      // health fraction at or below Value
	ConditionChainFirst                       // first hit of an attack chain
	ConditionEnemyType                        // enemy type equals Target
	ConditionComboCount                       // combo counter at or above Value

	conditionKindCount
)

var conditionKindNames = [conditionKindCount]string{
	"weapon_type",
	"combat_style",
	"health_below",
	"chain_first",
	"enemy_type",
	"combo_count",
}

func (k ConditionKind) String() string {
	if k < conditionKindCount {
		return conditionKindNames[k]
	}
	return fmt.Sprintf("condition_kind(%d)", uint8(k))
}

// ParseConditionKind maps a catalog/wire name to its ConditionKind.
func ParseConditionKind(s string) (ConditionKind, error) {
	for k, name := range conditionKindNames {
		if name == s {
			return ConditionKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown condition kind %q", s)
}

// MarshalJSON writes the kind as its catalog name.
func (k ConditionKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses a catalog name into the kind.
func (k *ConditionKind) UnmarshalJSON(b []byte) error {
	parsed, err := ParseConditionKind(unquote(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func unquote(b []byte) string {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// IsNumeric reports whether the condition scales the effect value
// (health/combo) rather than acting as a boolean gate.
func (k ConditionKind) IsNumeric() bool {
	return k == ConditionHealthBelow || k == ConditionComboCount
}

// Condition is a pure-data activation predicate attached to an Effect.
// Evaluation lives in the engine; a Condition never inspects context itself.
type Condition struct {
	Kind   ConditionKind `json:"kind"`
	Value  float64       `json:"value,omitempty"`  // threshold for numeric kinds
	Target string        `json:"target,omitempty"` // match value for enumerated kinds
}

// Effect is a single modifier carried by a relic. Immutable once loaded.
type Effect struct {
	ID        string       `json:"id"`
	Kind      EffectKind   `json:"kind"`
	Value     float64      `json:"value"`
	Stacking  StackingRule `json:"stacking"`
	Condition *Condition   `json:"condition,omitempty"` // nil means always active
	AppliesTo []string     `json:"appliesTo,omitempty"` // damage categories

	// Declared scaling range for numeric conditions. When MaxValue is not
	// above MinValue the scaled value is unconstrained.
	MinValue float64 `json:"minValue,omitempty"`
	MaxValue float64 `json:"maxValue,omitempty"`
}

// HasRange reports whether the effect declares a scaling clamp range.
func (e *Effect) HasRange() bool {
	return e.MaxValue > e.MinValue
}

// Validate checks structural sanity of a loaded effect.
func (e *Effect) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("effect has empty id")
	}
	if e.Kind >= EffectKindCount {
		return fmt.Errorf("effect %s: invalid kind %d", e.ID, e.Kind)
	}
	if e.Stacking >= stackingRuleCount {
		return fmt.Errorf("effect %s: invalid stacking rule %d", e.ID, e.Stacking)
	}
	if e.Condition != nil && e.Condition.Kind >= conditionKindCount {
		return fmt.Errorf("effect %s: invalid condition kind %d", e.ID, e.Condition.Kind)
	}
	return nil
}
