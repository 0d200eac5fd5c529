package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectKindJSON(t *testing.T) {
	var e Effect
	raw := `{"id":"fx1","kind":"critical_multiplier","value":1.5,"stacking":"unique"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	assert.Equal(t, EffectCriticalMultiplier, e.Kind)
	assert.Equal(t, StackUnique, e.Stacking)

	out, err := json.Marshal(e.Kind)
	require.NoError(t, err)
	assert.Equal(t, `"critical_multiplier"`, string(out))
}

func TestParseEffectKind_Unknown(t *testing.T) {
	_, err := ParseEffectKind("lifesteal")
	assert.Error(t, err)
}

func TestConditionKindIsNumeric(t *testing.T) {
	assert.True(t, ConditionHealthBelow.IsNumeric())
	assert.True(t, ConditionComboCount.IsNumeric())
	assert.False(t, ConditionWeaponType.IsNumeric())
	assert.False(t, ConditionEnemyType.IsNumeric())
	assert.False(t, ConditionChainFirst.IsNumeric())
	assert.False(t, ConditionCombatStyle.IsNumeric())
}

func TestEffectValidate(t *testing.T) {
	tests := []struct {
		name    string
		effect  Effect
		wantErr bool
	}{
		{"valid", Effect{ID: "fx", Kind: EffectAttack, Stacking: StackAdditive, Value: 0.1}, false},
		{"empty id", Effect{Kind: EffectAttack}, true},
		{"bad kind", Effect{ID: "fx", Kind: EffectKindCount}, true},
		{"bad condition", Effect{ID: "fx", Kind: EffectAttack, Condition: &Condition{Kind: conditionKindCount}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.effect.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRelicValidate(t *testing.T) {
	valid := Relic{
		ID: "r1", Name: "Blade Sigil", Category: "attack", Rarity: RarityRare,
		Difficulty: 2.5,
		Effects:    []Effect{{ID: "fx", Kind: EffectPercentage, Stacking: StackAdditive, Value: 12}},
	}
	require.NoError(t, valid.Validate())

	broken := valid
	broken.Effects = []Effect{{Kind: EffectAttack}}
	assert.Error(t, broken.Validate())

	noName := valid
	noName.Name = ""
	assert.Error(t, noName.Validate())
}

func TestRelicInConflictWith(t *testing.T) {
	r := Relic{ID: "r1", ConflictsWith: []string{"r2", "r3"}}
	assert.True(t, r.InConflictWith("r2"))
	assert.False(t, r.InConflictWith("r9"))
}

func TestSeverityForPct(t *testing.T) {
	tests := []struct {
		pct  float64
		want Severity
	}{
		{0.5, SeverityLow},
		{1.9, SeverityLow},
		{2.0, SeverityMedium},
		{4.9, SeverityMedium},
		{5.0, SeverityHigh},
		{9.9, SeverityHigh},
		{10.0, SeverityCritical},
		{50, SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityForPct(tt.pct), "pct=%.1f", tt.pct)
	}
}

func TestSeverityWeights(t *testing.T) {
	assert.InDelta(t, 0.1, SeverityLow.Weight(), 1e-9)
	assert.InDelta(t, 0.3, SeverityMedium.Weight(), 1e-9)
	assert.InDelta(t, 0.6, SeverityHigh.Weight(), 1e-9)
	assert.InDelta(t, 1.0, SeverityCritical.Weight(), 1e-9)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2349))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, 2.5, Round1(2.46))
}
