package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.NotZero(t, c.Len())

	// Every entry already passed validation; spot-check a known relic.
	r := c.Get("executioner-brand")
	require.NotNil(t, r)
	assert.Equal(t, "critical", r.Category)
	assert.True(t, r.InConflictWith("grim-pendant"))
	require.Len(t, r.Effects, 1)
	assert.Equal(t, model.EffectCriticalMultiplier, r.Effects[0].Kind)
	assert.Equal(t, model.StackUnique, r.Effects[0].Stacking)

	assert.Nil(t, c.Get("no-such-relic"))
}

func TestLoad_AllOrderedByID(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	all := c.All()
	require.Len(t, all, c.Len())
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestLoadFromJSON_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `[{`},
		{"missing name", `[{"id":"x","category":"attack","difficulty":1,"effects":[]}]`},
		{"unknown kind", `[{"id":"x","name":"X","category":"attack","difficulty":1,"effects":[{"id":"fx","kind":"lifesteal","value":1,"stacking":"additive"}]}]`},
		{"duplicate id", `[
			{"id":"x","name":"X","category":"attack","difficulty":1,"effects":[]},
			{"id":"x","name":"X2","category":"attack","difficulty":1,"effects":[]}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromJSON([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
