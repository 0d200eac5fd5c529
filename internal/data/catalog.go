// Package data ships the embedded relic catalog and its loader. The
// embedded seed is the default data source; deployments with a live
// balance table use the PostgreSQL catalog in internal/db instead.
package data

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

//go:embed relics.json
var relicsJSON []byte

// Catalog is an immutable in-memory relic table. Implements
// engine.Catalog. Built once at startup and shared; lookups need no
// locking because the table never changes after Load.
type Catalog struct {
	byID  map[string]*model.Relic
	order []string // stable iteration order for All
}

// Load parses and validates the embedded relic catalog.
func Load() (*Catalog, error) {
	return loadFrom(relicsJSON)
}

// LoadFromJSON builds a catalog from caller-supplied JSON. Used by tests
// and by tooling that previews balance changes.
func LoadFromJSON(raw []byte) (*Catalog, error) {
	return loadFrom(raw)
}

func loadFrom(raw []byte) (*Catalog, error) {
	var relics []model.Relic
	if err := json.Unmarshal(raw, &relics); err != nil {
		return nil, fmt.Errorf("parsing relic catalog: %w", err)
	}
	return New(relics)
}

// New builds a catalog from already-decoded relics. The PostgreSQL
// repository uses this to snapshot its rows into a lock-free table.
func New(relics []model.Relic) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*model.Relic, len(relics))}
	for i := range relics {
		r := &relics[i]
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid relic catalog entry: %w", err)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate relic id %q in catalog", r.ID)
		}
		c.byID[r.ID] = r
		c.order = append(c.order, r.ID)
	}
	sort.Strings(c.order)

	slog.Info("relic catalog loaded", "relics", len(c.byID))
	return c, nil
}

// Get returns the relic for id, or nil if unknown.
func (c *Catalog) Get(id string) *model.Relic {
	return c.byID[id]
}

// All returns every relic, ordered by id.
func (c *Catalog) All() []*model.Relic {
	out := make([]*model.Relic, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.byID)
}
