package engine

import "github.com/mrdeadlift/relic-engine/internal/model"

// Catalog resolves relic identifiers to loaded relic definitions.
// Implemented by the embedded catalog (internal/data) and the
// PostgreSQL-backed repository (internal/db).
type Catalog interface {
	// Get returns the relic for id, or nil if unknown.
	Get(id string) *model.Relic
	// All returns every relic in the catalog.
	All() []*model.Relic
}
