package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrdeadlift/relic-engine/internal/data"
	"github.com/mrdeadlift/relic-engine/internal/model"
)

// RelicRepository reads and writes relic definitions.
type RelicRepository struct {
	db *pgxpool.Pool
}

// NewRelicRepository creates a repository over the given pool.
func NewRelicRepository(db *DB) *RelicRepository {
	return &RelicRepository{db: db.Pool()}
}

// LoadByID loads one relic. Returns nil, nil when the relic does not exist.
func (r *RelicRepository) LoadByID(ctx context.Context, id string) (*model.Relic, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, category, rarity, difficulty, effects, conflicts_with
		FROM relics
		WHERE id = $1
	`, id)

	relic, err := scanRelic(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying relic %q: %w", id, err)
	}
	return relic, nil
}

// LoadAll loads every relic definition.
func (r *RelicRepository) LoadAll(ctx context.Context) ([]model.Relic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, category, rarity, difficulty, effects, conflicts_with
		FROM relics
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying relics: %w", err)
	}
	defer rows.Close()

	var out []model.Relic
	for rows.Next() {
		relic, err := scanRelic(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relic row: %w", err)
		}
		out = append(out, *relic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relic rows: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces a relic definition.
func (r *RelicRepository) Upsert(ctx context.Context, relic *model.Relic) error {
	if err := relic.Validate(); err != nil {
		return fmt.Errorf("rejecting relic upsert: %w", err)
	}
	effects, err := json.Marshal(relic.Effects)
	if err != nil {
		return fmt.Errorf("encoding effects for relic %q: %w", relic.ID, err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO relics (id, name, category, rarity, difficulty, effects, conflicts_with, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			rarity = EXCLUDED.rarity,
			difficulty = EXCLUDED.difficulty,
			effects = EXCLUDED.effects,
			conflicts_with = EXCLUDED.conflicts_with,
			updated_at = EXCLUDED.updated_at
	`, relic.ID, relic.Name, relic.Category, string(relic.Rarity), relic.Difficulty,
		effects, relic.ConflictsWith, time.Now())
	if err != nil {
		return fmt.Errorf("upserting relic %q: %w", relic.ID, err)
	}
	return nil
}

// Delete removes a relic definition. Deleting an unknown id is not an error.
func (r *RelicRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM relics WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting relic %q: %w", id, err)
	}
	return nil
}

// Snapshot loads all relics into an immutable in-memory catalog for the
// engine. Call again to pick up balance changes.
func (r *RelicRepository) Snapshot(ctx context.Context) (*data.Catalog, error) {
	relics, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return data.New(relics)
}

// Seed inserts the given relics if the table is empty. Used at startup so
// a fresh database serves the embedded catalog.
func (r *RelicRepository) Seed(ctx context.Context, relics []*model.Relic) error {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM relics`).Scan(&count); err != nil {
		return fmt.Errorf("counting relics: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, relic := range relics {
		if err := r.Upsert(ctx, relic); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelic(row rowScanner) (*model.Relic, error) {
	var (
		relic      model.Relic
		rarity     string
		effectsRaw []byte
	)
	if err := row.Scan(&relic.ID, &relic.Name, &relic.Category, &rarity,
		&relic.Difficulty, &effectsRaw, &relic.ConflictsWith); err != nil {
		return nil, err
	}
	relic.Rarity = model.Rarity(rarity)
	if err := json.Unmarshal(effectsRaw, &relic.Effects); err != nil {
		return nil, fmt.Errorf("decoding effects for relic %q: %w", relic.ID, err)
	}
	return &relic, nil
}
