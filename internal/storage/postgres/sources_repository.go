package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sourcemeter/server/internal/domain/ids"
	"github.com/sourcemeter/server/internal/domain/sources"
)

func (r *SourcesRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const sourceColumns = `id, ulid, name, normalized_name, category, publisher, impact_metric, created_at, updated_at`

// GetByNormalized returns the source with the exact normalized name, or nil
// when absent.
func (r *SourcesRepository) GetByNormalized(ctx context.Context, normalized string) (*sources.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE normalized_name = $1`
	return r.scanOne(ctx, query, normalized)
}

// FindByPattern returns the first source whose normalized name contains the
// fragment, or nil when none match.
func (r *SourcesRepository) FindByPattern(ctx context.Context, fragment string) (*sources.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE normalized_name LIKE '%' || $1 || '%' ORDER BY id LIMIT 1`
	return r.scanOne(ctx, query, fragment)
}

// Create inserts a source. A concurrent insert of the same normalized name
// resolves to the existing row via ON CONFLICT, so callers always end up with
// exactly one source per name.
func (r *SourcesRepository) Create(ctx context.Context, source *sources.Source) error {
	if source.ULID == "" {
		source.ULID = ids.MustNewULID()
	}

	query := `
		INSERT INTO sources (ulid, name, normalized_name, category, publisher, impact_metric)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (normalized_name) DO UPDATE SET updated_at = NOW()
		RETURNING ` + sourceColumns

	row := r.queryer().QueryRow(ctx, query,
		source.ULID,
		source.Name,
		source.Normalized,
		source.Category,
		source.Publisher,
		source.ImpactMetric,
	)
	created, err := scanSource(row)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	*source = *created
	return nil
}

func (r *SourcesRepository) scanOne(ctx context.Context, query string, args ...any) (*sources.Source, error) {
	row := r.queryer().QueryRow(ctx, query, args...)
	source, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query source: %w", err)
	}
	return source, nil
}

func scanSource(row pgx.Row) (*sources.Source, error) {
	var s sources.Source
	err := row.Scan(
		&s.ID,
		&s.ULID,
		&s.Name,
		&s.Normalized,
		&s.Category,
		&s.Publisher,
		&s.ImpactMetric,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
