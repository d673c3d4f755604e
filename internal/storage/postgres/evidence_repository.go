package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sourcemeter/server/internal/domain/evidence"
	"github.com/sourcemeter/server/internal/domain/ids"
)

func (r *EvidenceRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const evidenceColumns = `id, external_id, source_name, domain, title, abstract, published_at, raw_date, created_at`

// ListBySourceAndDomain returns evidence items matching the source name
// pattern and domain tag, both case-insensitive, capped at limit. The source
// reference is a weak name match because sources may not pre-exist their
// evidence.
func (r *EvidenceRepository) ListBySourceAndDomain(ctx context.Context, sourceName, domain string, limit int) ([]evidence.Item, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence_items
		WHERE source_name ILIKE '%' || $1 || '%'
		  AND domain ILIKE '%' || $2 || '%'
		ORDER BY published_at DESC NULLS LAST, id
		LIMIT $3`

	rows, err := r.queryer().Query(ctx, query, sourceName, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	return scanEvidenceRows(rows)
}

// SourcesWithEvidence returns distinct source names with at least one
// evidence item tagged with the domain.
func (r *EvidenceRepository) SourcesWithEvidence(ctx context.Context, domain string) ([]string, error) {
	query := `
		SELECT DISTINCT source_name
		FROM evidence_items
		WHERE domain ILIKE '%' || $1 || '%'
		ORDER BY source_name`

	rows, err := r.queryer().Query(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("list sources with evidence: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// DistinctDomains returns every domain tag observed across the corpus,
// normalized to lowercase.
func (r *EvidenceRepository) DistinctDomains(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT LOWER(domain) FROM evidence_items ORDER BY 1`

	rows, err := r.queryer().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list distinct domains: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// Insert stores one evidence item. Development seeding only; the production
// corpus is written by the upstream ingestion service.
func (r *EvidenceRepository) Insert(ctx context.Context, item evidence.Item) error {
	if item.ID == "" {
		item.ID = ids.MustNewULID()
	}
	query := `
		INSERT INTO evidence_items (id, external_id, source_name, domain, title, abstract, published_at, raw_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO NOTHING`

	_, err := r.queryer().Exec(ctx, query,
		item.ID,
		item.ExternalID,
		item.SourceName,
		evidence.NormalizeDomain(item.Domain),
		item.Title,
		item.Abstract,
		item.PublishedAt,
		item.RawDate,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func scanEvidenceRows(rows pgx.Rows) ([]evidence.Item, error) {
	var items []evidence.Item
	for rows.Next() {
		var item evidence.Item
		err := rows.Scan(
			&item.ID,
			&item.ExternalID,
			&item.SourceName,
			&item.Domain,
			&item.Title,
			&item.Abstract,
			&item.PublishedAt,
			&item.RawDate,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evidence row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence rows: %w", err)
	}
	return items, nil
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return values, nil
}
