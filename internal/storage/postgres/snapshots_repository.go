package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sourcemeter/server/internal/domain/scoring"
	"github.com/sourcemeter/server/internal/domain/snapshots"
)

func (r *SnapshotsRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// Upsert atomically inserts or replaces the snapshot for its composite key.
// The ON CONFLICT target is the uniqueness constraint on (source_id, domain,
// use_case, snapshot_date), which is what makes concurrent writers safe:
// exactly one row survives and the last write wins.
func (r *SnapshotsRepository) Upsert(ctx context.Context, snapshot *snapshots.Snapshot) error {
	query := `
		INSERT INTO reliability_snapshots
			(source_id, domain, use_case, snapshot_date, score, band, components, uncertainty, reasons, impact_metric, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (source_id, domain, use_case, snapshot_date) DO UPDATE SET
			score = EXCLUDED.score,
			band = EXCLUDED.band,
			components = EXCLUDED.components,
			uncertainty = EXCLUDED.uncertainty,
			reasons = EXCLUDED.reasons,
			impact_metric = EXCLUDED.impact_metric,
			version = EXCLUDED.version
		RETURNING id, created_at`

	err := r.queryer().QueryRow(ctx, query,
		snapshot.SourceID,
		snapshot.Domain,
		string(snapshot.UseCase),
		snapshot.Date,
		snapshot.Score,
		string(snapshot.Band),
		snapshot.Components,
		string(snapshot.Uncertainty),
		snapshot.Reasons,
		snapshot.ImpactMetric,
		snapshot.Version,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Exists reports whether a snapshot is stored for the composite key.
func (r *SnapshotsRepository) Exists(ctx context.Context, sourceID int64, domain string, useCase scoring.UseCase, date time.Time) (bool, error) {
	query := `
		SELECT 1 FROM reliability_snapshots
		WHERE source_id = $1 AND domain = $2 AND use_case = $3 AND snapshot_date = $4`

	var one int
	err := r.queryer().QueryRow(ctx, query, sourceID, domain, string(useCase), date).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot exists: %w", err)
	}
	return true, nil
}

const snapshotColumns = `
	s.id, s.source_id, src.ulid, src.name, s.domain, s.use_case, s.snapshot_date,
	s.score, s.band, s.components, s.uncertainty, s.reasons, s.impact_metric, s.version, s.created_at`

// TopK returns snapshots for the exact (domain, use case, date), ordered by
// score descending.
func (r *SnapshotsRepository) TopK(ctx context.Context, domain string, useCase scoring.UseCase, date time.Time, limit int) ([]snapshots.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM reliability_snapshots s
		JOIN sources src ON src.id = s.source_id
		WHERE s.domain = $1 AND s.use_case = $2 AND s.snapshot_date = $3
		ORDER BY s.score DESC, src.name
		LIMIT $4`

	rows, err := r.queryer().Query(ctx, query, domain, string(useCase), date, limit)
	if err != nil {
		return nil, fmt.Errorf("top-k snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshotRows(rows)
}

// LatestDateOnOrBefore resolves the most recent snapshot date <= date for the
// (domain, use case) pair, or nil when the pair was never scored.
func (r *SnapshotsRepository) LatestDateOnOrBefore(ctx context.Context, domain string, useCase scoring.UseCase, date time.Time) (*time.Time, error) {
	query := `
		SELECT MAX(snapshot_date) FROM reliability_snapshots
		WHERE domain = $1 AND use_case = $2 AND snapshot_date <= $3`

	var latest *time.Time
	err := r.queryer().QueryRow(ctx, query, domain, string(useCase), date).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot date: %w", err)
	}
	return latest, nil
}

// CompareDomains aggregates per-domain statistics over the snapshot set each
// domain resolves to on or before date, mirroring the top-k fallback.
func (r *SnapshotsRepository) CompareDomains(ctx context.Context, useCase scoring.UseCase, date time.Time) ([]snapshots.DomainComparison, error) {
	query := `
		WITH resolved AS (
			SELECT domain, MAX(snapshot_date) AS snapshot_date
			FROM reliability_snapshots
			WHERE use_case = $1 AND snapshot_date <= $2
			GROUP BY domain
		),
		current_rows AS (
			SELECT s.*
			FROM reliability_snapshots s
			JOIN resolved r ON r.domain = s.domain AND r.snapshot_date = s.snapshot_date
			WHERE s.use_case = $1
		)
		SELECT agg.domain, agg.source_count, agg.avg_score, top.name, top.score
		FROM (
			SELECT domain, COUNT(*) AS source_count, ROUND(AVG(score)::numeric, 3) AS avg_score
			FROM current_rows
			GROUP BY domain
		) agg
		JOIN LATERAL (
			SELECT src.name, cr.score
			FROM current_rows cr
			JOIN sources src ON src.id = cr.source_id
			WHERE cr.domain = agg.domain
			ORDER BY cr.score DESC, src.name
			LIMIT 1
		) top ON TRUE
		ORDER BY agg.avg_score DESC, agg.domain`

	rows, err := r.queryer().Query(ctx, query, string(useCase), date)
	if err != nil {
		return nil, fmt.Errorf("compare domains: %w", err)
	}
	defer rows.Close()

	var comparisons []snapshots.DomainComparison
	for rows.Next() {
		var c snapshots.DomainComparison
		if err := rows.Scan(&c.Domain, &c.SourceCount, &c.AvgScore, &c.TopSource, &c.TopScore); err != nil {
			return nil, fmt.Errorf("scan comparison row: %w", err)
		}
		comparisons = append(comparisons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparison rows: %w", err)
	}
	return comparisons, nil
}

// Stats returns corpus-wide snapshot statistics.
func (r *SnapshotsRepository) Stats(ctx context.Context) (snapshots.Stats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT domain), MAX(snapshot_date)
		FROM reliability_snapshots`

	var stats snapshots.Stats
	err := r.queryer().QueryRow(ctx, query).Scan(&stats.TotalSnapshots, &stats.DistinctDomain, &stats.LatestDate)
	if err != nil {
		return snapshots.Stats{}, fmt.Errorf("snapshot stats: %w", err)
	}
	return stats, nil
}

func scanSnapshotRows(rows pgx.Rows) ([]snapshots.Snapshot, error) {
	var result []snapshots.Snapshot
	for rows.Next() {
		var s snapshots.Snapshot
		var useCase, band, uncertainty string
		err := rows.Scan(
			&s.ID,
			&s.SourceID,
			&s.SourceULID,
			&s.SourceName,
			&s.Domain,
			&useCase,
			&s.Date,
			&s.Score,
			&band,
			&s.Components,
			&uncertainty,
			&s.Reasons,
			&s.ImpactMetric,
			&s.Version,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		s.UseCase = scoring.UseCase(useCase)
		s.Band = scoring.Band(band)
		s.Uncertainty = scoring.Uncertainty(uncertainty)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}
