package snapshots

import (
	"context"
	"time"

	"github.com/sourcemeter/server/internal/domain/scoring"
)

// Repository is the persistence contract for snapshots. Upsert must leave at
// most one row per (source, domain, use case, date) regardless of concurrent
// callers; last write wins because identical inputs score identically.
type Repository interface {
	// Upsert atomically inserts or replaces the snapshot for its composite
	// key and fills the generated ID and creation timestamp.
	Upsert(ctx context.Context, snapshot *Snapshot) error

	// Exists reports whether a snapshot is already stored for the key.
	Exists(ctx context.Context, sourceID int64, domain string, useCase scoring.UseCase, date time.Time) (bool, error)

	// TopK returns snapshots for the exact (domain, use case, date), ordered
	// by score descending, capped at limit. Source name and ULID are joined
	// in.
	TopK(ctx context.Context, domain string, useCase scoring.UseCase, date time.Time, limit int) ([]Snapshot, error)

	// LatestDateOnOrBefore resolves the most recent snapshot date <= date for
	// the (domain, use case) pair, or nil when none exists at all.
	LatestDateOnOrBefore(ctx context.Context, domain string, useCase scoring.UseCase, date time.Time) (*time.Time, error)

	// CompareDomains aggregates, per domain, the snapshot set each domain
	// resolves to on or before date: source count, average score, and the top
	// performing source. Ordered by average score descending.
	CompareDomains(ctx context.Context, useCase scoring.UseCase, date time.Time) ([]DomainComparison, error)

	// Stats returns corpus-wide snapshot statistics for monitoring.
	Stats(ctx context.Context) (Stats, error)
}

// DomainComparison is one row of the cross-domain comparison view.
type DomainComparison struct {
	Domain      string  `json:"domain"`
	SourceCount int     `json:"source_count"`
	AvgScore    float64 `json:"avg_score"`
	TopSource   string  `json:"top_source_name"`
	TopScore    float64 `json:"top_score"`
}

// Stats summarizes the snapshot corpus.
type Stats struct {
	TotalSnapshots int64      `json:"total_snapshots"`
	DistinctDomain int        `json:"distinct_domains"`
	LatestDate     *time.Time `json:"latest_snapshot_date,omitempty"`
}
