package snapshots

import (
	"fmt"
	"time"

	"github.com/sourcemeter/server/internal/domain/scoring"
)

// AlgorithmVersion tags every snapshot with the scorer generation that
// produced it.
const AlgorithmVersion = "v2"

// Snapshot is one persisted composite scoring result. At most one snapshot
// exists per (source, domain, use case, date); the storage layer enforces
// this with a uniqueness constraint, not application locking.
type Snapshot struct {
	ID           int64
	SourceID     int64
	SourceULID   string
	SourceName   string
	Domain       string
	UseCase      scoring.UseCase
	Date         time.Time // calendar date, time part zero
	Score        float64
	Band         scoring.Band
	Components   scoring.ScoreComponents
	Uncertainty  scoring.Uncertainty
	Reasons      []string
	ImpactMetric float64
	Version      string
	CreatedAt    time.Time
}

// New builds a snapshot from a scoring result, enforcing the stored
// invariants: score in range, band consistent with score, 1-4 reasons.
func New(sourceID int64, domain string, result scoring.Result, impactMetric float64, date time.Time) (*Snapshot, error) {
	if sourceID <= 0 {
		return nil, fmt.Errorf("snapshot: source id is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("snapshot: domain is required")
	}
	if result.Score < 0.0 || result.Score > 1.0 {
		return nil, fmt.Errorf("snapshot: score %v out of range", result.Score)
	}
	if err := result.Components.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if want := scoring.BandForScore(result.Score); result.Band != want {
		return nil, fmt.Errorf("snapshot: band %q inconsistent with score %v (want %q)", result.Band, result.Score, want)
	}
	if len(result.Reasons) < 1 || len(result.Reasons) > 4 {
		return nil, fmt.Errorf("snapshot: got %d reasons, want 1-4", len(result.Reasons))
	}

	return &Snapshot{
		SourceID:     sourceID,
		Domain:       domain,
		UseCase:      result.UseCase,
		Date:         Day(date),
		Score:        result.Score,
		Band:         result.Band,
		Components:   result.Components,
		Uncertainty:  result.Uncertainty,
		Reasons:      result.Reasons,
		ImpactMetric: impactMetric,
		Version:      AlgorithmVersion,
	}, nil
}

// Day truncates a time to its UTC calendar date.
func Day(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
