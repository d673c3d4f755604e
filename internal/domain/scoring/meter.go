package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcemeter/server/internal/domain/evidence"
)

// EvidenceLimit caps the evidence set fetched per (source, domain) pair.
const EvidenceLimit = 100

// EvidenceLister is the slice of the evidence repository the meter needs.
type EvidenceLister interface {
	ListBySourceAndDomain(ctx context.Context, sourceName, domain string, limit int) ([]evidence.Item, error)
}

// Detail carries the per-component structured breakdowns for explainability.
type Detail struct {
	Authority AuthorityDetail `json:"authority"`
	Relevance RelevanceDetail `json:"relevance"`
	Freshness FreshnessDetail `json:"freshness"`
	Guideline GuidelineDetail `json:"guideline"`
	Rigor     RigorDetail     `json:"rigor"`
}

// Assessment is a Result plus its component breakdowns.
type Assessment struct {
	Result Result
	Detail Detail
}

// Meter runs the full scoring pipeline for a (source, domain, use case)
// triple: evidence fetch, five pure component calculators, composite scorer.
// The meter itself holds no mutable state; all variation comes from the
// injected tables and the evidence set.
type Meter struct {
	tables   Tables
	evidence EvidenceLister
	logger   zerolog.Logger
}

// NewMeter builds a meter over validated tables and an evidence source.
func NewMeter(tables Tables, lister EvidenceLister, logger zerolog.Logger) *Meter {
	return &Meter{
		tables:   tables,
		evidence: lister,
		logger:   logger.With().Str("component", "meter").Logger(),
	}
}

// Tables exposes the active scoring configuration.
func (m *Meter) Tables() Tables {
	return m.tables
}

// Assess scores one source for a domain and use case. The reference time
// anchors the freshness window; batch runs pass the target date so a rerun
// for a past date reproduces that date's scores.
func (m *Meter) Assess(ctx context.Context, sourceName, domain string, useCase UseCase, ref time.Time) (Assessment, error) {
	items, err := m.evidence.ListBySourceAndDomain(ctx, sourceName, domain, EvidenceLimit)
	if err != nil {
		return Assessment{}, fmt.Errorf("list evidence for %q/%q: %w", sourceName, domain, err)
	}
	return m.AssessWithEvidence(sourceName, domain, useCase, items, ref)
}

// AssessWithEvidence scores against an already-fetched evidence set. Pure and
// deterministic given identical inputs.
func (m *Meter) AssessWithEvidence(sourceName, domain string, useCase UseCase, items []evidence.Item, ref time.Time) (Assessment, error) {
	var detail Detail
	var components ScoreComponents

	components.Authority, detail.Authority = Authority(m.tables, sourceName, domain, items)
	components.Relevance, detail.Relevance = Relevance(m.tables, sourceName, domain, items)
	components.Freshness, detail.Freshness = Freshness(m.tables, items, ref)
	components.Guideline, detail.Guideline = GuidelinePresence(m.tables, sourceName)
	components.Rigor, detail.Rigor = Rigor(m.tables, sourceName)

	result, err := Composite(m.tables, components, useCase, len(items))
	if err != nil {
		return Assessment{}, fmt.Errorf("composite for %q/%q/%s: %w", sourceName, domain, useCase, err)
	}

	m.logger.Debug().
		Str("source", sourceName).
		Str("domain", domain).
		Str("use_case", string(useCase)).
		Float64("score", result.Score).
		Str("band", string(result.Band)).
		Int("evidence", len(items)).
		Msg("assessed source")

	return Assessment{Result: result, Detail: detail}, nil
}
