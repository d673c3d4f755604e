package snapshots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sourcemeter/server/internal/domain/evidence"
	"github.com/sourcemeter/server/internal/domain/scoring"
)

// DefaultLimit is the top-K result cap applied when the caller passes none.
const DefaultLimit = 25

// MaxLimit bounds the top-K result cap.
const MaxLimit = 100

// Service is the read-only query surface over precomputed snapshots. It
// never writes; the batch worker owns all snapshot mutation.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService builds a snapshot query service. A nil clock defaults to
// time.Now.
func NewService(repo Repository, logger zerolog.Logger, tracer trace.Tracer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "snapshots").Logger(),
		tracer: tracer,
		now:    now,
	}
}

// TopKQuery is a validated-on-use top-K request. Date empty means today, a
// nil Limit means DefaultLimit; an explicit limit outside [1, MaxLimit] is
// rejected, zero included.
type TopKQuery struct {
	Domain  string
	UseCase string
	Date    string
	Limit   *int
}

// TopK serves the top-limit snapshots for a domain and use case. When the
// requested date has no rows it falls back to the most recent earlier
// snapshot date for the pair; when no date ever had rows it returns
// ErrNotFound.
func (s *Service) TopK(ctx context.Context, query TopKQuery) ([]Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "snapshots.TopK")
	defer span.End()

	domain, useCase, date, err := s.validateQuery(query.Domain, query.UseCase, query.Date)
	if err != nil {
		return nil, err
	}
	limit := DefaultLimit
	if query.Limit != nil {
		limit = *query.Limit
		if limit < 1 || limit > MaxLimit {
			return nil, ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
		}
	}

	span.SetAttributes(
		attribute.String("domain", domain),
		attribute.String("use_case", string(useCase)),
		attribute.Int("limit", limit),
	)

	rows, err := s.repo.TopK(ctx, domain, useCase, date, limit)
	if err != nil {
		return nil, fmt.Errorf("top-k query: %w", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}

	// Nothing at the requested date: fall back to the latest earlier date,
	// never a later one.
	fallback, err := s.repo.LatestDateOnOrBefore(ctx, domain, useCase, date)
	if err != nil {
		return nil, fmt.Errorf("resolve fallback date: %w", err)
	}
	if fallback == nil {
		return nil, ErrNotFound
	}

	s.logger.Debug().
		Str("domain", domain).
		Str("use_case", string(useCase)).
		Time("requested", date).
		Time("served", *fallback).
		Msg("serving fallback snapshot date")

	rows, err = s.repo.TopK(ctx, domain, useCase, *fallback, limit)
	if err != nil {
		return nil, fmt.Errorf("top-k fallback query: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

// CompareDomains serves the cross-domain comparison view for a use case at
// the given (or current) date.
func (s *Service) CompareDomains(ctx context.Context, useCaseRaw, dateRaw string) ([]DomainComparison, error) {
	ctx, span := s.tracer.Start(ctx, "snapshots.CompareDomains")
	defer span.End()

	useCase, err := scoring.ParseUseCase(useCaseRaw)
	if err != nil {
		return nil, ValidationError{Field: "use_case", Message: err.Error()}
	}
	date, err := s.resolveDate(dateRaw)
	if err != nil {
		return nil, err
	}

	comparisons, err := s.repo.CompareDomains(ctx, useCase, date)
	if err != nil {
		return nil, fmt.Errorf("compare domains: %w", err)
	}
	return comparisons, nil
}

// Stats serves corpus-wide snapshot statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) validateQuery(domainRaw, useCaseRaw, dateRaw string) (string, scoring.UseCase, time.Time, error) {
	domain := evidence.NormalizeDomain(domainRaw)
	if domain == "" {
		return "", "", time.Time{}, ValidationError{Field: "domain", Message: "must not be empty"}
	}
	useCase, err := scoring.ParseUseCase(useCaseRaw)
	if err != nil {
		return "", "", time.Time{}, ValidationError{Field: "use_case", Message: err.Error()}
	}
	date, err := s.resolveDate(dateRaw)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return domain, useCase, date, nil
}

func (s *Service) resolveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Day(s.now()), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, ValidationError{Field: "date", Message: "must be a valid YYYY-MM-DD date"}
	}
	return Day(parsed), nil
}
