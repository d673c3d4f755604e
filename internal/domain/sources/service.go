package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcemeter/server/internal/cache"
)

// lookupCacheTTL bounds how long a resolved source is served from memory
// before hitting storage again.
const lookupCacheTTL = time.Hour

// Service is the source registry: lookup-or-create by name with a reference
// impact metric estimated from name patterns when the source is unknown.
// Repeated lookups go through an explicit time-aware cache keyed by the
// normalized name.
type Service struct {
	repo   Repository
	cache  *cache.Cache[*Source]
	logger zerolog.Logger
}

// NewService builds a source registry service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache.New[*Source](lookupCacheTTL, nil),
		logger: logger.With().Str("component", "sources").Logger(),
	}
}

// LookupOrCreate resolves a source by name, creating it with an estimated
// impact metric when it does not exist yet.
func (s *Service) LookupOrCreate(ctx context.Context, name string) (*Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("source name is empty")
	}
	normalized := NormalizeName(name)

	if cached, ok := s.cache.Get(normalized); ok {
		return cached, nil
	}

	source, err := s.repo.GetByNormalized(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("lookup source %q: %w", normalized, err)
	}
	if source == nil {
		source, err = s.repo.FindByPattern(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("pattern lookup source %q: %w", normalized, err)
		}
	}

	if source == nil {
		estimated := EstimateImpactMetric(normalized)
		category := "Estimated"
		source = &Source{
			Name:         name,
			Normalized:   normalized,
			Category:     &category,
			ImpactMetric: &estimated,
		}
		if err := s.repo.Create(ctx, source); err != nil {
			return nil, fmt.Errorf("create source %q: %w", normalized, err)
		}
		s.logger.Info().
			Str("source", name).
			Float64("impact_metric", estimated).
			Msg("registered new source with estimated impact metric")
	}

	s.cache.Set(normalized, source)
	return source, nil
}

// ImpactMetric returns the reference impact metric for a source name,
// falling back to the name-based estimate when the stored source has none.
func (s *Service) ImpactMetric(ctx context.Context, name string) (float64, error) {
	source, err := s.LookupOrCreate(ctx, name)
	if err != nil {
		return 0, err
	}
	if source.ImpactMetric != nil {
		return *source.ImpactMetric, nil
	}
	return EstimateImpactMetric(source.Normalized), nil
}

var (
	highImpactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`nature`), regexp.MustCompile(`science`), regexp.MustCompile(`cell`),
		regexp.MustCompile(`lancet`), regexp.MustCompile(`nejm`), regexp.MustCompile(`new england`),
		regexp.MustCompile(`jama`), regexp.MustCompile(`bmj`), regexp.MustCompile(`circulation`),
		regexp.MustCompile(`blood`), regexp.MustCompile(`cancer`), regexp.MustCompile(`immunity`),
	}
	mediumImpactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`plos medicine`), regexp.MustCompile(`journal.*clinical`),
		regexp.MustCompile(`american journal`), regexp.MustCompile(`european.*journal`),
		regexp.MustCompile(`clinical.*research`), regexp.MustCompile(`medical.*research`),
	}
	standardImpactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`plos.*one`), regexp.MustCompile(`scientific.*reports`),
		regexp.MustCompile(`medicine`), regexp.MustCompile(`healthcare`),
		regexp.MustCompile(`international.*journal`), regexp.MustCompile(`world.*journal`),
		regexp.MustCompile(`research.*journal`),
	}
)

// EstimateImpactMetric estimates a legacy impact metric from name patterns so
// unknown venues still carry a reference value. The estimate is display-only
// and never feeds scoring.
func EstimateImpactMetric(normalized string) float64 {
	for _, pattern := range highImpactPatterns {
		if pattern.MatchString(normalized) {
			switch {
			case strings.Contains(normalized, "nature") || strings.Contains(normalized, "science"):
				return 45.0
			case strings.Contains(normalized, "lancet") || strings.Contains(normalized, "nejm") || strings.Contains(normalized, "jama"):
				return 35.0
			default:
				return 15.0
			}
		}
	}
	for _, pattern := range mediumImpactPatterns {
		if pattern.MatchString(normalized) {
			return 7.0
		}
	}
	for _, pattern := range standardImpactPatterns {
		if pattern.MatchString(normalized) {
			return 3.0
		}
	}
	return 2.5
}
