package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sourcemeter/server/internal/domain/evidence"
	"github.com/sourcemeter/server/internal/domain/scoring"
	"github.com/sourcemeter/server/internal/domain/snapshots"
	"github.com/sourcemeter/server/internal/domain/sources"
	"github.com/sourcemeter/server/internal/metrics"
	"github.com/sourcemeter/server/internal/storage"
)

// DefaultConcurrency bounds how many sources are scored in parallel within
// one domain. Scoring is CPU-light; the limit mainly protects the database
// from a burst of evidence queries.
const DefaultConcurrency = 4

// maxRecordedErrors caps how many per-item failures a run keeps verbatim.
// The counter keeps counting past the cap.
const maxRecordedErrors = 50

// Options controls one batch run.
type Options struct {
	// TargetDate is the snapshot date to compute. Zero means today.
	TargetDate time.Time

	// Domains restricts the run. Empty means every domain observed in the
	// evidence corpus.
	Domains []string

	// UseCases restricts the run. Empty means all use cases.
	UseCases []scoring.UseCase

	// Force recomputes and overwrites snapshots that already exist for the
	// target date.
	Force bool

	// Concurrency bounds parallel scoring within a domain. Zero or negative
	// falls back to DefaultConcurrency.
	Concurrency int
}

// Counts tallies per-item outcomes across a run.
type Counts struct {
	Computed int `json:"computed"`
	Skipped  int `json:"skipped"`
	Errored  int `json:"errored"`
}

// ItemError records one tolerated per-item failure.
type ItemError struct {
	Source  string `json:"source"`
	Domain  string `json:"domain"`
	UseCase string `json:"use_case,omitempty"`
	Message string `json:"message"`
}

// Result summarizes a batch run. Domains committed before an interruption or
// fatal error stay committed; Unprocessed lists the domains never reached.
type Result struct {
	Date        time.Time     `json:"date"`
	Counts      Counts        `json:"counts"`
	Processed   []string      `json:"processed_domains"`
	Unprocessed []string      `json:"unprocessed_domains,omitempty"`
	Errors      []ItemError   `json:"errors,omitempty"`
	Elapsed     time.Duration `json:"-"`
}

// Worker computes reliability snapshots for every (source, domain, use case)
// combination with evidence, one domain commit at a time. Per-item scoring
// failures are tolerated and counted; infrastructure failures abort the run
// after the current domain.
type Worker struct {
	repo    storage.Repository
	meter   *scoring.Meter
	sources *sources.Service
	logger  zerolog.Logger
	now     func() time.Time
}

// New builds a batch worker.
func New(repo storage.Repository, meter *scoring.Meter, sourceSvc *sources.Service, logger zerolog.Logger) *Worker {
	return &Worker{
		repo:    repo,
		meter:   meter,
		sources: sourceSvc,
		logger:  logger.With().Str("component", "worker").Logger(),
		now:     time.Now,
	}
}

// Run executes one batch computation. The returned Result is meaningful even
// when err is non-nil: it reflects everything committed before the failure.
func (w *Worker) Run(ctx context.Context, opts Options) (*Result, error) {
	start := w.now()

	date := opts.TargetDate
	if date.IsZero() {
		date = start
	}
	date = snapshots.Day(date)

	useCases := opts.UseCases
	if len(useCases) == 0 {
		useCases = scoring.AllUseCases
	}

	domains := normalizeDomains(opts.Domains)
	if len(domains) == 0 {
		var err error
		domains, err = w.repo.Evidence().DistinctDomains(ctx)
		if err != nil {
			metrics.WorkerRuns.WithLabelValues("fatal").Inc()
			return nil, fmt.Errorf("list domains: %w", err)
		}
	}
	sort.Strings(domains)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	result := &Result{Date: date}
	w.logger.Info().
		Time("date", date).
		Strs("domains", domains).
		Bool("force", opts.Force).
		Msg("batch run starting")

	for i, domain := range domains {
		if err := ctx.Err(); err != nil {
			result.Unprocessed = append(result.Unprocessed, domains[i:]...)
			result.Elapsed = w.now().Sub(start)
			metrics.WorkerRuns.WithLabelValues("interrupted").Inc()
			return result, err
		}

		domainStart := w.now()
		if err := w.runDomain(ctx, domain, useCases, date, opts.Force, concurrency, result); err != nil {
			result.Unprocessed = append(result.Unprocessed, domains[i:]...)
			result.Elapsed = w.now().Sub(start)
			metrics.WorkerRuns.WithLabelValues("fatal").Inc()
			return result, fmt.Errorf("domain %q: %w", domain, err)
		}
		metrics.WorkerDomainDuration.WithLabelValues(domain).Observe(w.now().Sub(domainStart).Seconds())
		result.Processed = append(result.Processed, domain)
	}

	result.Elapsed = w.now().Sub(start)
	metrics.WorkerRuns.WithLabelValues("completed").Inc()
	w.logger.Info().
		Int("computed", result.Counts.Computed).
		Int("skipped", result.Counts.Skipped).
		Int("errored", result.Counts.Errored).
		Dur("elapsed", result.Elapsed).
		Msg("batch run finished")
	return result, nil
}

// runDomain scores every source with evidence in the domain and commits the
// resulting snapshots in a single transaction. Scoring runs in parallel;
// writes are serialized inside the transaction.
func (w *Worker) runDomain(ctx context.Context, domain string, useCases []scoring.UseCase, date time.Time, force bool, concurrency int, result *Result) error {
	names, err := w.repo.Evidence().SourcesWithEvidence(ctx, domain)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(names) == 0 {
		w.logger.Warn().Str("domain", domain).Msg("no evidence-bearing sources, skipping domain")
		return nil
	}

	var (
		mu      sync.Mutex
		pending []*snapshots.Snapshot
	)
	record := func(snap *snapshots.Snapshot) {
		mu.Lock()
		pending = append(pending, snap)
		mu.Unlock()
	}
	fail := func(source string, useCase scoring.UseCase, err error) {
		mu.Lock()
		result.Counts.Errored++
		if len(result.Errors) < maxRecordedErrors {
			result.Errors = append(result.Errors, ItemError{
				Source:  source,
				Domain:  domain,
				UseCase: string(useCase),
				Message: err.Error(),
			})
		}
		mu.Unlock()
		metrics.WorkerSnapshotErrors.Inc()
		w.logger.Error().Err(err).
			Str("source", source).
			Str("domain", domain).
			Str("use_case", string(useCase)).
			Msg("scoring failed, continuing batch")
	}
	skip := func() {
		mu.Lock()
		result.Counts.Skipped++
		mu.Unlock()
		metrics.WorkerSnapshotsSkipped.Inc()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return w.scoreSource(gctx, name, domain, useCases, date, force, record, skip, fail)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(pending) == 0 {
		return nil
	}

	// Deterministic write order keeps reruns byte-for-byte comparable in the
	// transaction log.
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].SourceID != pending[j].SourceID {
			return pending[i].SourceID < pending[j].SourceID
		}
		return pending[i].UseCase < pending[j].UseCase
	})

	err = w.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		for _, snap := range pending {
			if err := tx.Snapshots().Upsert(ctx, snap); err != nil {
				return fmt.Errorf("upsert snapshot for source %d: %w", snap.SourceID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	mu.Lock()
	result.Counts.Computed += len(pending)
	mu.Unlock()
	metrics.WorkerSnapshotsComputed.Add(float64(len(pending)))
	w.logger.Info().
		Str("domain", domain).
		Int("snapshots", len(pending)).
		Msg("domain committed")
	return nil
}

// scoreSource resolves the source, fetches its evidence once, and scores it
// for every requested use case. Only context cancellation propagates as an
// error; everything else is recorded as a tolerated per-item failure.
func (w *Worker) scoreSource(
	ctx context.Context,
	name, domain string,
	useCases []scoring.UseCase,
	date time.Time,
	force bool,
	record func(*snapshots.Snapshot),
	skip func(),
	fail func(string, scoring.UseCase, error),
) error {
	source, err := w.sources.LookupOrCreate(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fail(name, "", err)
		return nil
	}

	todo := make([]scoring.UseCase, 0, len(useCases))
	for _, useCase := range useCases {
		if !force {
			exists, err := w.repo.Snapshots().Exists(ctx, source.ID, domain, useCase, date)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fail(name, useCase, err)
				continue
			}
			if exists {
				skip()
				continue
			}
		}
		todo = append(todo, useCase)
	}
	if len(todo) == 0 {
		return nil
	}

	items, err := w.repo.Evidence().ListBySourceAndDomain(ctx, name, domain, scoring.EvidenceLimit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, useCase := range todo {
			fail(name, useCase, err)
		}
		return nil
	}

	impact := 0.0
	if source.ImpactMetric != nil {
		impact = *source.ImpactMetric
	}

	for _, useCase := range todo {
		assessment, err := w.meter.AssessWithEvidence(name, domain, useCase, items, date)
		if err != nil {
			fail(name, useCase, err)
			continue
		}
		snap, err := snapshots.New(source.ID, domain, assessment.Result, impact, date)
		if err != nil {
			fail(name, useCase, err)
			continue
		}
		record(snap)
	}
	return nil
}

// normalizeDomains canonicalizes caller-provided domains the same way the
// evidence store does on write, dropping empties and duplicates so a request
// for "Oncology" reaches the rows stored under "oncology".
func normalizeDomains(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	domains := make([]string, 0, len(raw))
	for _, d := range raw {
		normalized := evidence.NormalizeDomain(d)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		domains = append(domains, normalized)
	}
	return domains
}
