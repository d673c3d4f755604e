package snapshots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/sourcemeter/server/internal/domain/scoring"
)

type fakeRepo struct {
	// rowsByDate maps YYYY-MM-DD to stored snapshots for the test's single
	// (domain, use case) pair.
	rowsByDate map[string][]Snapshot
	topKCalls  []time.Time
	failWith   error
}

func (f *fakeRepo) Upsert(context.Context, *Snapshot) error { return errors.New("read-only") }

func (f *fakeRepo) Exists(context.Context, int64, string, scoring.UseCase, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeRepo) TopK(_ context.Context, _ string, _ scoring.UseCase, date time.Time, limit int) ([]Snapshot, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.topKCalls = append(f.topKCalls, date)
	rows := f.rowsByDate[date.Format("2006-01-02")]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeRepo) LatestDateOnOrBefore(_ context.Context, _ string, _ scoring.UseCase, date time.Time) (*time.Time, error) {
	var best *time.Time
	for key := range f.rowsByDate {
		parsed, err := time.Parse("2006-01-02", key)
		if err != nil {
			return nil, err
		}
		if parsed.After(date) {
			continue
		}
		if best == nil || parsed.After(*best) {
			d := parsed
			best = &d
		}
	}
	return best, nil
}

func (f *fakeRepo) CompareDomains(context.Context, scoring.UseCase, time.Time) ([]DomainComparison, error) {
	return []DomainComparison{{Domain: "oncology", SourceCount: 2, AvgScore: 0.7}}, nil
}

func (f *fakeRepo) Stats(context.Context) (Stats, error) {
	return Stats{TotalSnapshots: 4, DistinctDomain: 2}, nil
}

func newTestService(repo Repository, now time.Time) *Service {
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewService(repo, zerolog.Nop(), tracer, func() time.Time { return now })
}

func snapshotRow(name string, score float64) Snapshot {
	return Snapshot{SourceName: name, Score: score, Domain: "oncology", UseCase: scoring.UseCaseClinical}
}

func limitOf(n int) *int { return &n }

func TestTopK_ExactDate(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rowsByDate: map[string][]Snapshot{
		"2026-08-20": {snapshotRow("JCO", 0.849), snapshotRow("Nature", 0.637)},
	}}
	svc := newTestService(repo, now)

	rows, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "JCO", rows[0].SourceName)
	assert.Len(t, repo.topKCalls, 1, "no fallback query when the date has rows")
}

func TestTopK_FallsBackToLatestEarlierDate(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rowsByDate: map[string][]Snapshot{
		"2026-08-14": {snapshotRow("JCO", 0.849)},
		"2026-08-10": {snapshotRow("JCO", 0.840)},
	}}
	svc := newTestService(repo, now)

	rows, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical", Date: "2026-08-18"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Second query went to the resolved earlier date, never a later one.
	require.Len(t, repo.topKCalls, 2)
	assert.Equal(t, "2026-08-14", repo.topKCalls[1].Format("2006-01-02"))
}

func TestTopK_NotFoundWhenNoHistory(t *testing.T) {
	repo := &fakeRepo{rowsByDate: map[string][]Snapshot{}}
	svc := newTestService(repo, time.Now())

	_, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopK_NeverFallsForward(t *testing.T) {
	repo := &fakeRepo{rowsByDate: map[string][]Snapshot{
		"2026-08-25": {snapshotRow("JCO", 0.849)}, // only later data exists
	}}
	svc := newTestService(repo, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))

	_, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical", Date: "2026-08-20"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopK_Validation(t *testing.T) {
	svc := newTestService(&fakeRepo{}, time.Now())

	cases := []TopKQuery{
		{Domain: "", UseCase: "clinical"},
		{Domain: "oncology", UseCase: "forensic"},
		{Domain: "oncology", UseCase: "clinical", Date: "20-08-2026"},
		{Domain: "oncology", UseCase: "clinical", Limit: limitOf(0)},
		{Domain: "oncology", UseCase: "clinical", Limit: limitOf(-1)},
		{Domain: "oncology", UseCase: "clinical", Limit: limitOf(MaxLimit + 1)},
	}
	for _, query := range cases {
		_, err := svc.TopK(context.Background(), query)
		assert.True(t, IsValidation(err), "query %+v: %v", query, err)
	}
}

func TestTopK_ZeroLimitRejected(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rowsByDate: map[string][]Snapshot{
		"2026-08-20": {snapshotRow("JCO", 0.849)},
	}}
	svc := newTestService(repo, now)

	// An explicit zero is out of range, not a request for the default.
	_, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical", Limit: limitOf(0)})
	assert.True(t, IsValidation(err), "got %v", err)
	assert.Empty(t, repo.topKCalls)
}

func TestTopK_DefaultLimit(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	rows := make([]Snapshot, DefaultLimit+10)
	for i := range rows {
		rows[i] = snapshotRow("S", 0.5)
	}
	repo := &fakeRepo{rowsByDate: map[string][]Snapshot{"2026-08-20": rows}}
	svc := newTestService(repo, now)

	got, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical"})
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestTopK_RepositoryErrorWrapped(t *testing.T) {
	repo := &fakeRepo{failWith: errors.New("connection refused")}
	svc := newTestService(repo, time.Now())

	_, err := svc.TopK(context.Background(), TopKQuery{Domain: "oncology", UseCase: "clinical"})
	require.Error(t, err)
	assert.False(t, IsValidation(err))
}

func TestCompareDomains(t *testing.T) {
	svc := newTestService(&fakeRepo{}, time.Now())

	comparisons, err := svc.CompareDomains(context.Background(), "clinical", "")
	require.NoError(t, err)
	require.Len(t, comparisons, 1)
	assert.Equal(t, "oncology", comparisons[0].Domain)

	_, err = svc.CompareDomains(context.Background(), "forensic", "")
	assert.True(t, IsValidation(err))
}
