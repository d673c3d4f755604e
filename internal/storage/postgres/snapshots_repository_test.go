package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcemeter/server/internal/domain/scoring"
	"github.com/sourcemeter/server/internal/storage"
)

func TestSnapshotsRepository_UpsertReplacesExistingRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	day := date(2026, time.August, 15)

	first := makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.72)
	require.NoError(t, repo.Snapshots().Upsert(ctx, first))
	assert.NotZero(t, first.ID)

	second := makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.81)
	require.NoError(t, repo.Snapshots().Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID, "conflict resolves to the existing row")

	rows, err := repo.Snapshots().TopK(ctx, "oncology", scoring.UseCaseClinical, day, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.81, rows[0].Score, 1e-9, "last write wins")
	assert.Equal(t, scoring.BandHigh, rows[0].Band)
}

func TestSnapshotsRepository_ConcurrentUpsertsLeaveOneRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	day := date(2026, time.August, 15)

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.65)
			errs <- repo.Snapshots().Upsert(ctx, snap)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int
	err := sharedPool.QueryRow(ctx, `SELECT COUNT(*) FROM reliability_snapshots`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "concurrent writers on the same key leave exactly one row")
}

func TestSnapshotsRepository_ExistsDistinguishesKeys(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	day := date(2026, time.August, 15)
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.7)))

	cases := []struct {
		name     string
		sourceID int64
		domain   string
		useCase  scoring.UseCase
		date     time.Time
		want     bool
	}{
		{"exact key", source.ID, "oncology", scoring.UseCaseClinical, day, true},
		{"other use case", source.ID, "oncology", scoring.UseCaseExploratory, day, false},
		{"other domain", source.ID, "cardiology", scoring.UseCaseClinical, day, false},
		{"other date", source.ID, "oncology", scoring.UseCaseClinical, day.AddDate(0, 0, 1), false},
		{"other source", source.ID + 1, "oncology", scoring.UseCaseClinical, day, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exists, err := repo.Snapshots().Exists(ctx, tc.sourceID, tc.domain, tc.useCase, tc.date)
			require.NoError(t, err)
			assert.Equal(t, tc.want, exists)
		})
	}
}

func TestSnapshotsRepository_TopKOrdering(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	jco := insertSource(t, ctx, repo, "Journal of Clinical Oncology", 32.976)
	nature := insertSource(t, ctx, repo, "Nature", 64.8)
	lancet := insertSource(t, ctx, repo, "The Lancet", 98.4)
	day := date(2026, time.August, 15)

	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(nature.ID, "oncology", scoring.UseCaseClinical, day, 0.64)))
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(jco.ID, "oncology", scoring.UseCaseClinical, day, 0.88)))
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(lancet.ID, "oncology", scoring.UseCaseClinical, day, 0.88)))
	// Different use case on the same day must not leak into the ranking.
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(nature.ID, "oncology", scoring.UseCaseExploratory, day, 0.95)))

	rows, err := repo.Snapshots().TopK(ctx, "oncology", scoring.UseCaseClinical, day, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Score descending, name as tie-break.
	assert.Equal(t, "Journal of Clinical Oncology", rows[0].SourceName)
	assert.Equal(t, "The Lancet", rows[1].SourceName)
	assert.Equal(t, "Nature", rows[2].SourceName)
	assert.Equal(t, jco.ULID, rows[0].SourceULID)
	assert.Equal(t, day, rows[0].Date)
	assert.Equal(t, []string{"test snapshot"}, rows[0].Reasons)
	assert.InDelta(t, 0.88, rows[0].Components.Authority, 1e-9)

	top2, err := repo.Snapshots().TopK(ctx, "oncology", scoring.UseCaseClinical, day, 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)
}

func TestSnapshotsRepository_LatestDateOnOrBefore(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	older := date(2026, time.August, 1)
	newer := date(2026, time.August, 14)
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, older, 0.6)))
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, newer, 0.7)))

	latest, err := repo.Snapshots().LatestDateOnOrBefore(ctx, "oncology", scoring.UseCaseClinical, date(2026, time.August, 18))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer, *latest)

	latest, err = repo.Snapshots().LatestDateOnOrBefore(ctx, "oncology", scoring.UseCaseClinical, date(2026, time.August, 10))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, older, *latest)

	latest, err = repo.Snapshots().LatestDateOnOrBefore(ctx, "oncology", scoring.UseCaseClinical, date(2026, time.July, 1))
	require.NoError(t, err)
	assert.Nil(t, latest, "no history on or before the requested date")

	latest, err = repo.Snapshots().LatestDateOnOrBefore(ctx, "cardiology", scoring.UseCaseClinical, date(2026, time.August, 18))
	require.NoError(t, err)
	assert.Nil(t, latest, "never scored domain")
}

func TestSnapshotsRepository_CompareDomains(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	jco := insertSource(t, ctx, repo, "Journal of Clinical Oncology", 32.976)
	nature := insertSource(t, ctx, repo, "Nature", 64.8)
	circ := insertSource(t, ctx, repo, "Circulation", 39.918)

	recent := date(2026, time.August, 15)
	stale := date(2026, time.August, 1)

	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(jco.ID, "oncology", scoring.UseCaseClinical, recent, 0.9)))
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(nature.ID, "oncology", scoring.UseCaseClinical, recent, 0.6)))
	// Cardiology only has an older snapshot; comparison falls back per domain.
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(circ.ID, "cardiology", scoring.UseCaseClinical, stale, 0.7)))
	// Old oncology rows must not mix into the resolved date.
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(jco.ID, "oncology", scoring.UseCaseClinical, stale, 0.2)))

	comparisons, err := repo.Snapshots().CompareDomains(ctx, scoring.UseCaseClinical, date(2026, time.August, 18))
	require.NoError(t, err)
	require.Len(t, comparisons, 2)

	assert.Equal(t, "oncology", comparisons[0].Domain)
	assert.Equal(t, 2, comparisons[0].SourceCount)
	assert.InDelta(t, 0.75, comparisons[0].AvgScore, 1e-9)
	assert.Equal(t, "Journal of Clinical Oncology", comparisons[0].TopSource)
	assert.InDelta(t, 0.9, comparisons[0].TopScore, 1e-9)

	assert.Equal(t, "cardiology", comparisons[1].Domain)
	assert.Equal(t, 1, comparisons[1].SourceCount)
	assert.Equal(t, "Circulation", comparisons[1].TopSource)
}

func TestSnapshotsRepository_Stats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.Snapshots().Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSnapshots)
	assert.Nil(t, empty.LatestDate)

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	day := date(2026, time.August, 15)
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.7)))
	require.NoError(t, repo.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "cardiology", scoring.UseCaseClinical, day, 0.7)))

	stats, err := repo.Snapshots().Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalSnapshots)
	assert.Equal(t, 2, stats.DistinctDomain)
	require.NotNil(t, stats.LatestDate)
	assert.Equal(t, day, *stats.LatestDate)
}

func TestRepository_WithTxRollsBackOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	day := date(2026, time.August, 15)

	boom := errors.New("abort")
	err := repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if err := tx.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.7)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := repo.Snapshots().Exists(ctx, source.ID, "oncology", scoring.UseCaseClinical, day)
	require.NoError(t, err)
	assert.False(t, exists, "failed transaction leaves nothing behind")
}

func TestRepository_WithTxCommits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	source := insertSource(t, ctx, repo, "Nature", 64.8)
	day := date(2026, time.August, 15)

	err := repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if err := tx.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseClinical, day, 0.7)); err != nil {
			return err
		}
		return tx.Snapshots().Upsert(ctx, makeSnapshot(source.ID, "oncology", scoring.UseCaseExploratory, day, 0.5))
	})
	require.NoError(t, err)

	rows, err := repo.Snapshots().TopK(ctx, "oncology", scoring.UseCaseClinical, day, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
