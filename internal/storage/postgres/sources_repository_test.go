package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcemeter/server/internal/domain/sources"
)

func TestSourcesRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created := insertSource(t, ctx, repo, "Journal of Clinical Oncology", 32.976)
	assert.NotZero(t, created.ID)
	assert.Len(t, created.ULID, 26)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Sources().GetByNormalized(ctx, "clinical oncology")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Journal of Clinical Oncology", got.Name)
	require.NotNil(t, got.ImpactMetric)
	assert.InDelta(t, 32.976, *got.ImpactMetric, 1e-9)

	missing, err := repo.Sources().GetByNormalized(ctx, "does not exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSourcesRepository_CreateResolvesDuplicateName(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := insertSource(t, ctx, repo, "Nature", 64.8)
	second := insertSource(t, ctx, repo, "Nature", 64.8)

	assert.Equal(t, first.ID, second.ID, "duplicate create resolves to the existing row")
	assert.Equal(t, first.ULID, second.ULID)

	var count int
	err := sharedPool.QueryRow(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSourcesRepository_ConcurrentCreateLeavesOneRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			impact := 39.918
			source := &sources.Source{
				Name:         "Circulation",
				Normalized:   sources.NormalizeName("Circulation"),
				ImpactMetric: &impact,
			}
			errs <- repo.Sources().Create(ctx, source)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int
	err := sharedPool.QueryRow(ctx, `SELECT COUNT(*) FROM sources WHERE normalized_name = 'circulation'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSourcesRepository_FindByPattern(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	insertSource(t, ctx, repo, "Journal of Clinical Oncology", 32.976)
	insertSource(t, ctx, repo, "Nature", 64.8)

	found, err := repo.Sources().FindByPattern(ctx, "oncology")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Journal of Clinical Oncology", found.Name)

	missing, err := repo.Sources().FindByPattern(ctx, "astrophysics")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
