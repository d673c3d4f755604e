package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sourcemeter/server/internal/domain/evidence"
	"github.com/sourcemeter/server/internal/domain/snapshots"
	"github.com/sourcemeter/server/internal/domain/sources"
	"github.com/sourcemeter/server/internal/storage"
)

// Repository is the Postgres implementation of storage.Repository. A zero tx
// means operations run against the pool; WithTx hands out a tx-bound copy.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Sources() sources.Repository {
	return &SourcesRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Evidence() evidence.Repository {
	return &EvidenceRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Snapshots() snapshots.Repository {
	return &SnapshotsRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type SourcesRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type EvidenceRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type SnapshotsRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
