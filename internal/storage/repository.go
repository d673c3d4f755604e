package storage

import (
	"context"

	"github.com/sourcemeter/server/internal/domain/evidence"
	"github.com/sourcemeter/server/internal/domain/snapshots"
	"github.com/sourcemeter/server/internal/domain/sources"
)

// Repository groups data access by domain. WithTx runs fn against a
// transaction-bound repository; the batch worker uses it to commit one
// domain's snapshots at a time.
type Repository interface {
	Sources() sources.Repository
	Evidence() evidence.Repository
	Snapshots() snapshots.Repository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
