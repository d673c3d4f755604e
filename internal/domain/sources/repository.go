package sources

import "context"

// Repository is the persistence surface for the source registry.
type Repository interface {
	// GetByNormalized returns the source with the exact normalized name, or
	// nil when absent.
	GetByNormalized(ctx context.Context, normalized string) (*Source, error)

	// FindByPattern returns the first source whose normalized name contains
	// the given fragment, or nil when none match.
	FindByPattern(ctx context.Context, fragment string) (*Source, error)

	// Create inserts a source and fills its generated identifiers. Creation
	// races on the same normalized name resolve to the existing row.
	Create(ctx context.Context, source *Source) error
}
