package evidence

import "context"

// Repository is the read surface the scoring engine consumes from the
// evidence corpus. Ingestion of raw documents happens upstream; this
// subsystem only lists what is already there.
type Repository interface {
	// ListBySourceAndDomain returns evidence items whose source name matches
	// the given name (case-insensitive pattern match) and whose domain tag
	// matches the given domain, capped at limit.
	ListBySourceAndDomain(ctx context.Context, sourceName, domain string, limit int) ([]Item, error)

	// SourcesWithEvidence returns the distinct source names holding at least
	// one evidence item tagged with the domain.
	SourcesWithEvidence(ctx context.Context, domain string) ([]string, error)

	// DistinctDomains returns every domain observed across the corpus.
	DistinctDomains(ctx context.Context) ([]string, error)

	// Insert stores one evidence item. Used by development seeding only.
	Insert(ctx context.Context, item Item) error
}
