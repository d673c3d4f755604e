package evidence

import (
	"strings"
	"time"
)

// Item is one published work attributed to a source by name. Items are
// immutable once ingested; the reference to the source is a weak name match,
// not a foreign key, because sources may not pre-exist their evidence.
type Item struct {
	ID          string
	ExternalID  string // identifier in the upstream literature database
	SourceName  string
	Domain      string
	Title       string
	Abstract    string
	PublishedAt *time.Time // nil when the raw date could not be parsed
	RawDate     string     // original, possibly partial, date text
	CreatedAt   time.Time
}

// PublicationYear returns the year evidence was published and whether a
// parseable date was available at all.
func (i Item) PublicationYear() (int, bool) {
	if i.PublishedAt == nil {
		return 0, false
	}
	return i.PublishedAt.Year(), true
}

// Text returns the concatenated title and abstract, lowercased, for keyword
// analysis.
func (i Item) Text() string {
	return strings.ToLower(strings.TrimSpace(i.Title + " " + i.Abstract))
}

// NormalizeDomain canonicalizes a free-text domain tag for matching and
// storage: lowercase, trimmed, inner whitespace collapsed.
func NormalizeDomain(domain string) string {
	return strings.Join(strings.Fields(strings.ToLower(domain)), " ")
}
