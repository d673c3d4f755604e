package sources

import (
	"regexp"
	"strings"
	"time"
)

// Source is a rated publication venue. Sources are created lazily when
// evidence or a scoring run first references a name; the impact metric is a
// legacy scalar kept for reference display only and never feeds the
// composite score.
type Source struct {
	ID           int64
	ULID         string
	Name         string
	Normalized   string
	Category     *string
	Publisher    *string
	ImpactMetric *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	trailingNoise = regexp.MustCompile(`\s*(journal|magazine|review|letters?|proceedings)\s*$`)
	leadingNoise  = regexp.MustCompile(`^(the|journal of|international journal of)\s*`)
)

// NormalizeName canonicalizes a source name for lookup: lowercase, collapsed
// whitespace, common leading and trailing noise stripped.
func NormalizeName(name string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	normalized = trailingNoise.ReplaceAllString(normalized, "")
	normalized = leadingNoise.ReplaceAllString(normalized, "")
	return strings.TrimSpace(normalized)
}
