package scoring

import (
	"time"

	"github.com/sourcemeter/server/internal/domain/evidence"
)

// FreshnessDetail is the structured breakdown behind a freshness score.
type FreshnessDetail struct {
	RecentCount   int `json:"recent_count"`
	DatedCount    int `json:"dated_count"`
	ReferenceYear int `json:"reference_year"`
}

// Freshness rates recent publication activity: the count of items published
// within the trailing window, normalized by the cap. Items without a
// parseable date are excluded from the count rather than penalized. A source
// with no evidence at all gets the floor value.
func Freshness(t Tables, items []evidence.Item, now time.Time) (float64, FreshnessDetail) {
	detail := FreshnessDetail{ReferenceYear: now.Year()}
	if len(items) == 0 {
		return t.FreshnessFloor, detail
	}

	for _, item := range items {
		year, ok := item.PublicationYear()
		if !ok {
			continue
		}
		detail.DatedCount++
		if detail.ReferenceYear-year <= t.FreshnessWindowYears {
			detail.RecentCount++
		}
	}

	score := float64(detail.RecentCount) / float64(t.FreshnessCap)
	return clamp01(score), detail
}
