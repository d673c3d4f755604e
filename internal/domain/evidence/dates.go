package evidence

import (
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// ParseDate parses a publication date that may be partial ("2024", "June
// 2023") or fully qualified. Returns nil when the text carries no usable
// date; unparseable dates are tolerated, not treated as errors.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Fast path for the common upstream formats before falling back to the
	// language-aware parser.
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	cfg := &dateparser.Configuration{
		DefaultTimezone: time.UTC,
	}
	parsed, err := dateparser.Parse(cfg, raw)
	if err != nil || parsed.IsZero() {
		return nil
	}
	t := parsed.Time
	return &t
}
