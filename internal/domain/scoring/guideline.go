package scoring

import "strings"

// GuidelineDetail is the structured breakdown behind a guideline-presence
// score.
type GuidelineDetail struct {
	Rule string `json:"rule"`
}

// GuidelinePresence estimates how often a source is cited in clinical
// guidelines using a tiered name-pattern heuristic. The schema carries a
// guideline_citations table for an exact computation later; the heuristic is
// the current behavior.
func GuidelinePresence(t Tables, sourceName string) (float64, GuidelineDetail) {
	name := strings.ToLower(sourceName)
	g := t.Guideline

	switch {
	case containsAny(name, g.ClinicalAuthorities):
		return g.AuthorityScore, GuidelineDetail{Rule: "clinical_authority"}
	case strings.Contains(name, "clinical"):
		return g.ClinicalScore, GuidelineDetail{Rule: "clinical_name"}
	case containsAny(name, g.SocietyIndicators):
		return g.SocietyScore, GuidelineDetail{Rule: "society"}
	case containsAny(name, g.BasicScience) && !strings.Contains(name, "clinical"):
		return g.BasicScienceScore, GuidelineDetail{Rule: "basic_science"}
	default:
		return g.DefaultScore, GuidelineDetail{Rule: "default"}
	}
}
