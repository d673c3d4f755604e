package scoring

import "strings"

// RigorDetail is the structured breakdown behind a rigor score.
type RigorDetail struct {
	Tier float64 `json:"tier"`
}

// Rigor proxies editorial rigor from the name tier table. Mirrors the
// authority tiers with distinct constants; retraction and correction signals
// would replace this once tracked.
func Rigor(t Tables, sourceName string) (float64, RigorDetail) {
	score := tierScore(t.RigorTiers, strings.ToLower(sourceName), t.RigorDefault)
	return score, RigorDetail{Tier: score}
}
