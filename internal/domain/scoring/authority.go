package scoring

import (
	"math"
	"strings"

	"github.com/sourcemeter/server/internal/domain/evidence"
)

// AuthorityDetail is the structured breakdown behind an authority score.
type AuthorityDetail struct {
	BaseTier       float64 `json:"base_tier"`
	Specialization float64 `json:"specialization"`
	EvidenceBoost  float64 `json:"evidence_boost"`
	TrustBonus     float64 `json:"trust_bonus"`
}

// Authority rates how authoritative a source is within a domain. The base
// tier score comes from the name tier table, multiplied by the domain
// specialization factor, plus an evidence-volume boost and a fixed bonus for
// curated trusted venues. This is what lets a specialty flagship outrank a
// broad prestige venue inside its own domain.
func Authority(t Tables, sourceName, domain string, items []evidence.Item) (float64, AuthorityDetail) {
	name := strings.ToLower(sourceName)

	detail := AuthorityDetail{
		BaseTier:       tierScore(t.AuthorityTiers, name, t.AuthorityDefault),
		Specialization: Specialization(t, sourceName, domain),
		EvidenceBoost:  math.Min(t.EvidenceBoostCap, float64(len(items))/t.EvidenceBoostDivisor),
	}
	if containsAny(name, t.TrustedVenues) {
		detail.TrustBonus = t.TrustBonus
	}

	score := clamp01(detail.BaseTier*detail.Specialization + detail.EvidenceBoost + detail.TrustBonus)
	return score, detail
}

// Specialization returns the domain-specialization multiplier for a source
// name: boost when the name carries the domain's vocabulary, penalty when the
// name is generalist and the domain is not, neutral otherwise.
func Specialization(t Tables, sourceName, domain string) float64 {
	name := strings.ToLower(sourceName)
	domain = evidence.NormalizeDomain(domain)

	if vocabulary, ok := t.DomainVocabulary[domain]; ok && containsAny(name, vocabulary) {
		return t.SpecializationBoost
	}
	if containsAny(name, t.BroadIndicators) && domain != t.GenericDomain {
		return t.BroadPenalty
	}
	return 1.0
}
