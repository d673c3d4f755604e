package scoring

import (
	"strings"

	"github.com/sourcemeter/server/internal/domain/evidence"
)

// relevanceSampleSize caps how many abstracts feed the content-overlap score.
const relevanceSampleSize = 20

// RelevanceDetail is the structured breakdown behind a relevance score.
type RelevanceDetail struct {
	EvidenceCount   int     `json:"evidence_count"`
	DomainShare     float64 `json:"domain_share"`
	ContentOverlap  float64 `json:"content_overlap"`
	NameFallback    bool    `json:"name_fallback"`
	SampledAbstract int     `json:"sampled_abstracts"`
}

// Relevance rates how specialized a source is for a domain. With evidence it
// combines the estimated share of the source's output that is domain-relevant
// with keyword overlap over sampled abstracts. Without evidence it falls back
// to a name-based estimate derived from the specialization factor.
func Relevance(t Tables, sourceName, domain string, items []evidence.Item) (float64, RelevanceDetail) {
	if len(items) == 0 {
		score := relevanceFromName(t, sourceName, domain)
		return score, RelevanceDetail{NameFallback: true, DomainShare: score}
	}

	// Conservative estimate of the source's total output: at least 3x the
	// domain-tagged count, never below 30.
	estimatedTotal := float64(len(items)) * 3
	if estimatedTotal < 30 {
		estimatedTotal = 30
	}

	detail := RelevanceDetail{
		EvidenceCount: len(items),
		DomainShare:   float64(len(items)) / estimatedTotal,
	}
	detail.ContentOverlap, detail.SampledAbstract = contentOverlap(t, domain, items)

	score := clamp01(detail.DomainShare*1.5 + detail.ContentOverlap*0.5)
	return score, detail
}

func relevanceFromName(t Tables, sourceName, domain string) float64 {
	specialization := Specialization(t, sourceName, domain)
	switch {
	case specialization > 1.2:
		return 0.8
	case specialization > 1.0:
		return 0.6
	case specialization < 1.0:
		return 0.3
	default:
		return 0.5
	}
}

// contentOverlap averages, across up to relevanceSampleSize items with an
// abstract, the fraction of the domain's keyword set present in the item's
// title+abstract text. Domains without a curated keyword set score a neutral
// 0.5.
func contentOverlap(t Tables, domain string, items []evidence.Item) (float64, int) {
	keywords, ok := t.ContentKeywords[evidence.NormalizeDomain(domain)]
	if !ok || len(keywords) == 0 {
		return 0.5, 0
	}

	var total float64
	var sampled int
	for _, item := range items {
		if sampled >= relevanceSampleSize {
			break
		}
		if strings.TrimSpace(item.Abstract) == "" {
			continue
		}
		text := item.Text()
		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				matches++
			}
		}
		total += float64(matches) / float64(len(keywords))
		sampled++
	}

	if sampled == 0 {
		return 0.5, 0
	}
	return total / float64(sampled), sampled
}
