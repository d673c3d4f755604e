package scoring

import (
	"fmt"
	"math"
)

// maxReasons caps the explanation list on every result.
const maxReasons = 4

// Result is one complete composite scoring outcome for a (source, domain,
// use case) triple.
type Result struct {
	Score         float64
	Band          Band
	Components    ScoreComponents
	Uncertainty   Uncertainty
	Reasons       []string
	EvidenceCount int
	UseCase       UseCase
}

// Composite combines the five components under the use case's weight profile
// into a score rounded to 3 decimals, with band, uncertainty, and ranked
// explanation strings. Deterministic: identical inputs produce identical
// results.
func Composite(t Tables, components ScoreComponents, useCase UseCase, evidenceCount int) (Result, error) {
	if err := components.Validate(); err != nil {
		return Result{}, err
	}
	weights, ok := t.Weights[useCase]
	if !ok {
		return Result{}, fmt.Errorf("no weight profile for use case %q", useCase)
	}

	raw := weights.Authority*components.Authority +
		weights.Relevance*components.Relevance +
		weights.Freshness*components.Freshness +
		weights.Guideline*components.Guideline +
		weights.Rigor*components.Rigor

	score := round3(raw)
	band := BandForScore(score)
	uncertainty := UncertaintyForEvidence(evidenceCount)

	return Result{
		Score:         score,
		Band:          band,
		Components:    components,
		Uncertainty:   uncertainty,
		Reasons:       explain(components, band, uncertainty, useCase),
		EvidenceCount: evidenceCount,
		UseCase:       useCase,
	}, nil
}

// explain builds the ordered reason list: a band-level summary first, then
// component-specific reasons over fixed thresholds, then an uncertainty
// caveat, capped at maxReasons entries.
func explain(c ScoreComponents, band Band, uncertainty Uncertainty, useCase UseCase) []string {
	reasons := make([]string, 0, maxReasons)

	switch band {
	case BandHigh:
		reasons = append(reasons, fmt.Sprintf("Highly reliable source for %s use", useCase))
	case BandModerate:
		reasons = append(reasons, fmt.Sprintf("Good reliability for %s use", useCase))
	case BandExploratory:
		reasons = append(reasons, fmt.Sprintf("Moderate reliability - suitable for %s research", useCase))
	default:
		reasons = append(reasons, "Lower reliability - consider supplementary sources")
	}

	if c.Authority >= 0.8 {
		reasons = append(reasons, "High authority in this domain")
	} else if c.Authority >= 0.6 {
		reasons = append(reasons, "Moderate authority in this domain")
	}

	if c.Relevance >= 0.8 {
		reasons = append(reasons, "Highly specialized for this domain")
	} else if c.Relevance >= 0.6 {
		reasons = append(reasons, "Good specialization for this domain")
	}

	if c.Freshness >= 0.7 {
		reasons = append(reasons, "Active recent publication in this domain")
	}

	if c.Guideline >= 0.8 {
		reasons = append(reasons, "Frequently cited in clinical guidelines")
	}

	if uncertainty == UncertaintyHigh {
		reasons = append(reasons, "Limited evidence available - interpret cautiously")
	}

	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
