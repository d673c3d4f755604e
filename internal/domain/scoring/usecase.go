package scoring

import "fmt"

// UseCase selects the weight profile applied when combining components.
type UseCase string

const (
	// UseCaseClinical weights authority and guideline presence heavily, for
	// decision-grade reads.
	UseCaseClinical UseCase = "clinical"
	// UseCaseExploratory weights relevance and freshness heavily, for early
	// or mechanistic research.
	UseCaseExploratory UseCase = "exploratory"
)

// AllUseCases lists every supported use case in batch-processing order.
var AllUseCases = []UseCase{UseCaseClinical, UseCaseExploratory}

// ParseUseCase validates and normalizes a use-case string.
func ParseUseCase(value string) (UseCase, error) {
	switch UseCase(value) {
	case UseCaseClinical:
		return UseCaseClinical, nil
	case UseCaseExploratory:
		return UseCaseExploratory, nil
	default:
		return "", fmt.Errorf("unknown use case %q", value)
	}
}

// Band is the human-readable confidence label derived from the composite
// score.
type Band string

const (
	BandHigh        Band = "high"        // 0.80-1.00
	BandModerate    Band = "moderate"    // 0.60-0.79
	BandExploratory Band = "exploratory" // 0.40-0.59
	BandLow         Band = "low"         // 0.00-0.39
)

// Uncertainty is the qualitative confidence level derived from evidence
// volume.
type Uncertainty string

const (
	UncertaintyLow    Uncertainty = "low"
	UncertaintyMedium Uncertainty = "medium"
	UncertaintyHigh   Uncertainty = "high"
)

// BandForScore maps a composite score to its band. Thresholds are evaluated
// high to low and the mapping is monotonic in the score.
func BandForScore(score float64) Band {
	switch {
	case score >= 0.80:
		return BandHigh
	case score >= 0.60:
		return BandModerate
	case score >= 0.40:
		return BandExploratory
	default:
		return BandLow
	}
}

// UncertaintyForEvidence maps an evidence count to an uncertainty level.
func UncertaintyForEvidence(evidenceCount int) Uncertainty {
	switch {
	case evidenceCount < 3:
		return UncertaintyHigh
	case evidenceCount < 10:
		return UncertaintyMedium
	default:
		return UncertaintyLow
	}
}
