package scoring

import "fmt"

// ScoreComponents holds the five reliability dimensions, each in [0,1].
type ScoreComponents struct {
	Authority float64 `json:"authority"`
	Relevance float64 `json:"relevance"`
	Freshness float64 `json:"freshness"`
	Guideline float64 `json:"guideline"`
	Rigor     float64 `json:"rigor"`
}

// NewScoreComponents validates that every dimension is within [0,1].
func NewScoreComponents(authority, relevance, freshness, guideline, rigor float64) (ScoreComponents, error) {
	c := ScoreComponents{
		Authority: authority,
		Relevance: relevance,
		Freshness: freshness,
		Guideline: guideline,
		Rigor:     rigor,
	}
	if err := c.Validate(); err != nil {
		return ScoreComponents{}, err
	}
	return c, nil
}

// Validate checks the [0,1] range invariant on each dimension.
func (c ScoreComponents) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"authority", c.Authority},
		{"relevance", c.Relevance},
		{"freshness", c.Freshness},
		{"guideline", c.Guideline},
		{"rigor", c.Rigor},
	}
	for _, f := range fields {
		if f.value < 0.0 || f.value > 1.0 {
			return fmt.Errorf("score component %s out of range: %v", f.name, f.value)
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
