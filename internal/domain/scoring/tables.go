package scoring

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Tier maps a set of name patterns to a fixed score. Tiers are evaluated in
// order; the first tier with a matching pattern wins.
type Tier struct {
	Patterns []string `yaml:"patterns"`
	Score    float64  `yaml:"score"`
}

// Weights is one use-case weight profile over the five components.
// The five weights must sum to exactly 1.0.
type Weights struct {
	Authority float64 `yaml:"authority"`
	Relevance float64 `yaml:"relevance"`
	Freshness float64 `yaml:"freshness"`
	Guideline float64 `yaml:"guideline"`
	Rigor     float64 `yaml:"rigor"`
}

// Sum returns the total of the five weights.
func (w Weights) Sum() float64 {
	return w.Authority + w.Relevance + w.Freshness + w.Guideline + w.Rigor
}

// GuidelineTables holds the name-pattern heuristic for guideline presence.
type GuidelineTables struct {
	ClinicalAuthorities []string `yaml:"clinical_authorities"`
	ClinicalScore       float64  `yaml:"clinical_score"`
	SocietyIndicators   []string `yaml:"society_indicators"`
	SocietyScore        float64  `yaml:"society_score"`
	BasicScience        []string `yaml:"basic_science"`
	BasicScienceScore   float64  `yaml:"basic_science_score"`
	AuthorityScore      float64  `yaml:"authority_score"`
	DefaultScore        float64  `yaml:"default_score"`
}

// Tables is the full, versioned scoring configuration: tier tables, keyword
// sets, and use-case weight profiles. It replaces the hand-coded inline tables
// of earlier iterations so tuning never requires a code change.
type Tables struct {
	Version string `yaml:"version"`

	Weights map[UseCase]Weights `yaml:"weights"`

	AuthorityTiers       []Tier  `yaml:"authority_tiers"`
	AuthorityDefault     float64 `yaml:"authority_default"`
	SpecializationBoost  float64 `yaml:"specialization_boost"`
	BroadPenalty         float64 `yaml:"broad_penalty"`
	EvidenceBoostCap     float64 `yaml:"evidence_boost_cap"`
	EvidenceBoostDivisor float64 `yaml:"evidence_boost_divisor"`
	TrustBonus           float64 `yaml:"trust_bonus"`

	// DomainVocabulary maps a domain to the name vocabulary that marks a
	// source as specialized for it. BroadIndicators mark generalist names.
	DomainVocabulary map[string][]string `yaml:"domain_vocabulary"`
	BroadIndicators  []string            `yaml:"broad_indicators"`
	GenericDomain    string              `yaml:"generic_domain"`

	// ContentKeywords maps a domain to the abstract-analysis keyword set used
	// by the relevance calculator.
	ContentKeywords map[string][]string `yaml:"content_keywords"`

	TrustedVenues []string `yaml:"trusted_venues"`

	FreshnessWindowYears int     `yaml:"freshness_window_years"`
	FreshnessCap         int     `yaml:"freshness_cap"`
	FreshnessFloor       float64 `yaml:"freshness_floor"`

	Guideline GuidelineTables `yaml:"guideline"`

	RigorTiers   []Tier  `yaml:"rigor_tiers"`
	RigorDefault float64 `yaml:"rigor_default"`
}

// DefaultTables parses the embedded scoring tables. It panics on a corrupt
// embedded file, which can only happen at build time.
func DefaultTables() Tables {
	tables, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded scoring tables invalid: %v", err))
	}
	return tables
}

// LoadTables reads a scoring tables file from disk, or the embedded default
// when path is empty.
func LoadTables(path string) (Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read scoring tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes and validates scoring tables from YAML.
func ParseTables(data []byte) (Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return Tables{}, fmt.Errorf("parse scoring tables: %w", err)
	}
	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// Validate enforces the structural invariants the scorer relies on, most
// importantly that each use-case weight profile sums to exactly 1.0.
func (t Tables) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("scoring tables: version is required")
	}
	for _, uc := range []UseCase{UseCaseClinical, UseCaseExploratory} {
		weights, ok := t.Weights[uc]
		if !ok {
			return fmt.Errorf("scoring tables: missing weight profile for use case %q", uc)
		}
		if math.Abs(weights.Sum()-1.0) > 1e-9 {
			return fmt.Errorf("scoring tables: %q weights sum to %v, want 1.0", uc, weights.Sum())
		}
	}
	if len(t.AuthorityTiers) == 0 {
		return fmt.Errorf("scoring tables: authority_tiers is empty")
	}
	if len(t.RigorTiers) == 0 {
		return fmt.Errorf("scoring tables: rigor_tiers is empty")
	}
	if t.FreshnessCap <= 0 {
		return fmt.Errorf("scoring tables: freshness_cap must be > 0")
	}
	if t.FreshnessWindowYears <= 0 {
		return fmt.Errorf("scoring tables: freshness_window_years must be > 0")
	}
	if t.EvidenceBoostDivisor <= 0 {
		return fmt.Errorf("scoring tables: evidence_boost_divisor must be > 0")
	}
	return nil
}

// tierScore returns the score of the first tier with a pattern contained in
// name, or fallback when none match. Matching is case-insensitive substring
// matching against an already-lowercased name.
func tierScore(tiers []Tier, name string, fallback float64) float64 {
	for _, tier := range tiers {
		if containsAny(name, tier.Patterns) {
			return tier.Score
		}
	}
	return fallback
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
