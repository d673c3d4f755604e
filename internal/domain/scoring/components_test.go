package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcemeter/server/internal/domain/evidence"
)

func TestAuthority_SpecializationBoostBeatsPrestige(t *testing.T) {
	tables := DefaultTables()

	// Specialty flagship: mid tier name, boosted inside its domain.
	jco, jcoDetail := Authority(tables, "Journal of Clinical Oncology", "oncology", nil)
	// Broad prestige venue: top tier name, no boost in oncology.
	nature, natureDetail := Authority(tables, "Nature", "oncology", nil)

	assert.Equal(t, 0.70, jcoDetail.BaseTier)
	assert.Equal(t, tables.SpecializationBoost, jcoDetail.Specialization)
	assert.Equal(t, 0.85, natureDetail.BaseTier)
	assert.Equal(t, 1.0, natureDetail.Specialization)
	assert.Greater(t, jco, nature)
}

func TestAuthority_TierOrderFirstMatchWins(t *testing.T) {
	tables := DefaultTables()

	var order []float64
	for _, tier := range tables.AuthorityTiers {
		order = append(order, tier.Score)
	}
	assert.Equal(t, []float64{0.95, 0.85, 0.90, 0.80, 0.70}, order)

	// "Nature Medicine" matches both the 0.95 and 0.85 pattern sets; the
	// earlier tier wins.
	_, natureMed := Authority(tables, "Nature Medicine", "oncology", nil)
	assert.Equal(t, 0.95, natureMed.BaseTier)

	// A name in both the 0.85 and 0.90 sets resolves to 0.85.
	_, hybrid := Authority(tables, "Cell and Lancet Reviews", "oncology", nil)
	assert.Equal(t, 0.85, hybrid.BaseTier)
}

func TestAuthority_EvidenceBoostIsCapped(t *testing.T) {
	tables := DefaultTables()
	items := make([]evidence.Item, 100)

	_, detail := Authority(tables, "Some Journal", "oncology", items)
	assert.Equal(t, tables.EvidenceBoostCap, detail.EvidenceBoost)
}

func TestAuthority_TrustedVenueBonus(t *testing.T) {
	tables := DefaultTables()

	_, lancet := Authority(tables, "The Lancet", "oncology", nil)
	_, unknown := Authority(tables, "Obscure Letters", "oncology", nil)

	assert.Equal(t, tables.TrustBonus, lancet.TrustBonus)
	assert.Zero(t, unknown.TrustBonus)
}

func TestAuthority_ClampedToOne(t *testing.T) {
	tables := DefaultTables()
	items := make([]evidence.Item, 100)

	score, _ := Authority(tables, "Journal of Clinical Oncology", "oncology", items)
	assert.Equal(t, 1.0, score)
}

func TestSpecialization(t *testing.T) {
	tables := DefaultTables()

	cases := []struct {
		name   string
		domain string
		want   float64
	}{
		{"Journal of Clinical Oncology", "oncology", tables.SpecializationBoost},
		{"Cancer Research", "Oncology", tables.SpecializationBoost}, // domain tag normalized
		{"International Journal of Medicine", "oncology", tables.BroadPenalty},
		{"World Journal of Surgery", "oncology", tables.BroadPenalty},
		{"International Medicine Review", "general medicine", 1.0}, // generic domain, no penalty
		{"Acta Orthopaedica", "oncology", 1.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Specialization(tables, tc.name, tc.domain), "%s / %s", tc.name, tc.domain)
	}
}

func TestRelevance_NameFallbackWithoutEvidence(t *testing.T) {
	tables := DefaultTables()

	cases := []struct {
		name string
		want float64
	}{
		{"Journal of Clinical Oncology", 0.8}, // boosted name
		{"International Journal of Medicine", 0.3},
		{"Acta Orthopaedica", 0.5},
	}
	for _, tc := range cases {
		score, detail := Relevance(tables, tc.name, "oncology", nil)
		assert.Equal(t, tc.want, score, tc.name)
		assert.True(t, detail.NameFallback, tc.name)
	}
}

func TestRelevance_SkipsEmptyAbstracts(t *testing.T) {
	tables := DefaultTables()
	items := []evidence.Item{
		{Title: "A", Abstract: ""},
		{Title: "B", Abstract: "   "},
		{Title: "C", Abstract: "cancer tumor chemotherapy"},
	}

	_, detail := Relevance(tables, "Some Journal", "oncology", items)
	assert.Equal(t, 1, detail.SampledAbstract)
}

func TestRelevance_NeutralOverlapForUnmappedDomain(t *testing.T) {
	tables := DefaultTables()
	items := []evidence.Item{{Title: "A", Abstract: "some text"}}

	_, detail := Relevance(tables, "Some Journal", "orthopedics", items)
	assert.Equal(t, 0.5, detail.ContentOverlap)
}

func TestFreshness(t *testing.T) {
	tables := DefaultTables()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	recent := now.AddDate(0, -6, 0)
	old := now.AddDate(-5, 0, 0)
	items := []evidence.Item{
		{PublishedAt: &recent},
		{PublishedAt: &recent},
		{PublishedAt: &old},
		{RawDate: "unparseable"}, // no parsed date, excluded
	}

	score, detail := Freshness(tables, items, now)
	assert.Equal(t, 2, detail.RecentCount)
	assert.Equal(t, 3, detail.DatedCount)
	require.InDelta(t, 2.0/float64(tables.FreshnessCap), score, 1e-9)
}

func TestFreshness_FloorWithoutEvidence(t *testing.T) {
	tables := DefaultTables()
	score, _ := Freshness(tables, nil, time.Now())
	assert.Equal(t, tables.FreshnessFloor, score)
}

func TestFreshness_CappedAtOne(t *testing.T) {
	tables := DefaultTables()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, -1, 0)

	items := make([]evidence.Item, 40)
	for i := range items {
		items[i] = evidence.Item{PublishedAt: &recent}
	}

	score, _ := Freshness(tables, items, now)
	assert.Equal(t, 1.0, score)
}

func TestGuidelinePresence(t *testing.T) {
	tables := DefaultTables()

	cases := []struct {
		name string
		want float64
		rule string
	}{
		{"New England Journal of Medicine", 0.9, "clinical_authority"},
		{"Journal of Clinical Oncology", 0.9, "clinical_authority"},
		{"Clinical Therapeutics", 0.7, "clinical_name"},
		{"European Respiratory Review", 0.6, "society"},
		{"Nature Communications", 0.3, "basic_science"},
		{"Acta Orthopaedica", 0.4, "default"},
	}
	for _, tc := range cases {
		score, detail := GuidelinePresence(tables, tc.name)
		assert.Equal(t, tc.want, score, tc.name)
		assert.Equal(t, tc.rule, detail.Rule, tc.name)
	}
}

func TestRigor(t *testing.T) {
	tables := DefaultTables()

	cases := []struct {
		name string
		want float64
	}{
		{"Nature Medicine", 0.95},
		{"The Lancet", 0.95},
		{"JAMA Internal Medicine", 0.85},
		{"Clinical Therapeutics", 0.75},
		{"Acta Orthopaedica", 0.65},
	}
	for _, tc := range cases {
		score, _ := Rigor(tables, tc.name)
		assert.Equal(t, tc.want, score, tc.name)
	}
}

func TestScoreComponents_Validate(t *testing.T) {
	valid := ScoreComponents{Authority: 0.5, Relevance: 0.5, Freshness: 0.5, Guideline: 0.5, Rigor: 0.5}
	assert.NoError(t, valid.Validate())

	assert.Error(t, ScoreComponents{Authority: -0.1}.Validate())
	assert.Error(t, ScoreComponents{Rigor: 1.1}.Validate())
}
