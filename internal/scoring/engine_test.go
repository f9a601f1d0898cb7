package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/talent-matcher/internal/model"
)

func baseProposer() model.Proposer {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return model.Proposer{
		ID:         "gig-1",
		Category:   "wedding photography",
		City:       "Austin",
		Budget:     2500,
		Experience: model.BandPro,
		Skills:     []string{"photography", "editing", "retouching", "albums"},
		StyleTags:  []string{"documentary", "candid"},
		Brief:      "Documentary style wedding coverage for a full day",
		StartDate:  &start,
	}
}

func baseReviewer() model.Reviewer {
	return model.Reviewer{
		ID:              "rev-1",
		City:            "Austin",
		ExperienceYears: 7,
		Budget:          model.BudgetRange{Min: 2000, Max: 4000},
		Skills:          []string{"wedding photography", "editing", "retouching", "albums"},
		StyleTags:       []string{"documentary", "candid"},
		Availability: []model.AvailabilityWindow{{
			From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		}},
		Rating: 4.8,
		Bio:    "Documentary wedding photographer covering full day events",
	}
}

func TestScoreLocation(t *testing.T) {
	tests := []struct {
		name     string
		proposer model.Proposer
		reviewer model.Reviewer
		want     float64
	}{
		{
			name:     "same city full score",
			proposer: model.Proposer{City: "Austin"},
			reviewer: model.Reviewer{City: "austin"},
			want:     1.0,
		},
		{
			name:     "remote ok ignores geography",
			proposer: model.Proposer{City: "Austin", RemoteOK: true},
			reviewer: model.Reviewer{City: "Oslo"},
			want:     1.0,
		},
		{
			name:     "alt city partial",
			proposer: model.Proposer{City: "Dallas"},
			reviewer: model.Reviewer{City: "Austin", AltCities: []string{"Dallas"}},
			want:     altCityPartial,
		},
		{
			name:     "same region half",
			proposer: model.Proposer{City: "Dallas", Region: "TX"},
			reviewer: model.Reviewer{City: "Austin", Region: "tx"},
			want:     sameRegionScore,
		},
		{
			name:     "different everything floors, never zero",
			proposer: model.Proposer{City: "Dallas", Region: "TX"},
			reviewer: model.Reviewer{City: "Seattle", Region: "WA"},
			want:     locationFloor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreLocation(&tt.proposer, &tt.reviewer)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestScoreBudget(t *testing.T) {
	tests := []struct {
		name   string
		budget float64
		rng    model.BudgetRange
		want   float64
	}{
		{"inside range", 2500, model.BudgetRange{Min: 2000, Max: 4000}, 1.0},
		{"at lower bound", 2000, model.BudgetRange{Min: 2000, Max: 4000}, 1.0},
		{"open ended above min", 9000, model.BudgetRange{Min: 2000}, 1.0},
		{"no budget declared is neutral", 0, model.BudgetRange{Min: 2000, Max: 4000}, neutralMid},
		{"no reviewer range is neutral", 2500, model.BudgetRange{}, neutralMid},
		// 10% under min: one band below, 1 - 0.15.
		{"one band under", 1800, model.BudgetRange{Min: 2000, Max: 4000}, 0.85},
		// 25% over max: three bands, 1 - 0.45.
		{"three bands over", 5000, model.BudgetRange{Min: 2000, Max: 4000}, 0.55},
		// Far outside still floors above zero.
		{"far below floors", 100, model.BudgetRange{Min: 2000, Max: 4000}, budgetFloor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreBudget(tt.budget, tt.rng)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestScoreSkills(t *testing.T) {
	tests := []struct {
		name     string
		category string
		wanted   []string
		offered  []string
		want     float64
	}{
		{"category plus all skills", "photography", []string{"editing", "retouching"}, []string{"wedding photography", "editing", "retouching"}, 0.8},
		{"category only", "photography", nil, []string{"wedding photography"}, 0.6},
		{"skills only", "", []string{"editing"}, []string{"editing"}, 0.1},
		{"no overlap", "videography", []string{"drone"}, []string{"portrait photography"}, 0},
		{"nothing requested is neutral", "", nil, []string{"anything"}, neutralMid},
		{"skill increment caps at 0.4", "photo", []string{"a", "b", "c", "d", "e", "f"}, []string{"photo", "a", "b", "c", "d", "e", "f"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreSkills(tt.category, tt.wanted, tt.offered)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestScoreExperience(t *testing.T) {
	tests := []struct {
		name  string
		band  model.ExperienceBand
		years int
		want  float64
	}{
		{"in band", model.BandPro, 7, 1.0},
		{"band edge low", model.BandPro, 5, 1.0},
		{"band edge high", model.BandPro, 9, 1.0},
		{"over qualified partial", model.BandBasic, 10, overQualPartial},
		{"under qualified floors", model.BandExpert, 3, underQualFloor},
		{"no expectation neutral", "", 3, neutralMid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreExperience(tt.band, tt.years)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestScoreAvailability(t *testing.T) {
	window := model.AvailabilityWindow{
		From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	inside := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	atEnd := window.To

	assert.InDelta(t, 1.0, scoreAvailability(&inside, []model.AvailabilityWindow{window}), 0.001)
	assert.InDelta(t, conflictScore, scoreAvailability(&outside, []model.AvailabilityWindow{window}), 0.001)
	// Half-open window: the end instant is outside.
	assert.InDelta(t, conflictScore, scoreAvailability(&atEnd, []model.AvailabilityWindow{window}), 0.001)
	assert.InDelta(t, neutralMid, scoreAvailability(nil, []model.AvailabilityWindow{window}), 0.001)
	assert.InDelta(t, neutralMid, scoreAvailability(&inside, nil), 0.001)
}

func TestScoreRating(t *testing.T) {
	assert.InDelta(t, 1.0, scoreRating(4.9), 0.001)
	assert.InDelta(t, 0.75, scoreRating(4.2), 0.001)
	assert.InDelta(t, 0.5, scoreRating(3.5), 0.001)
	assert.InDelta(t, 0.25, scoreRating(1.0), 0.001)
	assert.InDelta(t, neutralMid, scoreRating(0), 0.001)
}

func TestScoreWithSemanticHybrid(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	p := baseProposer()
	r := baseReviewer()

	breakdown := engine.ScoreWithSemantic(&p, &r, SemanticInput{Style: 1.0, Text: 1.0})

	assert.Equal(t, "hybrid", breakdown.Algorithm)
	assert.False(t, breakdown.SemanticUnavailable)
	// Perfect pair on defaults: rule sub-scores saturate the 60 cap and
	// semantic saturates the 40 cap.
	assert.Equal(t, 100, breakdown.Total)
	assert.InDelta(t, 16, breakdown.Factors[model.FactorStyle], 0.001)
	assert.InDelta(t, 24, breakdown.Factors[model.FactorSemanticText], 0.001)
}

func TestScoreWithSemanticDegraded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleRuleWhenDegraded = false
	engine := NewEngine(cfg, nil)
	p := baseProposer()
	r := baseReviewer()

	breakdown := engine.ScoreWithSemantic(&p, &r, SemanticInput{Unavailable: true})

	assert.Equal(t, "rule-only", breakdown.Algorithm)
	assert.True(t, breakdown.SemanticUnavailable)
	assert.Zero(t, breakdown.Factors[model.FactorStyle])
	assert.Zero(t, breakdown.Factors[model.FactorSemanticText])
	// Unscaled rule-only cannot exceed the rule cap.
	assert.LessOrEqual(t, breakdown.Total, int(cfg.RuleCap))
}

func TestScoreWithSemanticDegradedScaling(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, cfg.ScaleRuleWhenDegraded)
	engine := NewEngine(cfg, nil)
	p := baseProposer()
	r := baseReviewer()

	scaled := engine.ScoreWithSemantic(&p, &r, SemanticInput{Unavailable: true})

	cfg.ScaleRuleWhenDegraded = false
	unscaled := NewEngine(cfg, nil).ScoreWithSemantic(&p, &r, SemanticInput{Unavailable: true})

	// Scaling re-expands the rule sub-score onto the full range so
	// rule-only totals stay comparable with hybrid ones.
	assert.Greater(t, scaled.Total, unscaled.Total)
	assert.LessOrEqual(t, scaled.Total, 100)
}

func TestScoreBoundsProperty(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	proposers := []model.Proposer{
		baseProposer(),
		{ID: "gig-empty"},
		{ID: "gig-hostile", City: "Nowhere", Budget: 1, Experience: model.BandExpert, Category: "x"},
	}
	reviewers := []model.Reviewer{
		baseReviewer(),
		{ID: "rev-empty"},
		{ID: "rev-hostile", City: "Elsewhere", Budget: model.BudgetRange{Min: 90000, Max: 100000}, Rating: 1},
	}
	semantics := []SemanticInput{
		{Style: 0, Text: 0},
		{Style: 1, Text: 1},
		{Style: -5, Text: 42}, // out-of-range inputs are clamped
		{Unavailable: true},
	}

	for _, p := range proposers {
		for _, r := range reviewers {
			for _, sem := range semantics {
				breakdown := engine.ScoreWithSemantic(&p, &r, sem)
				assert.GreaterOrEqual(t, breakdown.Total, 0)
				assert.LessOrEqual(t, breakdown.Total, 100)
			}
		}
	}
}

func TestScoreDeterminism(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	p := baseProposer()
	r := baseReviewer()
	sem := SemanticInput{Style: 0.42, Text: 0.77}

	first := engine.ScoreWithSemantic(&p, &r, sem)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.ScoreWithSemantic(&p, &r, sem))
	}
}

func TestScoreFetchesOwnSemantics(t *testing.T) {
	// nil provider: the engine degrades to lexical heuristics, which for
	// identical tags and texts still produce positive semantic factors.
	engine := NewEngine(DefaultConfig(), nil)
	p := baseProposer()
	r := baseReviewer()

	breakdown := engine.Score(context.Background(), &p, &r)

	assert.Equal(t, "hybrid", breakdown.Algorithm)
	assert.Greater(t, breakdown.Factors[model.FactorStyle], 0.0)
}

func TestNeutralBreakdown(t *testing.T) {
	nb := NeutralBreakdown()
	assert.Equal(t, 50, nb.Total)
	assert.True(t, nb.FallbackPair)
	assert.Equal(t, "fallback", nb.Algorithm)
}
