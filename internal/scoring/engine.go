package scoring

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/similarity"
)

// Floor values for factors that never fully disqualify a candidate. A
// clear mismatch still scores a small positive fraction so one weak
// factor cannot zero out an otherwise strong profile. This is policy,
// not an accident of the math.
const (
	locationFloor   = 0.2
	budgetFloor     = 0.1
	underQualFloor  = 0.35
	overQualPartial = 0.75
	altCityPartial  = 0.8
	sameRegionScore = 0.5
	neutralMid      = 0.5
	conflictScore   = 0.2
)

// experienceBands maps an expectation band to an inclusive year range.
var experienceBands = map[model.ExperienceBand]struct{ min, max int }{
	model.BandBasic:        {0, 2},
	model.BandIntermediate: {2, 5},
	model.BandPro:          {5, 9},
	model.BandTopTier:      {9, 14},
	model.BandExpert:       {14, 200},
}

// SemanticInput carries the pre-fetched semantic signals for one pair.
// Unavailable means no semantic signal could be produced at all; the
// engine then degrades to rule-only scoring and flags it.
type SemanticInput struct {
	Style       float64
	Text        float64
	Unavailable bool
}

// Engine computes hybrid compatibility scores. It is pure: the only I/O
// happens through the similarity fetcher, and that can be bypassed by
// supplying pre-fetched semantic inputs.
type Engine struct {
	cfg     Config
	fetcher *similarity.BatchFetcher
}

// NewEngine creates an engine with an injected similarity provider. A
// nil provider means lexical-heuristic semantics only.
func NewEngine(cfg Config, provider similarity.Provider) *Engine {
	return &Engine{
		cfg:     cfg,
		fetcher: similarity.NewBatchFetcher(provider, cfg.MaxConcurrentScores),
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Fetcher exposes the batch similarity fetcher for callers that
// pre-fetch pair signals before sequential solving.
func (e *Engine) Fetcher() *similarity.BatchFetcher { return e.fetcher }

// Score computes the full hybrid score for one pair, fetching the
// semantic signal itself. Provider failure degrades, never errors.
func (e *Engine) Score(ctx context.Context, p *model.Proposer, r *model.Reviewer) model.ScoreBreakdown {
	pairs := []similarity.Pair{{
		ProposerID: p.ID,
		ReviewerID: r.ID,
		TagsA:      p.StyleTags,
		TagsB:      r.StyleTags,
		TextA:      p.Brief,
		TextB:      r.Bio,
	}}
	scores, _ := e.fetcher.Fetch(ctx, pairs)

	sem := SemanticInput{Unavailable: true}
	if s, ok := scores[similarity.PairKey{ProposerID: p.ID, ReviewerID: r.ID}]; ok {
		sem = SemanticInput{Style: s.Style, Text: s.Text}
	}
	return e.ScoreWithSemantic(p, r, sem)
}

// ScoreWithSemantic combines the rule-based factors with pre-fetched
// semantic signals. Deterministic and free of I/O.
func (e *Engine) ScoreWithSemantic(p *model.Proposer, r *model.Reviewer, sem SemanticInput) model.ScoreBreakdown {
	caps := e.cfg.Caps

	factors := map[string]float64{
		model.FactorLocation:     scoreLocation(p, r) * caps.Location,
		model.FactorBudget:       scoreBudget(p.EffectiveBudget(), r.Budget) * caps.Budget,
		model.FactorSkills:       scoreSkills(p.Category, p.Skills, r.Skills) * caps.Skills,
		model.FactorExperience:   scoreExperience(p.Experience, r.ExperienceYears) * caps.Experience,
		model.FactorAvailability: scoreAvailability(p.StartDate, r.Availability) * caps.Availability,
		model.FactorRating:       scoreRating(r.Rating) * caps.Rating,
	}

	var rule float64
	for _, v := range factors {
		rule += v
	}
	rule = math.Min(rule, e.cfg.RuleCap)

	var semantic float64
	algorithm := "hybrid"
	if sem.Unavailable {
		factors[model.FactorStyle] = 0
		factors[model.FactorSemanticText] = 0
		algorithm = "rule-only"
		if e.cfg.ScaleRuleWhenDegraded && e.cfg.RuleCap > 0 {
			rule = rule * 100 / e.cfg.RuleCap
		}
	} else {
		style := clamp01(sem.Style) * caps.StyleSim
		text := clamp01(sem.Text) * caps.TextSim
		factors[model.FactorStyle] = style
		factors[model.FactorSemanticText] = text
		semantic = math.Min(style+text, e.cfg.SemanticCap)
	}

	total := rule*e.cfg.RuleWeight + semantic*e.cfg.SemanticWeight
	total = math.Max(0, math.Min(100, total))

	return model.ScoreBreakdown{
		Factors:             factors,
		Total:               int(math.Round(total)),
		Algorithm:           algorithm,
		SemanticUnavailable: sem.Unavailable,
	}
}

// NeutralBreakdown is the mid-range substitute recorded when scoring a
// pair fails outright. The run continues; the pair is flagged.
func NeutralBreakdown() model.ScoreBreakdown {
	return model.ScoreBreakdown{
		Factors:      map[string]float64{},
		Total:        50,
		Algorithm:    "fallback",
		FallbackPair: true,
	}
}

// scoreLocation rates geographic fit in [0, 1]. A different city never
// scores zero; the floor keeps distant candidates in contention.
func scoreLocation(p *model.Proposer, r *model.Reviewer) float64 {
	if p.RemoteOK {
		return 1.0
	}
	if p.City != "" && strings.EqualFold(p.City, r.City) {
		return 1.0
	}
	for _, alt := range r.AltCities {
		if strings.EqualFold(p.City, alt) {
			return altCityPartial
		}
	}
	if p.Region != "" && strings.EqualFold(p.Region, r.Region) {
		return sameRegionScore
	}
	return locationFloor
}

// scoreBudget rates budget fit in [0, 1]: full points inside the
// reviewer's range, then a decay step per 10% band outside it.
func scoreBudget(budget float64, r model.BudgetRange) float64 {
	if budget <= 0 || (r.Min <= 0 && r.Max <= 0) {
		return neutralMid
	}
	if r.Contains(budget) {
		return 1.0
	}

	var distance float64
	switch {
	case budget < r.Min:
		distance = (r.Min - budget) / r.Min
	default:
		distance = (budget - r.Max) / r.Max
	}
	bands := math.Ceil(distance * 10)
	return math.Max(budgetFloor, 1-0.15*bands)
}

// scoreSkills rates category and skill overlap in [0, 1]. Category
// membership carries the majority of the sub-score; each overlapping
// skill token adds a fixed increment up to a cap.
func scoreSkills(category string, wanted, offered []string) float64 {
	var score float64
	if category != "" && containsToken(offered, category) {
		score += 0.6
	}

	var overlap float64
	for _, w := range wanted {
		if containsToken(offered, w) {
			overlap += 0.1
		}
	}
	score += math.Min(overlap, 0.4)

	if category == "" && len(wanted) == 0 {
		return neutralMid
	}
	return math.Min(score, 1.0)
}

// containsToken reports whether any candidate token matches the probe
// by case-insensitive substring containment in either direction.
func containsToken(haystack []string, probe string) bool {
	p := strings.ToLower(strings.TrimSpace(probe))
	if p == "" {
		return false
	}
	for _, h := range haystack {
		hl := strings.ToLower(strings.TrimSpace(h))
		if hl == "" {
			continue
		}
		if strings.Contains(hl, p) || strings.Contains(p, hl) {
			return true
		}
	}
	return false
}

// scoreExperience rates the reviewer's years against the expectation
// band. Under-qualification keeps a non-trivial floor.
func scoreExperience(band model.ExperienceBand, years int) float64 {
	if band == "" {
		return neutralMid
	}
	b, ok := experienceBands[band]
	if !ok {
		return neutralMid
	}
	switch {
	case years >= b.min && years <= b.max:
		return 1.0
	case years > b.max:
		return overQualPartial
	default:
		return underQualFloor
	}
}

// scoreAvailability rates schedule fit: a declared window covering the
// start date is full points, no data is neutral, a known conflict is low.
func scoreAvailability(start *time.Time, windows []model.AvailabilityWindow) float64 {
	if start == nil || len(windows) == 0 {
		return neutralMid
	}
	for _, w := range windows {
		if w.Covers(*start) {
			return 1.0
		}
	}
	return conflictScore
}

// scoreRating maps the 0-5 rating onto [0, 1]; missing ratings are
// neutral rather than punitive.
func scoreRating(rating float64) float64 {
	switch {
	case rating <= 0:
		return neutralMid
	case rating >= 4.5:
		return 1.0
	case rating >= 4.0:
		return 0.75
	case rating >= 3.0:
		return 0.5
	default:
		return 0.25
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
