package matcher

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/prefs"
	"github.com/sells-group/talent-matcher/internal/scoring"
	"github.com/sells-group/talent-matcher/internal/similarity"
	"github.com/sells-group/talent-matcher/internal/stable"
)

// Request describes one matching run.
type Request struct {
	Proposers  []model.Proposer
	Candidates []model.Reviewer

	// Limit truncates ranked output per proposer; 0 means the candidate
	// cap applies.
	Limit int

	// Algorithm is the caller's hint; Auto lets the orchestrator decide.
	Algorithm model.AlgorithmKind

	// MinScore overrides the configured qualifying threshold when > 0.
	MinScore float64
}

// Orchestrator wires the scoring engine, preference builder, and solver
// behind a single FindMatches entry point. All collaborators are
// injected; the orchestrator holds no ambient global state.
type Orchestrator struct {
	engine   *scoring.Engine
	builder  *prefs.Builder
	deadline time.Duration
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithDeadline bounds a whole FindMatches run. Exceeding it during
// preference construction falls back to the rule-only ranked path.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// New creates an orchestrator around an engine.
func New(engine *scoring.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:  engine,
		builder: prefs.NewBuilder(engine),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type strategy struct {
	name string
	run  func(ctx context.Context, req Request) (*model.MatchResult, error)
}

// FindMatches validates the request, picks an algorithm, and runs the
// fallback chain: stable -> ranked -> ranked rule-only. Each step's
// failure is logged and recorded; only exhaustion of the whole chain
// surfaces an error.
func (o *Orchestrator) FindMatches(ctx context.Context, req Request) (*model.MatchResult, error) {
	start := time.Now()

	if len(req.Proposers) == 0 {
		return nil, eris.Wrap(ErrInvalidSpecification, "no proposers given")
	}
	for i := range req.Proposers {
		if err := req.Proposers[i].Validate(); err != nil {
			return nil, eris.Wrap(ErrInvalidSpecification, err.Error())
		}
	}
	cfg := o.engine.Config()
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(ErrInvalidSpecification, err.Error())
	}

	req.Candidates = dedupeAndCap(req.Candidates, cfg.CandidateCap)

	// Empty pool is a well-formed empty result, not an error. No algorithm
	// runs, and the metadata says so rather than echoing the caller's hint.
	if len(req.Candidates) == 0 {
		return &model.MatchResult{
			Matches: []model.Match{},
			Metadata: model.MatchMetadata{
				ProposerCount:    len(req.Proposers),
				Algorithm:        "none",
				Stability:        model.StabilityNotGuaranteed,
				ProcessingTime:   time.Since(start),
				ProcessingTimeMs: time.Since(start).Milliseconds(),
			},
		}, nil
	}

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	chain := o.selectChain(req)

	failure := &AlgorithmFailure{}
	for _, s := range chain {
		res, err := s.run(ctx, req)
		if err != nil {
			zap.L().Warn("matcher: algorithm failed, trying next in chain",
				zap.String("algorithm", s.name),
				zap.Error(err),
			)
			failure.Chain = append(failure.Chain, s.name)
			failure.Causes = append(failure.Causes, err)
			continue
		}

		res.Metadata.Algorithm = s.name
		res.Metadata.TotalCandidates = len(req.Candidates)
		res.Metadata.ProposerCount = len(req.Proposers)
		res.Metadata.MatchedCount = len(res.Matches)
		res.Metadata.ProcessingTime = time.Since(start)
		res.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
		if len(failure.Chain) > 0 {
			res.Metadata.Degraded = true
		}
		return res, nil
	}

	return nil, failure
}

// selectChain builds the fallback chain via an explicit dispatch table
// on the algorithm kind.
func (o *Orchestrator) selectChain(req Request) []strategy {
	cfg := o.engine.Config()

	stableStrat := strategy{name: "stable", run: o.runStable}
	rankedStrat := strategy{name: "ranked", run: o.runRanked}
	ruleOnly := strategy{name: "ranked-rule-only", run: o.runRankedRuleOnly}

	switch req.Algorithm {
	case model.AlgorithmStable:
		return []strategy{stableStrat, rankedStrat, ruleOnly}
	case model.AlgorithmRanked:
		return []strategy{rankedStrat, ruleOnly}
	default: // auto
		if cfg.StableEnabled && len(req.Candidates) <= cfg.CandidateCap {
			return []strategy{stableStrat, rankedStrat, ruleOnly}
		}
		return []strategy{rankedStrat, ruleOnly}
	}
}

// runStable builds preference lists, solves deferred acceptance, and
// audits the result with the independent verifier.
func (o *Orchestrator) runStable(ctx context.Context, req Request) (*model.MatchResult, error) {
	cfg := o.engine.Config()

	built, err := o.builder.Build(ctx, req.Proposers, req.Candidates)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: preference build")
	}

	solved, err := stable.Solve(built.ProposerPrefs, built.ReviewerPrefs, cfg.MaxIterations)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: solve")
	}

	audit := stable.Verify(solved.Pairs, built.ProposerPrefs, built.ReviewerPrefs)
	if !audit.IsStable && !solved.IterationLimitHit {
		// A completed run must be stable; a failed audit means a solver
		// bug, so fall back rather than hand out a bad guarantee.
		return nil, eris.Errorf("matcher: stability audit found %d blocking pairs", len(audit.BlockingPairs))
	}

	matches := make([]model.Match, 0, len(solved.Pairs))
	for pid, rid := range solved.Pairs {
		score, _ := built.Score(pid, rid)
		matches = append(matches, model.Match{
			ProposerID:        pid,
			ReviewerID:        rid,
			Score:             score,
			MatchType:         model.MatchTypeStable,
			StabilityVerified: audit.IsStable,
		})
	}
	sortAndRank(matches)

	stability := model.StabilityGuaranteed
	if solved.IterationLimitHit || !audit.IsStable {
		stability = model.StabilityNotGuaranteed
	}

	return &model.MatchResult{
		Matches: matches,
		Metadata: model.MatchMetadata{
			Stability:         stability,
			Degraded:          built.Degraded,
			FallbackPairs:     built.FallbackPairs,
			IterationLimitHit: solved.IterationLimitHit,
		},
	}, nil
}

// runRanked scores every candidate per proposer, filters by the
// qualifying threshold, sorts, and truncates.
func (o *Orchestrator) runRanked(ctx context.Context, req Request) (*model.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "matcher: ranked scoring cancelled")
	}
	return o.rankCandidates(ctx, req, false)
}

// runRankedRuleOnly is the last resort: pure rule-based scoring with no
// network dependency, so it works even after the run deadline expired.
func (o *Orchestrator) runRankedRuleOnly(_ context.Context, req Request) (*model.MatchResult, error) {
	return o.rankCandidates(context.Background(), req, true)
}

func (o *Orchestrator) rankCandidates(ctx context.Context, req Request, ruleOnly bool) (*model.MatchResult, error) {
	cfg := o.engine.Config()

	minScore := cfg.MinScore
	if req.MinScore > 0 {
		minScore = req.MinScore
	}
	limit := req.Limit
	if limit <= 0 {
		limit = cfg.CandidateCap
	}

	var semScores map[similarity.PairKey]similarity.Scores
	degraded := ruleOnly
	if !ruleOnly {
		pairs := make([]similarity.Pair, 0, len(req.Proposers)*len(req.Candidates))
		for i := range req.Proposers {
			for j := range req.Candidates {
				pairs = append(pairs, similarity.Pair{
					ProposerID: req.Proposers[i].ID,
					ReviewerID: req.Candidates[j].ID,
					TagsA:      req.Proposers[i].StyleTags,
					TagsB:      req.Candidates[j].StyleTags,
					TextA:      req.Proposers[i].Brief,
					TextB:      req.Candidates[j].Bio,
				})
			}
		}
		semScores, degraded = o.engine.Fetcher().Fetch(ctx, pairs)
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "matcher: semantic prefetch cancelled")
		}
	}

	var matches []model.Match
	for i := range req.Proposers {
		p := &req.Proposers[i]

		perProposer := make([]model.Match, 0, len(req.Candidates))
		for j := range req.Candidates {
			r := &req.Candidates[j]

			sem := scoring.SemanticInput{Unavailable: true}
			if !ruleOnly {
				if s, ok := semScores[similarity.PairKey{ProposerID: p.ID, ReviewerID: r.ID}]; ok {
					sem = scoring.SemanticInput{Style: s.Style, Text: s.Text}
				}
			}

			breakdown := o.engine.ScoreWithSemantic(p, r, sem)
			if float64(breakdown.Total) < minScore {
				continue
			}
			perProposer = append(perProposer, model.Match{
				ProposerID: p.ID,
				ReviewerID: r.ID,
				Score:      breakdown,
				MatchType:  model.MatchTypeRanked,
			})
		}

		sortAndRank(perProposer)
		if len(perProposer) > limit {
			perProposer = perProposer[:limit]
		}
		matches = append(matches, perProposer...)
	}

	if matches == nil {
		matches = []model.Match{}
	}

	return &model.MatchResult{
		Matches: matches,
		Metadata: model.MatchMetadata{
			Stability: model.StabilityNotGuaranteed,
			Degraded:  degraded,
		},
	}, nil
}

// sortAndRank orders matches by score descending (reviewer id ascending
// on ties) and assigns 1-based ranks.
func sortAndRank(matches []model.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score.Total != matches[j].Score.Total {
			return matches[i].Score.Total > matches[j].Score.Total
		}
		if matches[i].ReviewerID != matches[j].ReviewerID {
			return matches[i].ReviewerID < matches[j].ReviewerID
		}
		return matches[i].ProposerID < matches[j].ProposerID
	})
	for i := range matches {
		matches[i].Rank = i + 1
	}
}

// dedupeAndCap defensively deduplicates by reviewer id and re-truncates
// to the candidate cap; retrieval should have done both already.
func dedupeAndCap(candidates []model.Reviewer, capN int) []model.Reviewer {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.Reviewer, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		if err := c.Validate(); err != nil {
			zap.L().Warn("matcher: dropping invalid reviewer record", zap.String("reviewer", c.ID), zap.Error(err))
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	if capN > 0 && len(out) > capN {
		zap.L().Warn("matcher: candidate pool exceeds cap, truncating",
			zap.Int("pool", len(out)),
			zap.Int("cap", capN),
		)
		out = out[:capN]
	}
	return out
}
