// Package prefs builds per-entity preference lists from pairwise hybrid
// scores. Scoring fan-out is bounded; the output is pure data consumed
// by the stable-matching solver.
package prefs

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/scoring"
	"github.com/sells-group/talent-matcher/internal/similarity"
)

// Pair identifies one scored proposer/reviewer combination.
type Pair struct {
	ProposerID string
	ReviewerID string
}

// Prefs holds both sides' preference lists plus the pairwise scores
// they were derived from. Preference lists are directional but derive
// from the same symmetric pairwise score.
type Prefs struct {
	ProposerPrefs map[string]model.PreferenceList
	ReviewerPrefs map[string]model.PreferenceList
	Scores        map[Pair]model.ScoreBreakdown

	// Degraded is true when the semantic provider was unavailable for
	// the whole batch. FallbackPairs counts pairs that received the
	// neutral substitute score after a scoring failure.
	Degraded      bool
	FallbackPairs int
}

// Score returns the breakdown for one pair.
func (p *Prefs) Score(proposerID, reviewerID string) (model.ScoreBreakdown, bool) {
	s, ok := p.Scores[Pair{ProposerID: proposerID, ReviewerID: reviewerID}]
	return s, ok
}

// Builder scores every proposer×reviewer pair exactly once and ranks
// both sides.
type Builder struct {
	engine *scoring.Engine

	// score is swappable for tests; defaults to the engine's pure
	// combination step.
	score func(p *model.Proposer, r *model.Reviewer, sem scoring.SemanticInput) (model.ScoreBreakdown, error)
}

// NewBuilder creates a preference list builder on top of an engine.
func NewBuilder(engine *scoring.Engine) *Builder {
	b := &Builder{engine: engine}
	b.score = func(p *model.Proposer, r *model.Reviewer, sem scoring.SemanticInput) (model.ScoreBreakdown, error) {
		return engine.ScoreWithSemantic(p, r, sem), nil
	}
	return b
}

// Build produces both sides' preference lists. Semantic signals for all
// pairs are pre-fetched with bounded concurrency before the pure
// scoring pass, so nothing downstream blocks on the network. A per-pair
// scoring failure substitutes a neutral mid-range score and the build
// continues; only context cancellation aborts the whole build.
func (b *Builder) Build(ctx context.Context, proposers []model.Proposer, reviewers []model.Reviewer) (*Prefs, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "prefs: build cancelled")
	}

	// Stable input order regardless of caller's map/slice ordering.
	proposers = sortedProposers(proposers)
	reviewers = sortedReviewers(reviewers)

	simPairs := make([]similarity.Pair, 0, len(proposers)*len(reviewers))
	for i := range proposers {
		for j := range reviewers {
			simPairs = append(simPairs, similarity.Pair{
				ProposerID: proposers[i].ID,
				ReviewerID: reviewers[j].ID,
				TagsA:      proposers[i].StyleTags,
				TagsB:      reviewers[j].StyleTags,
				TextA:      proposers[i].Brief,
				TextB:      reviewers[j].Bio,
			})
		}
	}

	semScores, degraded := b.engine.Fetcher().Fetch(ctx, simPairs)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "prefs: semantic prefetch cancelled")
	}

	out := &Prefs{
		ProposerPrefs: make(map[string]model.PreferenceList, len(proposers)),
		ReviewerPrefs: make(map[string]model.PreferenceList, len(reviewers)),
		Scores:        make(map[Pair]model.ScoreBreakdown, len(simPairs)),
		Degraded:      degraded,
	}

	for i := range proposers {
		p := &proposers[i]
		for j := range reviewers {
			r := &reviewers[j]

			sem := scoring.SemanticInput{Unavailable: true}
			if s, ok := semScores[similarity.PairKey{ProposerID: p.ID, ReviewerID: r.ID}]; ok {
				sem = scoring.SemanticInput{Style: s.Style, Text: s.Text}
			}

			breakdown, err := b.score(p, r, sem)
			if err != nil {
				zap.L().Warn("prefs: pair scoring failed, substituting neutral score",
					zap.String("proposer", p.ID),
					zap.String("reviewer", r.ID),
					zap.Error(err),
				)
				breakdown = scoring.NeutralBreakdown()
				out.FallbackPairs++
			}
			out.Scores[Pair{ProposerID: p.ID, ReviewerID: r.ID}] = breakdown
		}
	}

	for i := range proposers {
		id := proposers[i].ID
		out.ProposerPrefs[id] = model.PreferenceList{
			ID:     id,
			Ranked: rankOpposite(id, reviewers, func(rid string) int { return out.Scores[Pair{id, rid}].Total }),
		}
	}
	for j := range reviewers {
		id := reviewers[j].ID
		out.ReviewerPrefs[id] = model.PreferenceList{
			ID:     id,
			Ranked: rankOppositeProposers(id, proposers, func(pid string) int { return out.Scores[Pair{pid, id}].Total }),
		}
	}

	return out, nil
}

// rankOpposite orders reviewer ids by score descending, id ascending.
func rankOpposite(_ string, reviewers []model.Reviewer, scoreOf func(string) int) []string {
	ids := make([]string, len(reviewers))
	for i := range reviewers {
		ids[i] = reviewers[i].ID
	}
	sort.Slice(ids, func(a, b int) bool {
		sa, sb := scoreOf(ids[a]), scoreOf(ids[b])
		if sa != sb {
			return sa > sb
		}
		return ids[a] < ids[b]
	})
	return ids
}

// rankOppositeProposers orders proposer ids by score descending, id
// ascending.
func rankOppositeProposers(_ string, proposers []model.Proposer, scoreOf func(string) int) []string {
	ids := make([]string, len(proposers))
	for i := range proposers {
		ids[i] = proposers[i].ID
	}
	sort.Slice(ids, func(a, b int) bool {
		sa, sb := scoreOf(ids[a]), scoreOf(ids[b])
		if sa != sb {
			return sa > sb
		}
		return ids[a] < ids[b]
	})
	return ids
}

func sortedProposers(in []model.Proposer) []model.Proposer {
	out := make([]model.Proposer, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedReviewers(in []model.Reviewer) []model.Reviewer {
	out := make([]model.Reviewer, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
