// Package source is the candidate-retrieval boundary. Retrieval owns
// hard filtering and the pool cap; the matching core treats the pool it
// receives as the universe.
package source

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/model"
)

// Criteria narrows the reviewer pool before scoring. Zero values mean
// no constraint.
type Criteria struct {
	Category      string
	City          string
	BudgetMax     float64
	MinExperience int
	Limit         int
}

// Source yields reviewer candidates for a matching run.
type Source interface {
	Fetch(ctx context.Context, criteria Criteria) ([]model.Reviewer, error)
}

// sanitize deduplicates by reviewer id and truncates to the limit.
// Both are retrieval's contract with the core, enforced here so every
// Source honors it.
func sanitize(reviewers []model.Reviewer, limit int) []model.Reviewer {
	seen := make(map[string]struct{}, len(reviewers))
	out := make([]model.Reviewer, 0, len(reviewers))
	for _, r := range reviewers {
		if r.ID == "" {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		zap.L().Debug("source: truncating pool to limit",
			zap.Int("pool", len(out)),
			zap.Int("limit", limit),
		)
		out = out[:limit]
	}
	return out
}

// matches applies Criteria's hard constraints to one reviewer.
func matches(r *model.Reviewer, c Criteria) bool {
	if c.City != "" && !r.ServesCity(c.City) {
		return false
	}
	if c.MinExperience > 0 && r.ExperienceYears < c.MinExperience {
		return false
	}
	if c.BudgetMax > 0 && r.Budget.Min > c.BudgetMax {
		return false
	}
	if c.Category != "" && !hasSkillFor(r, c.Category) {
		return false
	}
	return true
}
