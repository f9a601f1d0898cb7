package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/store"
)

// StoreSource retrieves reviewer profiles from the persistence store.
type StoreSource struct {
	st store.Store
}

// NewStoreSource creates a source over a Store.
func NewStoreSource(st store.Store) *StoreSource {
	return &StoreSource{st: st}
}

func (s *StoreSource) Fetch(ctx context.Context, criteria Criteria) ([]model.Reviewer, error) {
	// City is filtered in memory, not in SQL: the city column only holds
	// the home base and alt cities live in the profile JSON.
	reviewers, err := s.st.ListReviewers(ctx, store.ReviewerQuery{
		Category:      criteria.Category,
		BudgetMax:     criteria.BudgetMax,
		MinExperience: criteria.MinExperience,
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: list reviewers")
	}

	out := make([]model.Reviewer, 0, len(reviewers))
	for i := range reviewers {
		if matches(&reviewers[i], criteria) {
			out = append(out, reviewers[i])
		}
	}
	return sanitize(out, criteria.Limit), nil
}
