// Package store is the match-persistence boundary: the orchestrator
// emits Match values and the caller owns writing them. The core never
// imports this package; only the CLI wires a store in.
package store

import (
	"context"

	"github.com/sells-group/talent-matcher/internal/model"
)

// MatchFilter specifies criteria for listing persisted matches.
type MatchFilter struct {
	RunID      string  `json:"run_id,omitempty"`
	ProposerID string  `json:"proposer_id,omitempty"`
	MinScore   float64 `json:"min_score,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

// ReviewerQuery specifies candidate-retrieval criteria. It mirrors the
// proposer's hard constraints; soft fit is the scorer's job.
type ReviewerQuery struct {
	Category      string  `json:"category,omitempty"`
	City          string  `json:"city,omitempty"`
	BudgetMax     float64 `json:"budget_max,omitempty"`
	MinExperience int     `json:"min_experience,omitempty"`
	Limit         int     `json:"limit,omitempty"`
}

// Store defines the persistence interface for matching runs and
// reviewer profiles.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, run *model.MatchRun) error
	GetRun(ctx context.Context, runID string) (*model.MatchRun, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]model.Match, error)

	// Reviewer profiles (candidate retrieval backing data)
	UpsertReviewers(ctx context.Context, reviewers []model.Reviewer) (int, error)
	ListReviewers(ctx context.Context, q ReviewerQuery) ([]model.Reviewer, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
