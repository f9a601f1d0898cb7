package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// AlgorithmKind selects the matching algorithm. It is a closed enum;
// selection dispatches on it, never on raw strings.
type AlgorithmKind int

const (
	AlgorithmAuto AlgorithmKind = iota
	AlgorithmStable
	AlgorithmRanked
)

// String returns the wire name of the algorithm kind.
func (k AlgorithmKind) String() string {
	switch k {
	case AlgorithmStable:
		return "stable"
	case AlgorithmRanked:
		return "ranked"
	default:
		return "auto"
	}
}

// ParseAlgorithm converts a wire name into an AlgorithmKind.
func ParseAlgorithm(s string) (AlgorithmKind, error) {
	switch s {
	case "", "auto":
		return AlgorithmAuto, nil
	case "stable":
		return AlgorithmStable, nil
	case "ranked":
		return AlgorithmRanked, nil
	default:
		return AlgorithmAuto, eris.Errorf("model: unknown algorithm %q", s)
	}
}

// MatchType records which path produced a match.
type MatchType string

const (
	MatchTypeRanked MatchType = "ranked"
	MatchTypeStable MatchType = "stable"
)

// Stability describes the guarantee attached to a result set.
type Stability string

const (
	StabilityGuaranteed    Stability = "guaranteed"
	StabilityNotGuaranteed Stability = "not-guaranteed"
)

// Score factor names. Every ScoreBreakdown factor map is keyed by these.
const (
	FactorLocation     = "location"
	FactorBudget       = "budget"
	FactorSkills       = "skills"
	FactorExperience   = "experience"
	FactorAvailability = "availability"
	FactorStyle        = "style-similarity"
	FactorSemanticText = "semantic-text-match"
	FactorRating       = "rating"
)

// ScoreBreakdown is the per-factor decomposition of one pair's
// compatibility score. Total is always within [0, 100].
type ScoreBreakdown struct {
	Factors             map[string]float64 `json:"factors"`
	Total               int                `json:"total"`
	Algorithm           string             `json:"algorithm"`
	SemanticUnavailable bool               `json:"semantic_unavailable,omitempty"`
	FallbackPair        bool               `json:"fallback_pair,omitempty"`
}

// PreferenceList is one entity's ranking of the opposite side, best
// first. Ties are broken by identifier ascending for determinism.
type PreferenceList struct {
	ID     string   `json:"id"`
	Ranked []string `json:"ranked"`
}

// Match pairs a proposer with a reviewer plus the evidence for it.
type Match struct {
	ProposerID        string         `json:"proposer_id"`
	ReviewerID        string         `json:"reviewer_id"`
	Score             ScoreBreakdown `json:"score"`
	Rank              int            `json:"rank"`
	MatchType         MatchType      `json:"match_type"`
	StabilityVerified bool           `json:"stability_verified"`
}

// MatchMetadata describes how a result set was produced. Every fallback
// taken during the run is visible here, never hidden from the caller.
type MatchMetadata struct {
	TotalCandidates   int           `json:"total_candidates"`
	MatchedCount      int           `json:"matched_count"`
	ProposerCount     int           `json:"proposer_count"`
	Algorithm         string        `json:"algorithm"`
	Stability         Stability     `json:"stability"`
	Degraded          bool          `json:"degraded,omitempty"`
	FallbackPairs     int           `json:"fallback_pairs,omitempty"`
	IterationLimitHit bool          `json:"iteration_limit_hit,omitempty"`
	ProcessingTime    time.Duration `json:"-"`
	ProcessingTimeMs  int64         `json:"processing_time_ms"`
}

// MatchResult is the full response of a matching run.
type MatchResult struct {
	Matches  []Match       `json:"matches"`
	Metadata MatchMetadata `json:"metadata"`
}

// MatchRun is a persisted matching run: the inputs it was given and the
// result it produced. The core hands these to the store boundary; it
// never writes them itself.
type MatchRun struct {
	ID        string      `json:"id"`
	Proposers []Proposer  `json:"proposers"`
	Reviewers []Reviewer  `json:"reviewers"`
	Result    MatchResult `json:"result"`
	CreatedAt time.Time   `json:"created_at"`
}
