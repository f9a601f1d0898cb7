package stable

import (
	"github.com/sells-group/talent-matcher/internal/model"
)

// BlockingPair is a proposer and reviewer who both prefer each other
// over their assigned partners.
type BlockingPair struct {
	ProposerID string `json:"proposer_id"`
	ReviewerID string `json:"reviewer_id"`
}

// Verification is the outcome of a stability audit.
type Verification struct {
	IsStable      bool           `json:"is_stable"`
	BlockingPairs []BlockingPair `json:"blocking_pairs,omitempty"`
}

// Verify audits a matching for blocking pairs. It is implemented from
// the preference lists alone, independent of the solver's internal
// bookkeeping, so it can serve as a test oracle against solver bugs.
func Verify(matching map[string]string, proposerPrefs, reviewerPrefs map[string]model.PreferenceList) Verification {
	// reviewer -> holding proposer, derived only from the matching.
	heldBy := make(map[string]string, len(matching))
	for pid, rid := range matching {
		heldBy[rid] = pid
	}

	// Rank positions per reviewer for O(1) preference comparisons.
	reviewerRank := make(map[string]map[string]int, len(reviewerPrefs))
	for rid, pl := range reviewerPrefs {
		ranks := make(map[string]int, len(pl.Ranked))
		for i, pid := range pl.Ranked {
			ranks[pid] = i
		}
		reviewerRank[rid] = ranks
	}

	var blocking []BlockingPair
	for _, pid := range sortedKeys(proposerPrefs) {
		ranked := proposerPrefs[pid].Ranked

		// Every reviewer strictly preferred over the current match; for
		// an unmatched proposer that is the whole list.
		limit := len(ranked)
		if matched, ok := matching[pid]; ok {
			for i, rid := range ranked {
				if rid == matched {
					limit = i
					break
				}
			}
		}

		for _, rid := range ranked[:limit] {
			ranks, known := reviewerRank[rid]
			if !known {
				continue
			}
			myRank, acceptable := ranks[pid]
			if !acceptable {
				continue
			}

			holder, held := heldBy[rid]
			if !held {
				blocking = append(blocking, BlockingPair{ProposerID: pid, ReviewerID: rid})
				continue
			}
			holderRank, ok := ranks[holder]
			if !ok || myRank < holderRank {
				blocking = append(blocking, BlockingPair{ProposerID: pid, ReviewerID: rid})
			}
		}
	}

	return Verification{
		IsStable:      len(blocking) == 0,
		BlockingPairs: blocking,
	}
}
