// Package stable implements deferred acceptance (Gale–Shapley) over
// preference lists, plus an independent stability verifier used for
// auditing solver output.
package stable

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/model"
)

// Result is a solved matching: proposer id -> reviewer id. Proposers
// whose preference lists were exhausted without acceptance are absent.
type Result struct {
	Pairs             map[string]string
	Iterations        int
	IterationLimitHit bool
}

// Solve runs proposer-proposing deferred acceptance. The result is a
// stable matching and proposer-optimal among all stable matchings.
//
// The loop operates on dense integer indices assigned at run start;
// match and hold state live in fixed-size slices, and every transition
// happens in one sequential pass. maxIterations bounds the proposal
// loop; hitting the bound is non-fatal and returns the partial matching
// with IterationLimitHit set.
func Solve(proposerPrefs, reviewerPrefs map[string]model.PreferenceList, maxIterations int) (Result, error) {
	if maxIterations <= 0 {
		return Result{}, eris.New("stable: max iterations must be positive")
	}

	// Dense index arenas, ordered by id for determinism.
	proposerIDs := sortedKeys(proposerPrefs)
	reviewerIDs := sortedKeys(reviewerPrefs)

	pIndex := make(map[string]int, len(proposerIDs))
	for i, id := range proposerIDs {
		pIndex[id] = i
	}
	rIndex := make(map[string]int, len(reviewerIDs))
	for i, id := range reviewerIDs {
		rIndex[id] = i
	}

	// prefOf[p] is proposer p's ranked reviewer indices; unknown ids in
	// a list are skipped rather than treated as errors.
	prefOf := make([][]int, len(proposerIDs))
	for i, id := range proposerIDs {
		ranked := proposerPrefs[id].Ranked
		row := make([]int, 0, len(ranked))
		for _, rid := range ranked {
			if j, ok := rIndex[rid]; ok {
				row = append(row, j)
			}
		}
		prefOf[i] = row
	}

	// rankOf[r][p] is how reviewer r ranks proposer p; lower is better.
	// Proposers missing from a reviewer's list are unacceptable to it.
	const unranked = int(^uint(0) >> 1)
	rankOf := make([][]int, len(reviewerIDs))
	for j, id := range reviewerIDs {
		row := make([]int, len(proposerIDs))
		for i := range row {
			row[i] = unranked
		}
		for rank, pid := range reviewerPrefs[id].Ranked {
			if i, ok := pIndex[pid]; ok {
				row[i] = rank
			}
		}
		rankOf[j] = row
	}

	const none = -1
	matchOf := make([]int, len(proposerIDs)) // proposer -> reviewer
	holderOf := make([]int, len(reviewerIDs)) // reviewer -> proposer
	nextPick := make([]int, len(proposerIDs)) // next preference position to try
	for i := range matchOf {
		matchOf[i] = none
	}
	for j := range holderOf {
		holderOf[j] = none
	}

	// FIFO queue of unmatched proposers with unexhausted preferences.
	queue := make([]int, 0, len(proposerIDs))
	for i := range proposerIDs {
		if len(prefOf[i]) > 0 {
			queue = append(queue, i)
		}
	}

	res := Result{}
	for len(queue) > 0 {
		if res.Iterations >= maxIterations {
			res.IterationLimitHit = true
			zap.L().Warn("stable: iteration limit reached, returning partial matching",
				zap.Int("iterations", res.Iterations),
				zap.Int("still_unmatched", len(queue)),
			)
			break
		}
		res.Iterations++

		p := queue[0]
		queue = queue[1:]

		if nextPick[p] >= len(prefOf[p]) {
			continue // exhausted: permanently unmatched
		}
		r := prefOf[p][nextPick[p]]
		nextPick[p]++

		if rankOf[r][p] == unranked {
			// Unacceptable to this reviewer; try the next preference.
			queue = append(queue, p)
			continue
		}

		current := holderOf[r]
		switch {
		case current == none:
			holderOf[r] = p
			matchOf[p] = r
		case rankOf[r][p] < rankOf[r][current]:
			// Upgrade: the held proposer re-enters the queue with its
			// remaining preference positions intact.
			holderOf[r] = p
			matchOf[p] = r
			matchOf[current] = none
			if nextPick[current] < len(prefOf[current]) {
				queue = append(queue, current)
			}
		default:
			// Rejected; try the next preference on a later turn.
			if nextPick[p] < len(prefOf[p]) {
				queue = append(queue, p)
			}
		}
	}

	res.Pairs = make(map[string]string)
	for i, r := range matchOf {
		if r != none {
			res.Pairs[proposerIDs[i]] = reviewerIDs[r]
		}
	}
	return res, nil
}

func sortedKeys(m map[string]model.PreferenceList) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
