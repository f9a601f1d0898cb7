package stable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyStableMatching(t *testing.T) {
	proposers := prefsFrom(map[string][]string{
		"P1": {"R1", "R2"},
		"P2": {"R1", "R2"},
	})
	reviewers := prefsFrom(map[string][]string{
		"R1": {"P2", "P1"},
		"R2": {"P1", "P2"},
	})

	audit := Verify(map[string]string{"P1": "R2", "P2": "R1"}, proposers, reviewers)
	assert.True(t, audit.IsStable)
	assert.Empty(t, audit.BlockingPairs)
}

func TestVerifyDetectsBlockingPair(t *testing.T) {
	proposers := prefsFrom(map[string][]string{
		"P1": {"R1", "R2"},
		"P2": {"R1", "R2"},
	})
	reviewers := prefsFrom(map[string][]string{
		"R1": {"P2", "P1"},
		"R2": {"P1", "P2"},
	})

	// Swapped assignment: P2 prefers R1 over R2, and R1 prefers P2 over
	// its holder P1.
	audit := Verify(map[string]string{"P1": "R1", "P2": "R2"}, proposers, reviewers)
	assert.False(t, audit.IsStable)
	assert.Contains(t, audit.BlockingPairs, BlockingPair{ProposerID: "P2", ReviewerID: "R1"})
}

func TestVerifyUnmatchedReviewerBlocks(t *testing.T) {
	proposers := prefsFrom(map[string][]string{
		"P1": {"R1", "R2"},
	})
	reviewers := prefsFrom(map[string][]string{
		"R1": {"P1"},
		"R2": {"P1"},
	})

	// P1 sits on its second choice while its first choice is free and
	// finds P1 acceptable.
	audit := Verify(map[string]string{"P1": "R2"}, proposers, reviewers)
	assert.False(t, audit.IsStable)
	assert.Equal(t, []BlockingPair{{ProposerID: "P1", ReviewerID: "R1"}}, audit.BlockingPairs)
}

func TestVerifyUnacceptableIsNotBlocking(t *testing.T) {
	proposers := prefsFrom(map[string][]string{
		"P1": {"R1", "R2"},
	})
	reviewers := prefsFrom(map[string][]string{
		"R1": {}, // R1 ranks nobody: unacceptable to all
		"R2": {"P1"},
	})

	audit := Verify(map[string]string{"P1": "R2"}, proposers, reviewers)
	assert.True(t, audit.IsStable)
}

func TestVerifyUnmatchedProposerWholeListConsidered(t *testing.T) {
	proposers := prefsFrom(map[string][]string{
		"P1": {"R1"},
		"P2": {"R1"},
	})
	reviewers := prefsFrom(map[string][]string{
		"R1": {"P1", "P2"},
	})

	// P2 unmatched, R1 held by its first choice: stable.
	audit := Verify(map[string]string{"P1": "R1"}, proposers, reviewers)
	assert.True(t, audit.IsStable)

	// But holding the worse proposer leaves a blocking pair with P1.
	audit = Verify(map[string]string{"P2": "R1"}, proposers, reviewers)
	assert.False(t, audit.IsStable)
	assert.Equal(t, []BlockingPair{{ProposerID: "P1", ReviewerID: "R1"}}, audit.BlockingPairs)
}

func TestVerifyEmptyMatching(t *testing.T) {
	audit := Verify(nil, nil, nil)
	assert.True(t, audit.IsStable)
}
