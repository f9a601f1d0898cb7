package similarity

import "context"

// Lexical is the deterministic fallback provider: token-overlap
// similarity with no I/O. It is always available and always returns the
// same score for the same inputs, which makes it the degradation target
// when a remote provider is absent or failing.
type Lexical struct{}

// NewLexical returns the lexical-overlap provider.
func NewLexical() *Lexical { return &Lexical{} }

// TextSimilarity computes the Sørensen–Dice coefficient over the two
// texts' normalized word sets.
func (l *Lexical) TextSimilarity(_ context.Context, a, b string) (float64, error) {
	sa, sb := Tokenize(a), Tokenize(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0, nil
	}
	var common int
	for w := range sa {
		if _, ok := sb[w]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(sa)+len(sb)), nil
}

// TagSimilarity computes Jaccard overlap over normalized tag sets.
func (l *Lexical) TagSimilarity(_ context.Context, tagsA, tagsB []string) (float64, error) {
	na, nb := NormalizeTags(tagsA), NormalizeTags(tagsB)
	if len(na) == 0 || len(nb) == 0 {
		return 0, nil
	}
	set := make(map[string]struct{}, len(na))
	for _, t := range na {
		set[t] = struct{}{}
	}
	var inter int
	for _, t := range nb {
		if _, ok := set[t]; ok {
			inter++
		}
	}
	union := len(na) + len(nb) - inter
	return float64(inter) / float64(union), nil
}

// Available always reports true; the lexical heuristic has no failure mode.
func (l *Lexical) Available(context.Context) bool { return true }
