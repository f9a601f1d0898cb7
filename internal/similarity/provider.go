// Package similarity defines the semantic-similarity provider contract
// and the deterministic lexical fallback used when no provider is
// available. Provider absence or failure is never fatal to a matching
// run; callers degrade to the lexical heuristic or to rule-only scoring.
package similarity

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Provider computes text and tag-set similarity in [0, 1]. Implementations
// must honor ctx cancellation; errors are recoverable by design.
type Provider interface {
	// TextSimilarity compares two free-text blobs (gig brief vs profile bio).
	TextSimilarity(ctx context.Context, a, b string) (float64, error)
	// TagSimilarity compares two tag sets (style tags).
	TagSimilarity(ctx context.Context, tagsA, tagsB []string) (float64, error)
	// Available reports whether the provider is currently usable. A false
	// answer means callers should degrade, not abort.
	Available(ctx context.Context) bool
}

// lowerCaser returns a fresh Caser. A Caser may carry state and is not
// safe for concurrent use, so callers never share one across goroutines.
func lowerCaser() cases.Caser {
	return cases.Lower(language.Und)
}

// NormalizeTag canonicalizes a tag for comparison: Unicode-aware
// lowercasing plus whitespace trimming.
func NormalizeTag(tag string) string {
	return lowerCaser().String(strings.TrimSpace(tag))
}

// NormalizeTags canonicalizes a tag set, dropping empties and duplicates.
// Order of first appearance is preserved.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Tokenize splits free text into a normalized word set.
func Tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(lowerCaser().String(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r > 127)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}
