package similarity

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pair identifies one proposer/reviewer text pairing to pre-fetch.
type Pair struct {
	ProposerID string
	ReviewerID string
	TagsA      []string
	TagsB      []string
	TextA      string
	TextB      string
}

// Scores holds the two semantic signals for one pair, both in [0, 1].
// Degraded marks pairs served by the lexical fallback instead of the
// configured provider.
type Scores struct {
	Style    float64
	Text     float64
	Degraded bool
}

// PairKey indexes batch results.
type PairKey struct {
	ProposerID string
	ReviewerID string
}

// BatchFetcher pre-fetches pair similarities with bounded concurrency so
// the sequential solver never blocks on the network. Per-pair provider
// failures fall back to the lexical heuristic; they never abort a batch.
type BatchFetcher struct {
	provider      Provider
	fallback      *Lexical
	maxConcurrent int
}

// NewBatchFetcher wraps a provider for batched pre-fetching. A nil
// provider means lexical-only operation.
func NewBatchFetcher(provider Provider, maxConcurrent int) *BatchFetcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &BatchFetcher{
		provider:      provider,
		fallback:      NewLexical(),
		maxConcurrent: maxConcurrent,
	}
}

// Fetch resolves similarities for every pair. The returned degraded flag
// is true when the whole batch ran without the configured provider.
func (f *BatchFetcher) Fetch(ctx context.Context, pairs []Pair) (map[PairKey]Scores, bool) {
	results := make(map[PairKey]Scores, len(pairs))
	if len(pairs) == 0 {
		return results, false
	}

	provider := f.provider
	providerDown := provider == nil || !provider.Available(ctx)
	if providerDown {
		provider = f.fallback
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrent)

	for _, p := range pairs {
		g.Go(func() error {
			s := f.fetchOne(gctx, provider, p)
			if providerDown {
				s.Degraded = true
			}
			mu.Lock()
			results[PairKey{ProposerID: p.ProposerID, ReviewerID: p.ReviewerID}] = s
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; per-pair failures degrade in place.
	_ = g.Wait()

	if ctx.Err() != nil {
		zap.L().Warn("similarity: batch fetch interrupted", zap.Error(ctx.Err()))
	}

	return results, providerDown
}

func (f *BatchFetcher) fetchOne(ctx context.Context, provider Provider, p Pair) Scores {
	var s Scores

	style, err := provider.TagSimilarity(ctx, p.TagsA, p.TagsB)
	if err != nil {
		zap.L().Debug("similarity: tag query failed, using lexical fallback",
			zap.String("proposer", p.ProposerID),
			zap.String("reviewer", p.ReviewerID),
			zap.Error(err),
		)
		style, _ = f.fallback.TagSimilarity(ctx, p.TagsA, p.TagsB)
		s.Degraded = true
	}
	s.Style = style

	text, err := provider.TextSimilarity(ctx, p.TextA, p.TextB)
	if err != nil {
		zap.L().Debug("similarity: text query failed, using lexical fallback",
			zap.String("proposer", p.ProposerID),
			zap.String("reviewer", p.ReviewerID),
			zap.Error(err),
		)
		text, _ = f.fallback.TextSimilarity(ctx, p.TextA, p.TextB)
		s.Degraded = true
	}
	s.Text = text

	return s
}
