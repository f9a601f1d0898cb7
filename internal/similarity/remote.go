package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/talent-matcher/internal/resilience"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultRatePerSec   = 20
	defaultBurst        = 5
	unavailableAfter    = 3 // consecutive failures before Available flips false
	availabilityTimeout = 2 * time.Second
)

// Remote is a Provider backed by a generic JSON-over-HTTP similarity
// service. The wire contract is minimal on purpose: POST /v1/similarity
// with {kind, a, b} returning {score}. Which embedding service sits
// behind the URL is the operator's business, not this package's.
type Remote struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	retry    resilience.RetryConfig
	failures atomic.Int32
}

// RemoteOption configures the remote provider.
type RemoteOption func(*Remote)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) RemoteOption {
	return func(r *Remote) { r.http = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRateLimit caps outbound request rate.
func WithRateLimit(perSec float64, burst int) RemoteOption {
	return func(r *Remote) {
		if perSec > 0 && burst > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) RemoteOption {
	return func(r *Remote) { r.retry = cfg }
}

// NewRemote creates a remote similarity provider for the given base URL.
func NewRemote(baseURL, apiKey string, opts ...RemoteOption) *Remote {
	r := &Remote{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultBurst),
		timeout: defaultTimeout,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type similarityRequest struct {
	Kind string   `json:"kind"`
	A    string   `json:"a,omitempty"`
	B    string   `json:"b,omitempty"`
	TagA []string `json:"tags_a,omitempty"`
	TagB []string `json:"tags_b,omitempty"`
}

type similarityResponse struct {
	Score float64 `json:"score"`
}

// TextSimilarity queries the service for free-text similarity.
func (r *Remote) TextSimilarity(ctx context.Context, a, b string) (float64, error) {
	return r.query(ctx, similarityRequest{Kind: "text", A: a, B: b})
}

// TagSimilarity queries the service for tag-set similarity.
func (r *Remote) TagSimilarity(ctx context.Context, tagsA, tagsB []string) (float64, error) {
	return r.query(ctx, similarityRequest{
		Kind: "tags",
		TagA: NormalizeTags(tagsA),
		TagB: NormalizeTags(tagsB),
	})
}

// Available reports false when the provider is unconfigured, the health
// endpoint is unreachable, or enough consecutive calls have failed.
func (r *Remote) Available(ctx context.Context) bool {
	if r.baseURL == "" {
		return false
	}
	if r.failures.Load() >= unavailableAfter {
		return false
	}

	hctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodGet, r.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (r *Remote) query(ctx context.Context, payload similarityRequest) (float64, error) {
	if r.baseURL == "" {
		return 0, eris.New("similarity: remote provider not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, eris.Wrap(err, "similarity: marshal request")
	}

	score, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (float64, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return 0, eris.Wrap(err, "similarity: rate limiter")
		}

		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(cctx, http.MethodPost, r.baseURL+"/v1/similarity", bytes.NewReader(body))
		if err != nil {
			return 0, eris.Wrap(err, "similarity: build request")
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}

		resp, err := r.http.Do(req)
		if err != nil {
			return 0, eris.Wrap(err, "similarity: execute request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := eris.Errorf("similarity: status %d: %s", resp.StatusCode, string(data))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return 0, resilience.NewTransientError(err, resp.StatusCode)
			}
			return 0, err
		}

		var sr similarityResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return 0, eris.Wrap(err, "similarity: decode response")
		}
		if sr.Score < 0 || sr.Score > 1 {
			return 0, eris.Errorf("similarity: score %.4f outside [0,1]", sr.Score)
		}
		return sr.Score, nil
	})
	if err != nil {
		r.failures.Add(1)
		return 0, eris.Wrap(err, fmt.Sprintf("similarity: %s query", payload.Kind))
	}

	r.failures.Store(0)
	return score, nil
}
