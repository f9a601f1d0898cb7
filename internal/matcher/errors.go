// Package matcher is the top-level matching entry point: it selects an
// algorithm, runs it, and applies an explicit fallback chain so every
// degradation is visible in the returned metadata.
package matcher

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidSpecification marks malformed proposer or config input. It
// is fatal and surfaced before any computation starts.
var ErrInvalidSpecification = eris.New("matcher: invalid specification")

// AlgorithmFailure is returned when every algorithm in the fallback
// chain failed. It names the exhausted chain so callers never see a
// bare cause without knowing what was attempted.
type AlgorithmFailure struct {
	Chain  []string
	Causes []error
}

func (f *AlgorithmFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "matcher: all algorithms failed (chain: %s)", strings.Join(f.Chain, " -> "))
	for i, err := range f.Causes {
		fmt.Fprintf(&b, "; %s: %v", f.Chain[i], err)
	}
	return b.String()
}

// Unwrap exposes the last cause for errors.Is/As chains.
func (f *AlgorithmFailure) Unwrap() error {
	if len(f.Causes) == 0 {
		return nil
	}
	return f.Causes[len(f.Causes)-1]
}
