// Package scoring implements the hybrid compatibility scorer: a
// rule-based factor sum combined with a semantic-similarity signal into
// a single 0-100 score with a per-factor breakdown.
package scoring

import "github.com/rotisserie/eris"

// FactorCaps holds the maximum point contribution per factor. The rule
// factors sum to RuleCap, the semantic factors to SemanticCap.
type FactorCaps struct {
	Location     float64 `yaml:"location" mapstructure:"location"`
	Budget       float64 `yaml:"budget" mapstructure:"budget"`
	Skills       float64 `yaml:"skills" mapstructure:"skills"`
	Experience   float64 `yaml:"experience" mapstructure:"experience"`
	Availability float64 `yaml:"availability" mapstructure:"availability"`
	Rating       float64 `yaml:"rating" mapstructure:"rating"`
	StyleSim     float64 `yaml:"style_sim" mapstructure:"style_sim"`
	TextSim      float64 `yaml:"text_sim" mapstructure:"text_sim"`
}

// Config is the algorithm configuration for one matching run.
type Config struct {
	// RuleWeight and SemanticWeight scale the two score halves. They
	// need not sum to 1 but must both be non-negative.
	RuleWeight     float64 `yaml:"rule_weight" mapstructure:"rule_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`

	// RuleCap and SemanticCap bound the two halves before weighting.
	// SemanticCap never exceeds 100 - RuleCap.
	RuleCap     float64 `yaml:"rule_cap" mapstructure:"rule_cap"`
	SemanticCap float64 `yaml:"semantic_cap" mapstructure:"semantic_cap"`

	Caps FactorCaps `yaml:"caps" mapstructure:"caps"`

	// CandidateCap bounds the reviewer pool per run.
	CandidateCap int `yaml:"candidate_cap" mapstructure:"candidate_cap"`

	// MinScore is the minimum qualifying total for ranked results.
	MinScore float64 `yaml:"min_score" mapstructure:"min_score"`

	// MaxIterations bounds the deferred-acceptance proposal loop.
	MaxIterations int `yaml:"max_iterations" mapstructure:"max_iterations"`

	// StableEnabled gates the stable-matching path under the auto hint.
	StableEnabled bool `yaml:"stable_enabled" mapstructure:"stable_enabled"`

	// ScaleRuleWhenDegraded stretches the rule score over the full 0-100
	// range when the semantic signal is unavailable, instead of leaving
	// the semantic share empty.
	ScaleRuleWhenDegraded bool `yaml:"scale_rule_when_degraded" mapstructure:"scale_rule_when_degraded"`

	// MaxConcurrentScores bounds pairwise scoring fan-out.
	MaxConcurrentScores int `yaml:"max_concurrent_scores" mapstructure:"max_concurrent_scores"`
}

// DefaultConfig returns the standard 60/40 rule/semantic split.
func DefaultConfig() Config {
	return Config{
		RuleWeight:     1.0,
		SemanticWeight: 1.0,
		RuleCap:        60,
		SemanticCap:    40,
		Caps: FactorCaps{
			Location:     12,
			Budget:       12,
			Skills:       14,
			Experience:   10,
			Availability: 6,
			Rating:       6,
			StyleSim:     16,
			TextSim:      24,
		},
		CandidateCap:          200,
		MinScore:              40,
		MaxIterations:         10_000,
		StableEnabled:         true,
		ScaleRuleWhenDegraded: true,
		MaxConcurrentScores:   8,
	}
}

// Validate checks the configuration for values that would break the
// score invariants.
func (c Config) Validate() error {
	if c.RuleWeight < 0 || c.SemanticWeight < 0 {
		return eris.New("scoring: weights must be non-negative")
	}
	if c.RuleCap <= 0 || c.RuleCap > 100 {
		return eris.Errorf("scoring: rule cap %.1f outside (0,100]", c.RuleCap)
	}
	if c.SemanticCap < 0 || c.SemanticCap > 100-c.RuleCap {
		return eris.Errorf("scoring: semantic cap %.1f outside [0,%.1f]", c.SemanticCap, 100-c.RuleCap)
	}
	ruleSum := c.Caps.Location + c.Caps.Budget + c.Caps.Skills +
		c.Caps.Experience + c.Caps.Availability + c.Caps.Rating
	if ruleSum <= 0 {
		return eris.New("scoring: rule factor caps sum to zero")
	}
	if c.Caps.StyleSim+c.Caps.TextSim <= 0 && c.SemanticCap > 0 {
		return eris.New("scoring: semantic factor caps sum to zero")
	}
	if c.CandidateCap <= 0 {
		return eris.New("scoring: candidate cap must be positive")
	}
	if c.MaxIterations <= 0 {
		return eris.New("scoring: max iterations must be positive")
	}
	return nil
}
