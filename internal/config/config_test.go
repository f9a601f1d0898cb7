package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "matcher.db", cfg.Store.DSN)
	assert.Equal(t, 5, cfg.Similarity.TimeoutSecs)
	assert.Equal(t, 30, cfg.Deadline.RunSecs)

	assert.InDelta(t, 1.0, cfg.Matching.RuleWeight, 0.001)
	assert.InDelta(t, 60.0, cfg.Matching.RuleCap, 0.001)
	assert.InDelta(t, 40.0, cfg.Matching.SemanticCap, 0.001)
	assert.Equal(t, 200, cfg.Matching.CandidateCap)
	assert.Equal(t, 10000, cfg.Matching.MaxIterations)
	assert.True(t, cfg.Matching.StableEnabled)
	assert.True(t, cfg.Matching.ScaleRuleWhenDegraded)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MATCHER_LOG_LEVEL", "debug")
	t.Setenv("MATCHER_STORE_DRIVER", "postgres")
	t.Setenv("MATCHER_STORE_DATABASE_URL", "postgres://localhost/matcher")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/matcher", cfg.Store.DatabaseURL)
}

func TestLoadedDefaultsAreValid(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate("all"))
}

func TestValidateStoreScope(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"sqlite with dsn", func(c *Config) {}, false},
		{"sqlite without dsn", func(c *Config) { c.Store.DSN = "" }, true},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"postgres with url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/m"
		}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "oracle" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate("store")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMatchingScope(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Matching.RuleCap = 0
	assert.Error(t, cfg.Validate("matching"))
	// Store-only validation ignores the broken matching section.
	assert.NoError(t, cfg.Validate("store"))
}

func TestSimilarityTimeout(t *testing.T) {
	c := SimilarityConfig{TimeoutSecs: 7}
	assert.Equal(t, "7s", c.Timeout().String())
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
