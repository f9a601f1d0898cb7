// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/talent-matcher/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Similarity SimilarityConfig `yaml:"similarity" mapstructure:"similarity"`
	Matching   scoring.Config   `yaml:"matching" mapstructure:"matching"`
	Deadline   DeadlineConfig   `yaml:"deadline" mapstructure:"deadline"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the match persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SimilarityConfig configures the remote semantic-similarity provider.
// An empty BaseURL means lexical-heuristic semantics only.
type SimilarityConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	Key           string  `yaml:"key" mapstructure:"key"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// Timeout returns the per-call timeout as a duration.
func (c SimilarityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DeadlineConfig bounds a whole matching run.
type DeadlineConfig struct {
	RunSecs int `yaml:"run_secs" mapstructure:"run_secs"`
}

// Run returns the run deadline as a duration.
func (c DeadlineConfig) Run() time.Duration {
	return time.Duration(c.RunSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the MATCHER_* environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "matcher.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("similarity.base_url", "")
	v.SetDefault("similarity.key", "")
	v.SetDefault("similarity.timeout_secs", 5)
	v.SetDefault("similarity.rate_per_sec", 20)
	v.SetDefault("similarity.burst", 5)
	v.SetDefault("similarity.max_concurrent", 8)
	v.SetDefault("deadline.run_secs", 30)
	v.SetDefault("matching.rule_weight", 1.0)
	v.SetDefault("matching.semantic_weight", 1.0)
	v.SetDefault("matching.rule_cap", 60)
	v.SetDefault("matching.semantic_cap", 40)
	v.SetDefault("matching.caps.location", 12)
	v.SetDefault("matching.caps.budget", 12)
	v.SetDefault("matching.caps.skills", 14)
	v.SetDefault("matching.caps.experience", 10)
	v.SetDefault("matching.caps.availability", 6)
	v.SetDefault("matching.caps.rating", 6)
	v.SetDefault("matching.caps.style_sim", 16)
	v.SetDefault("matching.caps.text_sim", 24)
	v.SetDefault("matching.candidate_cap", 200)
	v.SetDefault("matching.min_score", 40)
	v.SetDefault("matching.max_iterations", 10000)
	v.SetDefault("matching.stable_enabled", true)
	v.SetDefault("matching.scale_rule_when_degraded", true)
	v.SetDefault("matching.max_concurrent_scores", 8)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration sections named by scope ("matching",
// "store", or "all").
func (c *Config) Validate(scope string) error {
	if scope == "matching" || scope == "all" {
		if err := c.Matching.Validate(); err != nil {
			return err
		}
	}
	if scope == "store" || scope == "all" {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.DSN == "" {
				return eris.New("config: store.dsn required for sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				return eris.New("config: store.database_url required for postgres driver")
			}
		default:
			return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
