// Package engineconfig loads configuration for the reputation engine from a
// YAML file overlaid with environment variables, following the same
// file-then-env precedence as the rest of the ai.wot tooling.
package engineconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ScoringConfig mirrors the Scoring Kernel's configuration knobs.
type ScoringConfig struct {
	HalfLifeDays      float64 `json:"half_life_days" yaml:"half_life_days" env:"SCORING_HALF_LIFE_DAYS"`
	MaxDepth          int     `json:"max_depth" yaml:"max_depth" env:"SCORING_MAX_DEPTH"`
	NegativeTrustGate int     `json:"negative_trust_gate" yaml:"negative_trust_gate" env:"SCORING_NEGATIVE_TRUST_GATE"`
	Deduplicate       bool    `json:"deduplicate" yaml:"deduplicate" env:"SCORING_DEDUPLICATE"`
	NoveltyMultiplier float64 `json:"novelty_multiplier" yaml:"novelty_multiplier" env:"SCORING_NOVELTY_MULTIPLIER"`
}

// RelayConfig controls the fan-out behavior of the Relay Aggregator.
type RelayConfig struct {
	URLs              []string `json:"urls" yaml:"urls"`
	PerRelayTimeoutMS int      `json:"per_relay_timeout_ms" yaml:"per_relay_timeout_ms" env:"RELAY_PER_RELAY_TIMEOUT_MS"`
	GlobalSlackMS     int      `json:"global_slack_ms" yaml:"global_slack_ms" env:"RELAY_GLOBAL_SLACK_MS"`
}

// PerRelayTimeout returns the per-relay deadline as a time.Duration.
func (r RelayConfig) PerRelayTimeout() time.Duration {
	return time.Duration(r.PerRelayTimeoutMS) * time.Millisecond
}

// GlobalTimeout returns the global aggregation deadline as a time.Duration.
func (r RelayConfig) GlobalTimeout() time.Duration {
	return r.PerRelayTimeout() + time.Duration(r.GlobalSlackMS)*time.Millisecond
}

// CandidateConfig controls the Candidate Store.
type CandidateConfig struct {
	MaxAgeHours   int `json:"max_age_hours" yaml:"max_age_hours" env:"CANDIDATE_MAX_AGE_HOURS"`
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates" env:"CANDIDATE_MAX_CANDIDATES"`
}

// MaxAge returns the candidate staleness window as a time.Duration.
func (c CandidateConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// DatabaseConfig controls the optional Postgres-backed candidate store.
type DatabaseConfig struct {
	DSN             string `json:"dsn" yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `json:"max_open_conns" yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifeSecs int    `json:"conn_max_life_secs" yaml:"conn_max_life_secs" env:"DATABASE_CONN_MAX_LIFETIME"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
}

// Config is the top-level configuration for the reputation engine.
type Config struct {
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Relay     RelayConfig     `json:"relay" yaml:"relay"`
	Candidate CandidateConfig `json:"candidate" yaml:"candidate"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// New returns a Config populated with the engine's default tuning.
func New() *Config {
	return &Config{
		Scoring: ScoringConfig{
			HalfLifeDays:      90,
			MaxDepth:          2,
			NegativeTrustGate: 20,
			Deduplicate:       true,
			NoveltyMultiplier: 1.3,
		},
		Relay: RelayConfig{
			PerRelayTimeoutMS: 12000,
			GlobalSlackMS:     2000,
		},
		Candidate: CandidateConfig{
			MaxAgeHours:   24,
			MaxCandidates: 1000,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifeSecs: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from CONFIG_FILE (or ./configs/engine.yaml if
// present) and overlays environment variables, following the file-then-env
// precedence used across the ai.wot tooling.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/engine.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// LoadFile reads configuration from a specific YAML file, skipping env overlay.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	if c.Scoring.HalfLifeDays <= 0 {
		c.Scoring.HalfLifeDays = 90
	}
	if c.Scoring.MaxDepth < 0 {
		c.Scoring.MaxDepth = 2
	}
	if c.Scoring.NoveltyMultiplier <= 0 {
		c.Scoring.NoveltyMultiplier = 1.3
	}
	if c.Relay.PerRelayTimeoutMS <= 0 {
		c.Relay.PerRelayTimeoutMS = 12000
	}
	if c.Relay.GlobalSlackMS <= 0 {
		c.Relay.GlobalSlackMS = 2000
	}
	if c.Candidate.MaxAgeHours <= 0 {
		c.Candidate.MaxAgeHours = 24
	}
	if c.Candidate.MaxCandidates <= 0 {
		c.Candidate.MaxCandidates = 1000
	}
}
