package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultWorkers bounds how many independent battles resolve at once.
	DefaultWorkers = 4
	// DefaultMaxFormationUnits is the bounded consolidation cap; zero keeps groups whole.
	DefaultMaxFormationUnits = 0

	// DefaultLogLevel controls verbosity for engine logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "autoresolve.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
)

// Config captures all runtime tunables for the resolution engine.
type Config struct {
	Seed              int64         `env:"SEED" envDefault:"1"`
	SuppressReports   bool          `env:"SUPPRESS_REPORTS"`
	ReplayDir         string        `env:"REPLAY_DIR"`
	Replay            ReplayConfig  `envPrefix:"REPLAY_"`
	ViewerURL         string        `env:"VIEWER_URL"`
	Workers           int           `env:"WORKERS" envDefault:"4"`
	MaxFormationUnits int           `env:"MAX_FORMATION_UNITS" envDefault:"0"`
	Rules             RulesConfig   `envPrefix:"RULE_"`
	Logging           LoggingConfig `envPrefix:"LOG_"`
}

// ReplayConfig bounds how many replay bundles stay on disk. Zero disables a limit.
type ReplayConfig struct {
	MaxBundles int           `env:"MAX_BUNDLES" envDefault:"0"`
	MaxAge     time.Duration `env:"MAX_AGE" envDefault:"0s"`
}

// RulesConfig mirrors the optional combat rules.
type RulesConfig struct {
	DialDownDamage       bool `env:"DIAL_DOWN_DAMAGE"`
	AlteredDamage        bool `env:"ALTERED_DAMAGE"`
	ExtendedRangeHalving bool `env:"EXTENDED_RANGE_HALVING"`
	ExtremeRangeThirding bool `env:"EXTREME_RANGE_THIRDING"`
	DirectBlows          bool `env:"DIRECT_BLOWS"`
	GlancingBlows        bool `env:"GLANCING_BLOWS"`
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Path       string `env:"PATH" envDefault:"autoresolve.log"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"10"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"7"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
	Stdout     bool   `env:"STDOUT" envDefault:"false"`
}

// ErrInvalid wraps every configuration problem reported by Load.
var ErrInvalid = errors.New("invalid configuration")

// Load reads AUTORESOLVE_* variables, applying defaults and reporting every invalid
// override in one error.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "AUTORESOLVE_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w: %v", ErrInvalid, err)
	}
	cfg.ReplayDir = strings.TrimSpace(cfg.ReplayDir)
	cfg.ViewerURL = strings.TrimSpace(cfg.ViewerURL)
	cfg.Logging.Level = strings.TrimSpace(cfg.Logging.Level)
	cfg.Logging.Path = strings.TrimSpace(cfg.Logging.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate aggregates all problems rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Workers <= 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_WORKERS must be a positive integer, got %d", c.Workers))
	}
	if c.MaxFormationUnits < 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_MAX_FORMATION_UNITS must be a non-negative integer, got %d", c.MaxFormationUnits))
	}
	if c.Replay.MaxBundles < 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_REPLAY_MAX_BUNDLES must be a non-negative integer, got %d", c.Replay.MaxBundles))
	}
	if c.Replay.MaxAge < 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_REPLAY_MAX_AGE must not be negative, got %s", c.Replay.MaxAge))
	}
	if c.ViewerURL != "" {
		parsed, err := url.Parse(c.ViewerURL)
		if err != nil || (parsed.Scheme != "ws" && parsed.Scheme != "wss") {
			problems = append(problems, fmt.Sprintf("AUTORESOLVE_VIEWER_URL must be a ws:// or wss:// URL, got %q", c.ViewerURL))
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal", "":
	default:
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_LOG_LEVEL must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB <= 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_LOG_MAX_SIZE_MB must be a positive integer, got %d", c.Logging.MaxSizeMB))
	}
	if c.Logging.MaxBackups < 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_LOG_MAX_BACKUPS must be a non-negative integer, got %d", c.Logging.MaxBackups))
	}
	if c.Logging.MaxAgeDays < 0 {
		problems = append(problems, fmt.Sprintf("AUTORESOLVE_LOG_MAX_AGE_DAYS must be a non-negative integer, got %d", c.Logging.MaxAgeDays))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
