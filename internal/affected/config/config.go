// Package config loads tracer settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the name Discover looks for in the working directory tree.
const FileName = ".affected.yaml"

// Environment variables consulted by FromEnv.
const (
	EnvConfig   = "AFFECTED_CONFIG"
	EnvStrategy = "AFFECTED_STRATEGY"
	EnvExclude  = "AFFECTED_EXCLUDE"
	EnvLog      = "AFFECTED_LOG"
	EnvWorkers  = "AFFECTED_HASH_WORKERS"
)

// Config holds tracer and cache settings.
type Config struct {
	// Strategy is the hook strategy name: auto, eval-frame, thread-scoped
	// or call-events. Empty means auto.
	Strategy string `yaml:"strategy,omitempty"`

	// Exclude lists extra install-root prefixes on top of the runtime's.
	Exclude []string `yaml:"exclude,omitempty"`

	// GoMod names a go.mod whose dependency roots replace the blanket
	// module-cache exclusion. "auto" searches upward from the working
	// directory.
	GoMod string `yaml:"go_mod,omitempty"`

	// SyntheticMarker overrides the "<" prefix of non-file units.
	SyntheticMarker string `yaml:"synthetic_marker,omitempty"`

	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`

	// HashWorkers bounds concurrent reads in fingerprint.HashAll.
	HashWorkers int `yaml:"hash_workers,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Strategy:    "auto",
		LogLevel:    "warn",
		LogFormat:   "text",
		HashWorkers: 8,
	}
}

// Load reads a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Strategy {
	case "", "auto", "eval-frame", "thread-scoped", "call-events":
	default:
		return fmt.Errorf("invalid strategy %q: must be auto, eval-frame, thread-scoped or call-events", c.Strategy)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be 'text' or 'json'", c.LogFormat)
	}
	if c.HashWorkers < 0 {
		return fmt.Errorf("invalid hash_workers %d: must not be negative", c.HashWorkers)
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
//
// AFFECTED_EXCLUDE is a list separated by os.PathListSeparator; its
// entries are appended to Exclude. AFFECTED_LOG is "level" or
// "level,format", e.g. "debug,json". Malformed values are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvStrategy); v != "" {
		c.Strategy = v
	}
	if v := os.Getenv(EnvExclude); v != "" {
		for _, p := range filepath.SplitList(v) {
			if p != "" {
				c.Exclude = append(c.Exclude, p)
			}
		}
	}
	if v := os.Getenv(EnvLog); v != "" {
		level, format, _ := strings.Cut(v, ",")
		if level != "" {
			c.LogLevel = level
		}
		if format != "" {
			c.LogFormat = format
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.HashWorkers = n
		}
	}
}

// FromEnv loads the file named by AFFECTED_CONFIG (if set), then applies
// the remaining environment overrides.
func FromEnv() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfig); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// Discover resolves the effective configuration: AFFECTED_CONFIG if set,
// otherwise the nearest .affected.yaml above the working directory,
// otherwise Default; environment overrides apply in every case.
func Discover() (*Config, error) {
	if os.Getenv(EnvConfig) != "" {
		return FromEnv()
	}

	cfg := Default()
	if wd, err := os.Getwd(); err == nil {
		if path := findUp(wd, FileName); path != "" {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// findUp walks up from dir looking for name.
func findUp(dir, name string) string {
	for {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var errLevel = errors.New("invalid log_level")

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w %q: must be debug, info, warn or error", errLevel, s)
	}
}

// Logger builds a logger writing to w according to LogLevel and LogFormat.
// A nil w means os.Stderr.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if c.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("component", "affected"))
}
