// Package config loads run-events settings from an optional YAML file, an
// optional .env file and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
)

const (
	// minWriteTimeout is the floor of a derived write timeout.
	minWriteTimeout = 90 * time.Second

	// writeTimeoutSlack covers merging and encoding after the last fetch.
	writeTimeoutSlack = 10 * time.Second
)

// SourceConfig configures one scraped site.
type SourceConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// DetailConcurrency caps parallel detail-page fetches (bhaagoindia).
	// 0 means no cap.
	DetailConcurrency int `yaml:"detail_concurrency,omitempty"`

	// PageSize is the listing page size requested (townscript).
	PageSize int `yaml:"page_size,omitempty"`
}

// Sources holds per-site settings.
type Sources struct {
	IndiaRunning SourceConfig `yaml:"indiarunning"`
	BhaagoIndia  SourceConfig `yaml:"bhaagoindia"`
	Townscript   SourceConfig `yaml:"townscript"`
}

// CacheConfig selects and tunes the cache layer.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Dir     string        `yaml:"dir"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen      string        `yaml:"listen"`
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds a whole response, including an inline
	// aggregation on a cache miss. Zero derives it from the source
	// timeouts, see AggregationBudget.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	LogLevel string `yaml:"log_level"`

	// Prewarm runs one aggregation at startup.
	Prewarm bool `yaml:"prewarm"`

	// RefreshCron is an optional standard 5-field cron schedule for
	// background refreshes. Empty disables them.
	RefreshCron string `yaml:"refresh_cron"`

	// StaticDir, if set, is served at /.
	StaticDir string `yaml:"static_dir"`

	// ManualEvents replaces the built-in curated list when set.
	ManualEvents string `yaml:"manual_events"`

	Cache   CacheConfig `yaml:"cache"`
	Sources Sources     `yaml:"sources"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:       ":3000",
		ReadTimeout: 10 * time.Second,
		LogLevel:    "info",
		Prewarm:     true,
		Cache: CacheConfig{
			Backend: BackendMemory,
			TTL:     6 * time.Hour,
			Dir:     "~/.cache/run-events",
		},
		Sources: Sources{
			IndiaRunning: SourceConfig{
				Enabled: true,
				BaseURL: "https://www.indiarunning.com",
				Timeout: 15 * time.Second,
			},
			BhaagoIndia: SourceConfig{
				Enabled:           true,
				BaseURL:           "https://www.bhaagoindia.com",
				Timeout:           20 * time.Second,
				DetailConcurrency: 8,
			},
			Townscript: SourceConfig{
				Enabled:  true,
				BaseURL:  "https://www.townscript.com",
				Timeout:  20 * time.Second,
				PageSize: 1000,
			},
		},
	}
}

// Load builds the configuration. path may be empty or point to a missing
// file, in which case the defaults are used. Environment variables are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("Config file not found, using defaults", logger.Fields{"path": path})
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if budget := cfg.AggregationBudget(); cfg.WriteTimeout < budget {
		logger.Warn("write_timeout is shorter than a worst-case aggregation, cache misses may be cut off", logger.Fields{
			"write_timeout": cfg.WriteTimeout.String(),
			"aggregation":   budget.String(),
		})
	}
	return cfg, nil
}

// AggregationBudget estimates the longest aggregation: sources run in
// parallel, and each request stage of a source may take its full timeout.
// bhaagoindia is counted as a listing stage plus one detail wave; listings
// with more pages than detail_concurrency add further waves.
func (c *Config) AggregationBudget() time.Duration {
	var budget time.Duration
	for _, stage := range []struct {
		src    SourceConfig
		stages time.Duration
	}{
		{c.Sources.IndiaRunning, 1},
		{c.Sources.BhaagoIndia, 2},
		{c.Sources.Townscript, 1},
	} {
		if !stage.src.Enabled {
			continue
		}
		if d := stage.src.Timeout * stage.stages; d > budget {
			budget = d
		}
	}
	return budget
}

// LoadDotEnv loads KEY=VALUE pairs from each existing file into the
// environment. Variables that are already set win. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		logger.Debug("Loaded environment file", logger.Fields{"path": p})
	}
	return nil
}

// applyEnv overrides settings from environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Listen = ":" + strings.TrimPrefix(v, ":")
	}
	if v := getenv("LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.Cache.TTL = ttl
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv("REFRESH_CRON"); v != "" {
		c.RefreshCron = v
	}
	if v := getenv("MANUAL_EVENTS_FILE"); v != "" {
		c.ManualEvents = v
	}
	if v := getenv("STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	return nil
}

// normalize fills zero values left by a partial YAML file.
func (c *Config) normalize() {
	d := Default()

	for _, src := range []struct{ cur, def *SourceConfig }{
		{&c.Sources.IndiaRunning, &d.Sources.IndiaRunning},
		{&c.Sources.BhaagoIndia, &d.Sources.BhaagoIndia},
		{&c.Sources.Townscript, &d.Sources.Townscript},
	} {
		if src.cur.Timeout == 0 {
			src.cur.Timeout = src.def.Timeout
		}
	}

	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = max(minWriteTimeout, c.AggregationBudget()+writeTimeoutSlack)
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = d.Cache.Dir
	}
	if c.Sources.Townscript.PageSize == 0 {
		c.Sources.Townscript.PageSize = d.Sources.Townscript.PageSize
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendFile:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (use %s or %s)", c.Cache.Backend, BackendMemory, BackendFile)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl: must be positive, got %s", c.Cache.TTL)
	}

	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("refresh_cron: %w", err)
		}
	}

	for name, src := range map[string]SourceConfig{
		"indiarunning": c.Sources.IndiaRunning,
		"bhaagoindia":  c.Sources.BhaagoIndia,
		"townscript":   c.Sources.Townscript,
	} {
		if src.Timeout < 0 {
			return fmt.Errorf("sources.%s.timeout: must not be negative", name)
		}
		if src.DetailConcurrency < 0 {
			return fmt.Errorf("sources.%s.detail_concurrency: must not be negative", name)
		}
	}

	return nil
}
