package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports a missing config file. Startup dependencies that are
// absent are fatal with a distinct exit code, never retried.
var ErrNotFound = errors.New("config file not found")

// DefaultPath is where the config file is looked for when neither the
// --config flag nor CHRONICLE_CONFIG is set.
const DefaultPath = "config/chronicle.yaml"

// Config is the top-level configuration.
type Config struct {
	DBPath           string         `yaml:"db_path"`
	LogsDir          string         `yaml:"logs_dir"`
	LoopDelaySeconds int            `yaml:"loop_delay_seconds"`
	Attended         bool           `yaml:"attended"`
	HTTPAddr         string         `yaml:"http_addr"`
	Scrape           ScrapeConfig   `yaml:"scrape"`
	Sources          []SourceConfig `yaml:"sources"`
}

// ScrapeConfig holds the sync state machine knobs.
type ScrapeConfig struct {
	ScrollDelayMs            int `yaml:"scroll_delay_ms"`
	RecentMessageLimit       int `yaml:"recent_message_limit"`
	IdleCyclesBeforeBackfill int `yaml:"idle_cycles_before_backfill"`
	BackfillScrollSteps      int `yaml:"backfill_scroll_steps"`
	ScrollPixels             int `yaml:"scroll_pixels"`
}

// SourceConfig describes one platform to archive.
type SourceConfig struct {
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"`
	BaseURL   string            `yaml:"base_url"`
	Enabled   bool              `yaml:"enabled"`
	Discover  bool              `yaml:"discover"`
	BridgeDir string            `yaml:"bridge_dir"`
	Selectors map[string]string `yaml:"selectors"`
	Channels  []ChannelConfig   `yaml:"channels"`
}

// ChannelConfig describes one explicitly configured channel.
type ChannelConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// ScrollDelay returns the settle delay as a duration.
func (s ScrapeConfig) ScrollDelay() time.Duration {
	return time.Duration(s.ScrollDelayMs) * time.Millisecond
}

// EnabledSources filters sources down to the enabled ones.
func (c *Config) EnabledSources() []SourceConfig {
	var enabled []SourceConfig
	for _, source := range c.Sources {
		if source.Enabled {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

// EnabledChannels filters a source's channels down to the enabled ones.
func (s SourceConfig) EnabledChannels() []ChannelConfig {
	var enabled []ChannelConfig
	for _, channel := range s.Channels {
		if channel.Enabled {
			enabled = append(enabled, channel)
		}
	}
	return enabled
}

// ResolvePath picks the config path: flag, then env, then default.
func ResolvePath(cliPath string) string {
	if cliPath != "" {
		return cliPath
	}
	if envPath := os.Getenv("CHRONICLE_CONFIG"); envPath != "" {
		return envPath
	}
	return DefaultPath
}

// Load reads, parses, and defaults a config file. A missing file is a
// startup failure, not something to retry.
func Load(cliPath string) (*Config, error) {
	path := ResolvePath(cliPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join("data", "chronicle.db")
	}
	if c.LogsDir == "" {
		c.LogsDir = "logs"
	}
	if c.LoopDelaySeconds < 1 {
		c.LoopDelaySeconds = 20
	}
	if c.Scrape.ScrollDelayMs == 0 {
		c.Scrape.ScrollDelayMs = 1000
	}
	if c.Scrape.RecentMessageLimit == 0 {
		c.Scrape.RecentMessageLimit = 200
	}
	if c.Scrape.IdleCyclesBeforeBackfill == 0 {
		c.Scrape.IdleCyclesBeforeBackfill = 6
	}
	if c.Scrape.BackfillScrollSteps == 0 {
		c.Scrape.BackfillScrollSteps = 4
	}
	if c.Scrape.ScrollPixels == 0 {
		c.Scrape.ScrollPixels = 1200
	}
}
