package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration for the crawler and its collaborators.
type Config struct {
	Crawl   CrawlConfig   `yaml:"crawl"`
	Robots  RobotsConfig  `yaml:"robots"`
	DB      SQLConfig     `yaml:"db"`
	Monitor MonitorConfig `yaml:"monitor"`
	Logging LoggingConfig `yaml:"logging"`
}

// CrawlConfig controls the crawl frontier, limits, and throttling.
type CrawlConfig struct {
	MaxDepth       int      `yaml:"max_depth"`
	MaxPages       int      `yaml:"max_pages"`
	UserAgent      string   `yaml:"user_agent"`
	Delay          Duration `yaml:"delay"`
	RequestTimeout Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`

	// UseClassifier gates the auxiliary page-classification service. The
	// engine and analyzer fall back to their own heuristics when false.
	UseClassifier bool `yaml:"use_classifier"`

	// Dominance deferral policy. Tunables, not load-bearing constants.
	DominanceThreshold float64 `yaml:"dominance_threshold"`
	MaxDefers          int     `yaml:"max_defers"`
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool   `yaml:"respect"`
	UserAgent string `yaml:"user_agent"`
}

// SQLConfig describes the relational database used for persistence.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// MonitorConfig controls the scheduled re-check loop.
type MonitorConfig struct {
	Enabled       bool     `yaml:"enabled"`
	CheckInterval Duration `yaml:"check_interval"`
	Concurrency   int      `yaml:"concurrency"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Crawl: CrawlConfig{
			MaxDepth:           3,
			MaxPages:           100,
			UserAgent:          "Mozilla/5.0 (compatible; LLMsTxtGenerator/1.0; +https://llmstxt.org/)",
			Delay:              DurationFrom(time.Second),
			RequestTimeout:     DurationFrom(10 * time.Second),
			MaxBodyBytes:       6 * 1024 * 1024,
			UseClassifier:      false,
			DominanceThreshold: 0.4,
			MaxDefers:          3,
		},
		Robots: RobotsConfig{
			Respect:   true,
			UserAgent: "LLMsTxtGenerator",
		},
		DB: SQLConfig{
			Driver:      "sqlite",
			DSN:         "file:llmstxt.db",
			AutoMigrate: true,
		},
		Monitor: MonitorConfig{
			Enabled:       false,
			CheckInterval: DurationFrom(time.Hour),
			Concurrency:   2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the crawler configuration.
func (c Config) Validate() error {
	if c.Crawl.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be >= 0 (got %d)", c.Crawl.MaxDepth)
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0 (got %d)", c.Crawl.MaxPages)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if strings.TrimSpace(c.Crawl.UserAgent) == "" {
		return errors.New("crawl.user_agent must be set")
	}
	if c.Crawl.DominanceThreshold <= 0 || c.Crawl.DominanceThreshold >= 1 {
		return fmt.Errorf("crawl.dominance_threshold must be in (0,1) (got %v)", c.Crawl.DominanceThreshold)
	}
	if c.Crawl.MaxDefers < 0 {
		return fmt.Errorf("crawl.max_defers must be >= 0 (got %d)", c.Crawl.MaxDefers)
	}
	if c.Monitor.Enabled {
		if c.Monitor.CheckInterval.IsZero() {
			return errors.New("monitor.check_interval must be set when monitoring is enabled")
		}
		if c.Monitor.Concurrency <= 0 {
			return fmt.Errorf("monitor.concurrency must be > 0 (got %d)", c.Monitor.Concurrency)
		}
	}
	return nil
}

func (c *Config) normalise() {
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	if c.Robots.UserAgent == "" {
		c.Robots.UserAgent = "*"
	}
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.DB.DSN = strings.TrimSpace(c.DB.DSN)
}
