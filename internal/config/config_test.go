package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Crawl.MaxDepth != 3 || cfg.Crawl.MaxPages != 100 {
		t.Fatalf("unexpected crawl defaults: depth=%d pages=%d", cfg.Crawl.MaxDepth, cfg.Crawl.MaxPages)
	}
	if !cfg.Robots.Respect {
		t.Fatal("robots should be respected by default")
	}
	if cfg.Crawl.DominanceThreshold != 0.4 || cfg.Crawl.MaxDefers != 3 {
		t.Fatalf("unexpected dominance defaults: %v / %d", cfg.Crawl.DominanceThreshold, cfg.Crawl.MaxDefers)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	yaml := `
crawl:
  max_depth: 1
  max_pages: 10
  delay: 250ms
robots:
  respect: false
logging:
  level: debug
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.MaxDepth != 1 || cfg.Crawl.MaxPages != 10 {
		t.Fatalf("overrides not applied: %+v", cfg.Crawl)
	}
	if cfg.Crawl.Delay.Duration != 250*time.Millisecond {
		t.Fatalf("delay not parsed: %v", cfg.Crawl.Delay)
	}
	if cfg.Robots.Respect {
		t.Fatal("robots override not applied")
	}
	// untouched fields keep their defaults
	if cfg.Crawl.UserAgent == "" {
		t.Fatal("default user agent lost")
	}
}

func TestLoadFromReaderRejectsUnknownKeys(t *testing.T) {
	yaml := `
crawl:
  max_depth: 2
  no_such_knob: true
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("unknown keys must be rejected")
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative depth", func(c *Config) { c.Crawl.MaxDepth = -1 }},
		{"zero pages", func(c *Config) { c.Crawl.MaxPages = 0 }},
		{"empty user agent", func(c *Config) { c.Crawl.UserAgent = "  " }},
		{"threshold at zero", func(c *Config) { c.Crawl.DominanceThreshold = 0 }},
		{"threshold at one", func(c *Config) { c.Crawl.DominanceThreshold = 1 }},
		{"negative defers", func(c *Config) { c.Crawl.MaxDefers = -1 }},
		{"monitor without interval", func(c *Config) {
			c.Monitor.Enabled = true
			c.Monitor.CheckInterval = Duration{}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDurationForms(t *testing.T) {
	yaml := `
crawl:
  delay: 2
  request_timeout: 1.5s
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.Delay.Duration != 2*time.Second {
		t.Fatalf("bare number should mean seconds, got %v", cfg.Crawl.Delay)
	}
	if cfg.Crawl.RequestTimeout.Duration != 1500*time.Millisecond {
		t.Fatalf("duration string not parsed, got %v", cfg.Crawl.RequestTimeout)
	}
}
