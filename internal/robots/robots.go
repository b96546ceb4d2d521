package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// Gate evaluates robots.txt rules for a single crawl target. Rules are
// loaded once per run and read-only afterwards; unavailable or malformed
// robots data fails open.
type Gate struct {
	client    *http.Client
	userAgent string
	respect   bool

	group *robotstxt.Group
}

// NewGate constructs a robots gate sharing the crawl's HTTP client.
func NewGate(client *http.Client, userAgent string, respect bool) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if userAgent == "" {
		userAgent = "*"
	}
	return &Gate{
		client:    client,
		userAgent: userAgent,
		respect:   respect,
	}
}

// Load fetches and parses robots.txt for the seed's host. Errors disable
// robots enforcement for the run rather than aborting it.
func (g *Gate) Load(ctx context.Context, seed *url.URL) {
	if g == nil || !g.respect || seed == nil {
		return
	}
	rules, err := g.fetch(ctx, seed)
	if err != nil {
		return
	}
	group := rules.FindGroup(g.userAgent)
	if group == nil {
		group = rules.FindGroup("*")
	}
	g.group = group
}

// Allowed reports whether the target URL is permitted. With no loaded rules
// everything is allowed.
func (g *Gate) Allowed(target *url.URL) bool {
	if target == nil {
		return false
	}
	if g == nil || !g.respect || g.group == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return g.group.Test(path)
}

func (g *Gate) fetch(ctx context.Context, seed *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := seed.Scheme + "://" + seed.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "*" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// Loaded reports whether robots rules are active for this run.
func (g *Gate) Loaded() bool {
	return g != nil && g.group != nil
}
