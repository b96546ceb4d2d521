package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"llmstxtgen/internal/config"
	"llmstxtgen/internal/extract"
	"llmstxtgen/internal/fetcher"
	"llmstxtgen/internal/robots"
	"llmstxtgen/internal/urlutil"
	"llmstxtgen/pkg/types"
)

// Engine drives one bounded, polite, priority-aware crawl of a single site.
// All frontier state is owned by one run and discarded when Crawl returns;
// engines are not reusable across runs.
type Engine struct {
	seed    *url.URL
	seedKey string
	cfg     config.CrawlConfig

	fetch     *fetcher.Client
	gate      *robots.Gate
	pacer     *Pacer
	extractor *extract.Extractor
	logger    *slog.Logger

	visited  map[string]struct{}
	sections map[string]int
	defers   map[string]int
	pages    []*types.PageRecord
	homepage *types.HomepageSignature
}

// New validates the seed URL and builds an engine for one crawl run.
func New(seedURL string, cfg config.Config, logger *slog.Logger) (*Engine, error) {
	seedURL = strings.TrimSpace(seedURL)
	if seedURL == "" {
		return nil, errors.New("seed URL is empty")
	}
	if !strings.Contains(seedURL, "://") {
		seedURL = "https://" + seedURL
	}
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", seedURL, err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported seed scheme %q", seed.Scheme)
	}
	if seed.Host == "" {
		return nil, fmt.Errorf("seed %q missing host", seedURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := fetcher.New(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
	})

	return &Engine{
		seed:      seed,
		seedKey:   urlutil.NormalizeURL(seed),
		cfg:       cfg.Crawl,
		fetch:     client,
		gate:      robots.NewGate(client.HTTPClient(), cfg.Robots.UserAgent, cfg.Robots.Respect),
		pacer:     NewPacer(cfg.Crawl.Delay.Duration),
		extractor: extract.New(seed.Scheme, seed.Host),
		logger:    logger.With("seed", urlutil.NormalizeURL(seed)),
		visited:   make(map[string]struct{}),
		sections:  make(map[string]int),
		defers:    make(map[string]int),
	}, nil
}

// Crawl runs the priority-tier BFS and returns the fetched page records in
// fetch order. It never panics past its boundary: per-page failures degrade
// that page only, and an unreachable host yields an empty list.
func (e *Engine) Crawl(ctx context.Context) []*types.PageRecord {
	e.gate.Load(ctx, e.seed)

	frontier := NewFrontier(e.cfg.MaxDepth)
	e.seedFrontier(ctx, frontier)

	for depth := 0; depth <= e.cfg.MaxDepth; depth++ {
		for frontier.HasAt(depth) && len(e.visited) < e.cfg.MaxPages {
			if ctx.Err() != nil {
				e.logger.Warn("crawl cancelled", "fetched", len(e.pages))
				return e.finish()
			}

			key, class, ok := frontier.Pop(depth)
			if !ok {
				break
			}
			if _, seen := e.visited[key]; seen {
				continue
			}
			target, err := url.Parse(key)
			if err != nil {
				continue
			}
			if !e.gate.Allowed(target) {
				e.logger.Debug("blocked by robots", "url", key)
				continue
			}

			// Bounded deferral keeps a runaway section from starving the
			// rest of the budget without livelocking the queue.
			if class == ClassOther && e.sectionDominant(key) && e.defers[key] < e.cfg.MaxDefers {
				e.defers[key]++
				frontier.Push(depth, ClassOther, key)
				continue
			}

			e.visited[key] = struct{}{}
			nav, other := e.crawlPage(ctx, target, key, depth)

			if depth >= e.cfg.MaxDepth || len(e.visited) >= e.cfg.MaxPages {
				continue
			}
			e.enqueueChildren(frontier, depth+1, ClassNav, nav)
			e.enqueueChildren(frontier, depth+1, ClassOther, other)
		}
	}

	if len(e.pages) == 0 {
		e.fallbackFetch(ctx)
	}
	return e.finish()
}

// seedFrontier seeds depth 0 from the sitemap when it yields in-scope URLs,
// locale-deduplicated and capped at the page budget; otherwise from the base
// URL alone.
func (e *Engine) seedFrontier(ctx context.Context, frontier *Frontier) {
	seeds := DedupLocales(e.sitemapSeeds(ctx))
	if len(seeds) > e.cfg.MaxPages {
		seeds = seeds[:e.cfg.MaxPages]
	}
	if len(seeds) == 0 {
		frontier.Push(0, ClassNav, e.seedKey)
		return
	}
	e.logger.Info("seeding frontier from sitemap", "urls", len(seeds))
	for _, key := range seeds {
		frontier.Push(0, ClassNav, key)
	}
}

// crawlPage fetches and extracts one page. Returns the child link classes to
// expand; a failed fetch or a soft-404 page contributes neither a record nor
// children.
func (e *Engine) crawlPage(ctx context.Context, target *url.URL, key string, depth int) (nav, other []string) {
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, nil
	}

	page, err := e.fetch.Fetch(ctx, target)
	if err != nil {
		e.logger.Debug("fetch skipped", "url", key, "error", err)
		return nil, nil
	}

	result := e.extractor.Extract(page, e.homepage)
	rec := result.Record
	rec.Depth = depth

	if rec.IsSoft404 {
		e.logger.Debug("soft-404 page dropped", "url", key)
		return nil, nil
	}

	e.pages = append(e.pages, rec)
	e.sections[urlutil.SectionKey(key)]++

	if e.homepage == nil {
		e.homepage = types.SignatureOf(rec)
	}

	other = mergeStructuredLinks(result.OtherLinks, rec.StructuredURLs, e.seedKey)
	return result.NavLinks, other
}

// mergeStructuredLinks folds URLs mined from embedded JSON into the other
// class: frameworks often omit real navigation from rendered anchors. The
// merged set keeps the per-page other-link bound.
func mergeStructuredLinks(other, structured []string, seedKey string) []string {
	if len(structured) == 0 || len(other) >= extract.MaxOtherLinks {
		return other
	}
	seen := make(map[string]struct{}, len(other))
	for _, key := range other {
		seen[key] = struct{}{}
	}
	for _, raw := range structured {
		key := urlutil.Normalize(raw)
		if key == "" || !urlutil.SameDomain(key, seedKey) || urlutil.IsResourceURL(key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		other = append(other, key)
		if len(other) == extract.MaxOtherLinks {
			break
		}
	}
	return other
}

func (e *Engine) enqueueChildren(frontier *Frontier, depth int, class LinkClass, links []string) {
	for _, key := range links {
		if len(e.visited) >= e.cfg.MaxPages {
			return
		}
		if _, seen := e.visited[key]; seen {
			continue
		}
		frontier.Push(depth, class, key)
	}
}

// sectionDominant reports whether the candidate's top-level section already
// accounts for more than the threshold share of fetched pages.
func (e *Engine) sectionDominant(key string) bool {
	total := len(e.visited)
	if total == 0 {
		return false
	}
	count := e.sections[urlutil.SectionKey(key)]
	return float64(count)/float64(total) > e.cfg.DominanceThreshold
}

// fallbackFetch is the last-resort direct fetch of the base URL, bypassing
// all gating, so a crawl of a reachable host never returns an empty corpus.
func (e *Engine) fallbackFetch(ctx context.Context) {
	page, err := e.fetch.Fetch(ctx, e.seed)
	if err != nil {
		e.logger.Warn("seed unreachable", "error", err)
		return
	}
	result := e.extractor.Extract(page, nil)
	result.Record.Depth = 0
	e.pages = append(e.pages, result.Record)
}

// finish applies the final locale dedup to the page list before handing it
// to downstream consumers.
func (e *Engine) finish() []*types.PageRecord {
	if len(e.pages) < 2 {
		return e.pages
	}
	urls := make([]string, len(e.pages))
	for i, rec := range e.pages {
		urls[i] = rec.URL
	}
	kept := make(map[string]struct{}, len(urls))
	for _, key := range DedupLocales(urls) {
		kept[key] = struct{}{}
	}
	if len(kept) == len(e.pages) {
		return e.pages
	}
	out := make([]*types.PageRecord, 0, len(kept))
	for _, rec := range e.pages {
		if _, ok := kept[rec.URL]; ok {
			out = append(out, rec)
		}
	}
	return out
}
