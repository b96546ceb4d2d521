package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"llmstxtgen/internal/config"
	"llmstxtgen/internal/storage"
	"llmstxtgen/pkg/types"
)

// CrawlFunc runs a full crawl of the given seed URL and returns the surviving
// page records.
type CrawlFunc func(ctx context.Context, seedURL string) ([]*types.PageRecord, error)

// GenerateFunc renders an llms.txt document from page records.
type GenerateFunc func(ctx context.Context, pages []*types.PageRecord) (string, error)

// Monitor periodically re-crawls registered websites, records content changes
// in the change log, and regenerates documents for sites that changed.
type Monitor struct {
	store    *storage.Store
	cfg      config.MonitorConfig
	crawl    CrawlFunc
	generate GenerateFunc
	logger   *slog.Logger
}

// New creates a Monitor.
func New(store *storage.Store, cfg config.MonitorConfig, crawl CrawlFunc, generate GenerateFunc, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{store: store, cfg: cfg, crawl: crawl, generate: generate, logger: logger}
}

// Run blocks, checking all sites every CheckInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.CheckInterval.Duration
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.CheckAll(ctx); err != nil {
			m.logger.Error("monitor pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CheckAll re-checks every registered website, bounded by the configured
// concurrency.
func (m *Monitor) CheckAll(ctx context.Context) error {
	sites, err := m.store.Websites(ctx)
	if err != nil {
		return fmt.Errorf("list websites: %w", err)
	}
	if len(sites) == 0 {
		return nil
	}

	limit := m.cfg.Concurrency
	if limit <= 0 {
		limit = 2
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, site := range sites {
		site := site
		g.Go(func() error {
			if err := m.CheckSite(gctx, site); err != nil {
				m.logger.Error("site check failed", "url", site.URL, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CheckSite re-crawls one site, diffs it against the stored pages, logs
// changes, and regenerates the document when anything changed.
func (m *Monitor) CheckSite(ctx context.Context, site *storage.Website) error {
	before, err := m.store.Pages(ctx, site.ID)
	if err != nil {
		return fmt.Errorf("load stored pages: %w", err)
	}

	pages, err := m.crawl(ctx, site.URL)
	if err != nil {
		return fmt.Errorf("recrawl: %w", err)
	}

	baseline := FirstCrawlBaseline(site)

	var changes []PageChange
	if !baseline {
		changes = Diff(before, pages)
	}
	for _, c := range changes {
		if err := m.store.LogChange(ctx, site.ID, c.Type, c.URL, c.Detail); err != nil {
			return fmt.Errorf("log change: %w", err)
		}
	}
	if err := m.store.ReplacePages(ctx, site.ID, pages); err != nil {
		return fmt.Errorf("store pages: %w", err)
	}

	if baseline {
		m.logger.Info("baseline crawl stored", "url", site.URL, "pages", len(pages))
	} else if len(changes) == 0 {
		m.logger.Info("site unchanged", "url", site.URL, "pages", len(pages))
		return nil
	} else {
		m.logger.Info("site changed", "url", site.URL, "changes", len(changes))
	}

	if m.generate == nil {
		return nil
	}
	content, err := m.generate(ctx, pages)
	if err != nil {
		return fmt.Errorf("regenerate: %w", err)
	}
	if _, err := m.store.SaveGeneration(ctx, site.ID, content, len(pages)); err != nil {
		return fmt.Errorf("save generation: %w", err)
	}
	return nil
}

// PageChange is a single detected difference between two crawls.
type PageChange struct {
	Type   string
	URL    string
	Detail string
}

// Diff compares stored pages against a fresh crawl by URL and content hash.
func Diff(before []storage.StoredPage, after []*types.PageRecord) []PageChange {
	prev := make(map[string]storage.StoredPage, len(before))
	for _, p := range before {
		prev[p.URL] = p
	}

	var changes []PageChange
	seen := make(map[string]struct{}, len(after))
	for _, rec := range after {
		seen[rec.URL] = struct{}{}
		old, ok := prev[rec.URL]
		if !ok {
			changes = append(changes, PageChange{Type: storage.ChangeNewPage, URL: rec.URL, Detail: rec.Title})
			continue
		}
		if old.ContentHash != rec.ContentHash {
			changes = append(changes, PageChange{Type: storage.ChangeUpdatedPage, URL: rec.URL, Detail: "content hash changed"})
		}
	}
	for _, p := range before {
		if _, ok := seen[p.URL]; !ok {
			changes = append(changes, PageChange{Type: storage.ChangeRemovedPage, URL: p.URL, Detail: p.Title})
		}
	}
	return changes
}

// FirstCrawlBaseline reports whether the site has never been crawled, in
// which case a diff would record every page as new.
func FirstCrawlBaseline(site *storage.Website) bool {
	return !site.LastCrawledAt.Valid
}
