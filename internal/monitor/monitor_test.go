package monitor

import (
	"context"
	"path/filepath"
	"testing"

	"llmstxtgen/internal/config"
	"llmstxtgen/internal/storage"
	"llmstxtgen/pkg/types"
)

func TestDiffDetectsChanges(t *testing.T) {
	before := []storage.StoredPage{
		{URL: "https://example.com", Title: "Home", ContentHash: "aaa"},
		{URL: "https://example.com/about", Title: "About", ContentHash: "bbb"},
		{URL: "https://example.com/gone", Title: "Gone", ContentHash: "ccc"},
	}
	after := []*types.PageRecord{
		{URL: "https://example.com", Title: "Home", ContentHash: "aaa"},
		{URL: "https://example.com/about", Title: "About", ContentHash: "bbb-changed"},
		{URL: "https://example.com/new", Title: "New", ContentHash: "ddd"},
	}

	changes := Diff(before, after)
	got := make(map[string]string, len(changes))
	for _, c := range changes {
		got[c.URL] = c.Type
	}

	want := map[string]string{
		"https://example.com/about": storage.ChangeUpdatedPage,
		"https://example.com/new":   storage.ChangeNewPage,
		"https://example.com/gone":  storage.ChangeRemovedPage,
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %v", len(want), changes)
	}
	for url, typ := range want {
		if got[url] != typ {
			t.Fatalf("expected %s for %s, got %q", typ, url, got[url])
		}
	}
}

func TestDiffNoChanges(t *testing.T) {
	before := []storage.StoredPage{
		{URL: "https://example.com", ContentHash: "aaa"},
	}
	after := []*types.PageRecord{
		{URL: "https://example.com", ContentHash: "aaa"},
	}
	if changes := Diff(before, after); len(changes) != 0 {
		t.Fatalf("expected no changes, got %v", changes)
	}
}

func TestDiffFirstCrawl(t *testing.T) {
	after := []*types.PageRecord{
		{URL: "https://example.com", ContentHash: "aaa"},
		{URL: "https://example.com/about", ContentHash: "bbb"},
	}
	changes := Diff(nil, after)
	if len(changes) != 2 {
		t.Fatalf("every page is new on the first crawl, got %v", changes)
	}
	for _, c := range changes {
		if c.Type != storage.ChangeNewPage {
			t.Fatalf("expected new_page, got %q", c.Type)
		}
	}
}

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(config.SQLConfig{
		Driver:      "sqlite",
		DSN:         "file:" + filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckSiteFirstCrawlIsBaseline(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	site, err := store.UpsertWebsite(ctx, "https://example.com", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !FirstCrawlBaseline(site) {
		t.Fatal("a never-crawled site must be a baseline candidate")
	}

	crawl := func(context.Context, string) ([]*types.PageRecord, error) {
		return []*types.PageRecord{
			{URL: "https://example.com", Title: "Home", ContentHash: "aaa"},
			{URL: "https://example.com/about", Title: "About", ContentHash: "bbb"},
		}, nil
	}
	generate := func(context.Context, []*types.PageRecord) (string, error) {
		return "# Example\n", nil
	}

	mon := New(store, config.MonitorConfig{}, crawl, generate, nil)
	if err := mon.CheckSite(ctx, site); err != nil {
		t.Fatalf("check site: %v", err)
	}

	changes, err := store.Changes(ctx, site.ID, 10)
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("the first crawl must not log every page as new, got %v", changes)
	}
	stored, err := store.Pages(ctx, site.ID)
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected the baseline pages stored, got %d", len(stored))
	}
	if _, err := store.LatestGeneration(ctx, site.ID); err != nil {
		t.Fatalf("expected a baseline generation: %v", err)
	}

	// A second pass diffs against the baseline.
	site, err = store.Website(ctx, site.ID)
	if err != nil {
		t.Fatalf("reload site: %v", err)
	}
	if FirstCrawlBaseline(site) {
		t.Fatal("a crawled site is no longer a baseline candidate")
	}
	crawlChanged := func(context.Context, string) ([]*types.PageRecord, error) {
		return []*types.PageRecord{
			{URL: "https://example.com", Title: "Home", ContentHash: "aaa-changed"},
			{URL: "https://example.com/about", Title: "About", ContentHash: "bbb"},
		}, nil
	}
	mon = New(store, config.MonitorConfig{}, crawlChanged, generate, nil)
	if err := mon.CheckSite(ctx, site); err != nil {
		t.Fatalf("second check: %v", err)
	}
	changes, err = store.Changes(ctx, site.ID, 10)
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != 1 || changes[0].ChangeType != storage.ChangeUpdatedPage {
		t.Fatalf("expected one updated_page change, got %v", changes)
	}
}
