package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"llmstxtgen/internal/config"
	"llmstxtgen/internal/extract"
	"llmstxtgen/pkg/types"
)

// testSite serves a fixed set of HTML pages and counts requests per path.
type testSite struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	extra map[string]http.HandlerFunc
}

func newTestSite(pages map[string]string) *testSite {
	return &testSite{
		hits:  make(map[string]int),
		pages: pages,
		extra: make(map[string]http.HandlerFunc),
	}
}

func (s *testSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	if h, ok := s.extra[r.URL.Path]; ok {
		h(w, r)
		return
	}
	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, body)
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Crawl.Delay = config.DurationFrom(0)
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runCrawl(t *testing.T, site *testSite, mutate func(*config.Config)) []*types.PageRecord {
	t.Helper()
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := New(server.URL, cfg, testLogger())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine.Crawl(context.Background())
}

func page(title, body string) string {
	return "<html><head><title>" + title + "</title></head><body>" + body + "</body></html>"
}

func urlsOf(pages []*types.PageRecord) []string {
	out := make([]string, len(pages))
	for i, rec := range pages {
		out[i] = rec.URL
	}
	return out
}

func TestCrawlVisitsEachPageOnce(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<nav><a href="/about">About</a></nav>
            <p>Welcome to the home page with plenty of interesting prose to read.</p>
            <a href="/about">About again</a> <a href="/">Self</a>`),
		"/about": page("About", `<nav><a href="/">Home</a><a href="/about">About</a></nav>
            <p>The about page links back to home, forming a cycle.</p>`),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 3
	})

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %v", urlsOf(pages))
	}
	for _, path := range []string{"/", "/about"} {
		if got := site.hitCount(path); got != 1 {
			t.Fatalf("expected exactly one fetch of %s, got %d", path, got)
		}
	}
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<a href="/p1">1</a><a href="/p2">2</a><a href="/p3">3</a><a href="/p4">4</a>
            <p>Index of many pages, more than the budget allows.</p>`),
		"/p1": page("One", "<p>The first page has its own words entirely.</p>"),
		"/p2": page("Two", "<p>The second page differs from the first one.</p>"),
		"/p3": page("Three", "<p>The third page also stands alone here.</p>"),
		"/p4": page("Four", "<p>The fourth page should never be reached.</p>"),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 2
		cfg.Crawl.MaxPages = 3
	})

	if len(pages) > 3 {
		t.Fatalf("page budget exceeded: %v", urlsOf(pages))
	}
	total := 0
	for _, path := range []string{"/", "/p1", "/p2", "/p3", "/p4"} {
		total += site.hitCount(path)
	}
	if total > 3 {
		t.Fatalf("expected at most 3 page fetches, got %d", total)
	}
}

func TestCrawlRespectsMaxDepth(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":      page("Home", `<a href="/child">Child</a><p>Root only, no expansion.</p>`),
		"/child": page("Child", "<p>This page must stay unfetched.</p>"),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 0
	})

	if len(pages) != 1 {
		t.Fatalf("expected only the seed page, got %v", urlsOf(pages))
	}
	if site.hitCount("/child") != 0 {
		t.Fatal("depth-0 crawl must not fetch children")
	}
}

func TestCrawlNavLinksBeforeContentLinks(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<a href="/buried">Content link first in document order</a>
            <nav><a href="/about">About</a></nav>
            <p>Navigation links dispatch before content links at the same depth.</p>`),
		"/about":  page("About", "<p>The about page, reached through navigation.</p>"),
		"/buried": page("Buried", "<p>A page linked only from body content text.</p>"),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 1
		cfg.Crawl.MaxPages = 2
	})

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %v", urlsOf(pages))
	}
	if !strings.HasSuffix(pages[1].URL, "/about") {
		t.Fatalf("expected nav link to win the remaining budget, got %v", urlsOf(pages))
	}
}

func TestCrawlRobotsDisallow(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<nav><a href="/private/admin">Admin</a><a href="/about">About</a></nav>
            <p>Only the public page should be crawled here.</p>`),
		"/about":         page("About", "<p>A public page anyone may fetch freely.</p>"),
		"/private/admin": page("Admin", "<p>Disallowed by the robots policy file.</p>"),
	})
	site.extra["/robots.txt"] = func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "User-agent: *\nDisallow: /private/\n")
	}

	runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 2
	})

	if site.hitCount("/private/admin") != 0 {
		t.Fatal("robots-disallowed path must never be fetched")
	}
	if site.hitCount("/about") != 1 {
		t.Fatal("allowed path should still be fetched")
	}
}

func TestCrawlFallbackWhenRobotsBlockEverything(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", "<p>The only page, blocked by robots yet still recovered.</p>"),
	})
	site.extra["/robots.txt"] = func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "User-agent: *\nDisallow: /\n")
	}

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 1
	})

	if len(pages) != 1 {
		t.Fatalf("expected the fallback direct fetch to recover one page, got %v", urlsOf(pages))
	}
}

func TestCrawlSoft404Excluded(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<nav><a href="/missing">Missing</a><a href="/about">About</a></nav>
            <p>Home content with a link to a soft error page.</p>`),
		"/about": page("About", "<p>Regular page with ordinary content text.</p>"),
		"/missing": page("Page Not Found", `<p>Sorry, this page could not be found.</p>
            <a href="/orphan">Orphan</a>`),
		"/orphan": page("Orphan", "<p>Linked only from the soft-404 page.</p>"),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 3
	})

	for _, rec := range pages {
		if strings.HasSuffix(rec.URL, "/missing") {
			t.Fatalf("soft-404 page leaked into results: %v", urlsOf(pages))
		}
	}
	if site.hitCount("/orphan") != 0 {
		t.Fatal("links on a soft-404 page must not be expanded")
	}
}

func TestCrawlSitemapSeeding(t *testing.T) {
	site := newTestSite(map[string]string{
		"/alpha": page("Alpha", "<p>Reachable only through the sitemap file.</p>"),
		"/beta":  page("Beta", "<p>Also reachable only through the sitemap.</p>"),
	})
	site.extra["/sitemap.xml"] = func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>`+host+`/alpha</loc></url>
  <url><loc>`+host+`/beta</loc></url>
  <url><loc>https://elsewhere.example/offsite</loc></url>
</urlset>`)
	}

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 1
	})

	if len(pages) != 2 {
		t.Fatalf("expected both sitemap pages, got %v", urlsOf(pages))
	}
	for _, path := range []string{"/alpha", "/beta"} {
		if site.hitCount(path) != 1 {
			t.Fatalf("expected sitemap seed %s to be fetched once", path)
		}
	}
}

func TestCrawlSectionDominanceDeferral(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<a href="/blog/one">1</a><a href="/blog/two">2</a>
            <a href="/blog/three">3</a><a href="/about">About</a>
            <p>A home page dominated by links into one section.</p>`),
		"/blog/one":   page("B1", "<p>First blog entry with some words in it.</p>"),
		"/blog/two":   page("B2", "<p>Second blog entry, different words here.</p>"),
		"/blog/three": page("B3", "<p>Third blog entry, yet more new words.</p>"),
		"/about":      page("About", "<p>The lone page outside the blog section.</p>"),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 1
		cfg.Crawl.MaxPages = 10
	})

	urls := urlsOf(pages)
	if len(urls) != 5 {
		t.Fatalf("every page should eventually be fetched, got %v", urls)
	}
	// deferral lets /about jump ahead of the later blog entries
	aboutIdx, blogTwoIdx := -1, -1
	for i, u := range urls {
		if strings.HasSuffix(u, "/about") {
			aboutIdx = i
		}
		if strings.HasSuffix(u, "/blog/two") {
			blogTwoIdx = i
		}
	}
	if aboutIdx == -1 || blogTwoIdx == -1 {
		t.Fatalf("missing expected pages in %v", urls)
	}
	if aboutIdx > blogTwoIdx {
		t.Fatalf("expected /about before /blog/two under dominance deferral, got %v", urls)
	}
}

func TestCrawlLocaleDedup(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": page("Home", `<nav><a href="/en/about">EN</a><a href="/fr/about">FR</a></nav>
            <p>A bilingual site with mirrored about pages.</p>`),
		"/en/about": page("About", "<p>The English variant of the about page.</p>"),
		"/fr/about": page("A propos", "<p>La variante francaise de la page.</p>"),
	})

	pages := runCrawl(t, site, func(cfg *config.Config) {
		cfg.Crawl.MaxDepth = 1
	})

	var aboutVariants []string
	for _, rec := range pages {
		if strings.HasSuffix(rec.URL, "/about") {
			aboutVariants = append(aboutVariants, rec.URL)
		}
	}
	if len(aboutVariants) != 1 || !strings.Contains(aboutVariants[0], "/en/") {
		t.Fatalf("expected only the English variant to survive, got %v", aboutVariants)
	}
}

func TestNewRejectsBadSeeds(t *testing.T) {
	cfg := testConfig()
	if _, err := New("", cfg, testLogger()); err == nil {
		t.Fatal("empty seed must be rejected")
	}
	if _, err := New("ftp://example.com", cfg, testLogger()); err == nil {
		t.Fatal("non-http scheme must be rejected")
	}
}

func TestNewDefaultsScheme(t *testing.T) {
	engine, err := New("example.com/path", testConfig(), testLogger())
	if err != nil {
		t.Fatalf("bare host should be accepted: %v", err)
	}
	if engine.seed.Scheme != "https" {
		t.Fatalf("expected https default, got %q", engine.seed.Scheme)
	}
}

func TestMergeStructuredLinksKeepsBound(t *testing.T) {
	seedKey := "https://example.com"
	var other []string
	for i := 0; i < 25; i++ {
		other = append(other, fmt.Sprintf("https://example.com/page-%d", i))
	}
	var structured []string
	for i := 0; i < 20; i++ {
		structured = append(structured, fmt.Sprintf("https://example.com/mined-%d", i))
	}

	merged := mergeStructuredLinks(other, structured, seedKey)
	if len(merged) != extract.MaxOtherLinks {
		t.Fatalf("expected the merged set capped at %d, got %d", extract.MaxOtherLinks, len(merged))
	}

	again := mergeStructuredLinks(merged, structured, seedKey)
	if len(again) != extract.MaxOtherLinks {
		t.Fatalf("a full set must not grow, got %d", len(again))
	}
}
