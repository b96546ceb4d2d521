package crawler

import (
	"reflect"
	"testing"
)

func TestParseSitemapURLSet(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/about</loc></url>
</urlset>`)
	want := []string{"https://example.com/", "https://example.com/about"}
	if got := parseSitemapLocs(body); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseSitemapIndex(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-blog.xml</loc></sitemap>
</sitemapindex>`)
	got := parseSitemapLocs(body)
	want := []string{
		"https://example.com/sitemap-pages.xml",
		"https://example.com/sitemap-blog.xml",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseSitemapGarbage(t *testing.T) {
	if got := parseSitemapLocs([]byte("this is not xml at all")); len(got) != 0 {
		t.Fatalf("expected no locs from garbage, got %v", got)
	}
}
