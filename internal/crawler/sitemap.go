package crawler

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"

	"llmstxtgen/internal/urlutil"
)

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

var sitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml"}

// sitemapSeeds collects in-scope normalized URLs from the site's sitemaps.
// Both the urlset and sitemapindex document shapes contribute their <loc>
// entries. Any fetch or parse failure yields no seeds, never an error.
func (e *Engine) sitemapSeeds(ctx context.Context) []string {
	var seeds []string
	seen := make(map[string]struct{})

	for _, path := range sitemapPaths {
		target := &url.URL{Scheme: e.seed.Scheme, Host: e.seed.Host, Path: path}
		page, err := e.fetch.Get(ctx, target)
		if err != nil || page.StatusCode != http.StatusOK {
			continue
		}
		for _, loc := range parseSitemapLocs(page.Body) {
			key := urlutil.Normalize(loc)
			if key == "" || !urlutil.SameDomain(key, e.seedKey) {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			seeds = append(seeds, key)
		}
	}
	return seeds
}

func parseSitemapLocs(body []byte) []string {
	var locs []string

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err == nil {
		for _, u := range set.URLs {
			locs = append(locs, u.Loc)
		}
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil {
		for _, sm := range index.Sitemaps {
			locs = append(locs, sm.Loc)
		}
	}

	return locs
}
