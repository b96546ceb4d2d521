package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"llmstxtgen/internal/urlutil"
)

// MaxOtherLinks bounds the other-class link set per page. Callers that merge
// additional sources into the class apply the same bound.
const MaxOtherLinks = 30

// navSelectors mark the navigation regions of a page. Links found here form
// the high-priority class: a site's own menu is the best signal of important
// pages under a tight budget.
var navSelectors = []string{
	"nav a",
	"header nav a",
	".navbar a",
	".navigation a",
	".menu a",
	`[role="navigation"] a`,
	".header a",
	".main-menu a",
}

// contentSelectors mark the body/content regions mined for the other class.
var contentSelectors = []string{
	"main a", "article a", ".content a", ".post a",
	".entry a", "section a", ".page-content a",
}

// extractLinks produces the two disjoint link classes for a page: nav links
// from navigation regions and other links from everywhere else, both
// normalized, in-scope, and resource-filtered. Other links are capped.
func extractLinks(doc *goquery.Document, base *url.URL, seedKey string) (nav, other []string) {
	if doc == nil || base == nil {
		return nil, nil
	}

	navSet := make(map[string]struct{})
	for _, sel := range navSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if key, ok := resolveLink(s, base, seedKey); ok {
				if _, dup := navSet[key]; !dup {
					navSet[key] = struct{}{}
					nav = append(nav, key)
				}
			}
		})
	}

	otherSet := make(map[string]struct{})
	collect := func(_ int, s *goquery.Selection) {
		key, ok := resolveLink(s, base, seedKey)
		if !ok {
			return
		}
		if _, isNav := navSet[key]; isNav {
			return
		}
		// content links with an empty path are just the homepage again
		if u, err := url.Parse(key); err != nil || u.Path == "" {
			return
		}
		if _, dup := otherSet[key]; dup {
			return
		}
		otherSet[key] = struct{}{}
		other = append(other, key)
	}

	doc.Find("a[href],link[href],area[href]").Each(collect)
	for _, sel := range contentSelectors {
		doc.Find(sel).Each(collect)
	}

	if len(other) > MaxOtherLinks {
		other = other[:MaxOtherLinks]
	}
	return nav, other
}

func resolveLink(s *goquery.Selection, base *url.URL, seedKey string) (string, bool) {
	href, ok := s.Attr("href")
	if !ok {
		return "", false
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	key := urlutil.NormalizeURL(resolved)
	if !urlutil.SameDomain(key, seedKey) {
		return "", false
	}
	if urlutil.IsResourceURL(key) {
		return "", false
	}
	return key, true
}
