package analyzer

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"llmstxtgen/pkg/types"
)

// Classifier is the optional auxiliary classification service. The analyzer
// is fully functional with a nil classifier, falling back to its keyword
// heuristics.
type Classifier interface {
	Categorize(ctx context.Context, pageURL, title, description, preview string) (string, error)
}

// Analyzer assigns coarse categories to crawled pages and derives site-level
// facts (name, summary, key pages) for document generation.
type Analyzer struct {
	classifier Classifier
}

// New creates an analyzer. classifier may be nil.
func New(classifier Classifier) *Analyzer {
	return &Analyzer{classifier: classifier}
}

var categoryKeywords = map[string][]string{
	"home":          {"home", "index", "main", "welcome"},
	"about":         {"about", "company", "team", "story", "mission", "vision", "history"},
	"contact":       {"contact", "reach", "get-in-touch", "support", "help"},
	"services":      {"service", "services", "offerings", "solutions", "what-we-do"},
	"products":      {"product", "products", "catalog", "shop", "store", "buy"},
	"blog":          {"blog", "news", "articles", "posts", "updates"},
	"pricing":       {"pricing", "price", "plans", "cost", "subscription"},
	"faq":           {"faq", "faqs", "questions", "help"},
	"careers":       {"career", "careers", "jobs", "hiring", "work-with-us"},
	"documentation": {"docs", "documentation", "guide", "api", "reference"},
}

var homePaths = map[string]struct{}{
	"/": {}, "": {}, "/index": {}, "/index.html": {}, "/home": {},
}

// Categorize assigns a category from URL, title, and description signals.
// Path hits weigh most, then title, then description.
func (a *Analyzer) Categorize(ctx context.Context, rec *types.PageRecord) string {
	if a.classifier != nil {
		if cat, err := a.classifier.Categorize(ctx, rec.URL, rec.Title, rec.Description, rec.RawText); err == nil && cat != "" {
			return cat
		}
	}

	path := "/"
	if u, err := url.Parse(rec.URL); err == nil {
		path = strings.ToLower(u.Path)
	}
	if _, ok := homePaths[path]; ok {
		return "home"
	}

	title := strings.ToLower(rec.Title)
	desc := strings.ToLower(rec.Description)

	bestCat, bestScore := "", 0
	for _, cat := range sortedCategories() {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(path, kw) {
				score += 3
			}
			if strings.Contains(title, kw) {
				score += 2
			}
			if strings.Contains(desc, kw) {
				score++
			}
		}
		if score > bestScore {
			bestCat, bestScore = cat, score
		}
	}
	if bestCat == "" {
		return "other"
	}
	return bestCat
}

func sortedCategories() []string {
	cats := make([]string, 0, len(categoryKeywords))
	for cat := range categoryKeywords {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// PriorityCategories are the categories whose best page counts as a key
// page, in display order.
var PriorityCategories = []string{"home", "about", "contact", "services", "products"}

// KeyPages picks one representative page per priority category. Within a
// category the page with the longest description wins.
func (a *Analyzer) KeyPages(ctx context.Context, pages []*types.PageRecord) map[string]*types.PageRecord {
	priority := make(map[string]struct{}, len(PriorityCategories))
	for _, cat := range PriorityCategories {
		priority[cat] = struct{}{}
	}

	key := make(map[string]*types.PageRecord)
	for _, rec := range pages {
		cat := a.Categorize(ctx, rec)
		if _, ok := priority[cat]; !ok {
			continue
		}
		cur, ok := key[cat]
		if !ok || len(rec.Description) > len(cur.Description) {
			key[cat] = rec
		}
	}
	return key
}

// GroupByCategory buckets pages by category, shallowest paths first within
// each bucket.
func (a *Analyzer) GroupByCategory(ctx context.Context, pages []*types.PageRecord) map[string][]*types.PageRecord {
	grouped := make(map[string][]*types.PageRecord)
	for _, rec := range pages {
		cat := a.Categorize(ctx, rec)
		grouped[cat] = append(grouped[cat], rec)
	}
	for _, bucket := range grouped {
		sort.SliceStable(bucket, func(i, j int) bool {
			return strings.Count(bucket[i].URL, "/") < strings.Count(bucket[j].URL, "/")
		})
	}
	return grouped
}

var titleSuffix = regexp.MustCompile(`(?i)\s*[-|]\s*(Home|Welcome|Main).*$`)
var wwwPrefix = regexp.MustCompile(`^www\.`)
var tldSuffix = regexp.MustCompile(`\.[a-z]{2,4}$`)

// SiteName derives the website name from the homepage title, else from the
// domain.
func (a *Analyzer) SiteName(pages []*types.PageRecord) string {
	if home := homepageOf(pages); home != nil && home.Title != "" && home.Title != "Untitled" {
		return strings.TrimSpace(titleSuffix.ReplaceAllString(home.Title, ""))
	}
	if len(pages) > 0 {
		if u, err := url.Parse(pages[0].URL); err == nil {
			domain := wwwPrefix.ReplaceAllString(u.Hostname(), "")
			domain = tldSuffix.ReplaceAllString(domain, "")
			return titleCase(strings.ReplaceAll(domain, ".", " "))
		}
	}
	return "Website"
}

// SiteSummary prefers the homepage's best description, then any sufficiently
// rich description from the corpus.
func (a *Analyzer) SiteSummary(pages []*types.PageRecord) string {
	if home := homepageOf(pages); home != nil {
		if home.BestDescription != "" {
			return home.BestDescription
		}
		if home.Description != "" {
			return home.Description
		}
	}
	for _, rec := range pages {
		desc := rec.BestDescription
		if desc == "" {
			desc = rec.Description
		}
		if len(desc) > 50 {
			return desc
		}
	}
	return "A website providing various services and information."
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func homepageOf(pages []*types.PageRecord) *types.PageRecord {
	for _, rec := range pages {
		if u, err := url.Parse(rec.URL); err == nil {
			if _, ok := homePaths[strings.ToLower(u.Path)]; ok {
				return rec
			}
		}
	}
	if len(pages) > 0 {
		return pages[0]
	}
	return nil
}
