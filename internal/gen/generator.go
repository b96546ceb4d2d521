package gen

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/nao1215/markdown"

	"llmstxtgen/internal/analyzer"
	"llmstxtgen/pkg/types"
)

// Generator renders an llms.txt document from crawled pages following the
// llmstxt.org layout: an H1 site name, a blockquote summary, optional detail
// paragraphs, then categorized link sections.
type Generator struct {
	analyzer *analyzer.Analyzer
}

// New creates a Generator backed by the given analyzer.
func New(a *analyzer.Analyzer) *Generator {
	return &Generator{analyzer: a}
}

// Section order in the rendered document. Contact renders separately after
// these; categories not listed here land in the trailing Optional section.
var sectionOrder = []string{
	"documentation", "about", "services", "products", "pricing", "blog", "faq", "careers",
}

var sectionTitles = map[string]string{
	"documentation": "Docs",
	"about":         "About",
	"services":      "Services",
	"products":      "Products",
	"pricing":       "Pricing",
	"blog":          "Blog",
	"faq":           "FAQ",
	"careers":       "Careers",
}

const (
	maxLinksPerSection = 10
	maxCorePages       = 10
)

// Generate writes the llms.txt document for pages to w.
func (g *Generator) Generate(ctx context.Context, w io.Writer, pages []*types.PageRecord) error {
	if len(pages) == 0 {
		return fmt.Errorf("gen: no pages to generate from")
	}

	md := markdown.NewMarkdown(w)

	md.H1(g.analyzer.SiteName(pages))
	md.PlainText("")
	md.Blockquote(oneLine(g.analyzer.SiteSummary(pages)))
	md.PlainText("")

	details := g.detailParagraphs(pages)
	details = append(details, metadataParagraphs(pages)...)
	for _, p := range details {
		md.PlainText(p)
		md.PlainText("")
	}

	grouped := g.analyzer.GroupByCategory(ctx, pages)

	if core := g.corePages(ctx, pages); len(core) > 0 {
		md.H2("Core Pages")
		md.PlainText("")
		md.BulletList(linkItems(core)...)
		md.PlainText("")
	}

	for _, cat := range sectionOrder {
		bucket := grouped[cat]
		if len(bucket) == 0 {
			continue
		}
		md.H2(sectionTitles[cat])
		md.PlainText("")
		md.BulletList(linkItems(bucket)...)
		md.PlainText("")
	}

	if contact := contactItems(pages, grouped["contact"]); len(contact) > 0 {
		md.H2("Contact")
		md.PlainText("")
		md.BulletList(contact...)
		md.PlainText("")
	}

	if optional := collectOptional(grouped); len(optional) > 0 {
		md.H2("Optional")
		md.PlainText("")
		md.BulletList(linkItems(optional)...)
		md.PlainText("")
	}

	return md.Build()
}

// GenerateString renders to a string, for storage and HTTP responses.
func (g *Generator) GenerateString(ctx context.Context, pages []*types.PageRecord) (string, error) {
	var sb strings.Builder
	if err := g.Generate(ctx, &sb, pages); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// detailParagraphs picks up to two rich page descriptions, skipping the one
// already used as the blockquote summary.
func (g *Generator) detailParagraphs(pages []*types.PageRecord) []string {
	summary := oneLine(g.analyzer.SiteSummary(pages))
	var out []string
	seen := map[string]struct{}{summary: {}}
	for _, rec := range pages {
		desc := rec.BestDescription
		if desc == "" {
			desc = rec.Description
		}
		desc = oneLine(desc)
		if len(desc) < 80 {
			continue
		}
		if _, dup := seen[desc]; dup {
			continue
		}
		seen[desc] = struct{}{}
		out = append(out, desc)
		if len(out) == 2 {
			break
		}
	}
	return out
}

// metadataParagraphs turns page-level metadata into detail paragraphs: the
// author bio, licensing terms, and supported languages when more than one.
func metadataParagraphs(pages []*types.PageRecord) []string {
	var out []string

	// Author bios are trusted only on the homepage and about pages; role
	// words appear in too many other headings.
	for _, rec := range orderedByHomepage(pages) {
		if rec.AuthorBio == "" {
			continue
		}
		if rec != homepageRecord(pages) && !strings.Contains(pathOf(rec.URL), "about") {
			continue
		}
		out = append(out, oneLine(rec.AuthorBio))
		break
	}

	if home := homepageRecord(pages); home != nil && home.License != "" {
		out = append(out, licenseParagraph(home))
	}

	if langs := distinctLanguages(pages); len(langs) > 1 {
		out = append(out, "Languages supported: "+strings.Join(langs, ", ")+".")
	}

	return out
}

func licenseParagraph(home *types.PageRecord) string {
	lic := home.License
	if !strings.HasPrefix(lic, "http") {
		return oneLine(lic)
	}
	name := strings.Trim(lic, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return fmt.Sprintf("All pages under this site (%s) are licensed under [%s](%s).", home.URL, name, lic)
}

func distinctLanguages(pages []*types.PageRecord) []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, rec := range pages {
		if rec.Lang == "" {
			continue
		}
		if _, dup := seen[rec.Lang]; dup {
			continue
		}
		seen[rec.Lang] = struct{}{}
		langs = append(langs, rec.Lang)
	}
	sort.Strings(langs)
	return langs
}

// corePages assembles the leading section: the homepage, then the key page of
// each priority category, then pages on conventionally important paths.
func (g *Generator) corePages(ctx context.Context, pages []*types.PageRecord) []*types.PageRecord {
	seen := make(map[string]struct{}, maxCorePages)
	var core []*types.PageRecord
	add := func(rec *types.PageRecord) {
		if rec == nil || len(core) >= maxCorePages {
			return
		}
		if _, dup := seen[rec.URL]; dup {
			return
		}
		seen[rec.URL] = struct{}{}
		core = append(core, rec)
	}

	add(homepageRecord(pages))

	key := g.analyzer.KeyPages(ctx, pages)
	for _, cat := range analyzer.PriorityCategories {
		add(key[cat])
	}

	for _, rec := range pages {
		path := pathOf(rec.URL)
		for _, kw := range []string{"faq", "pricing", "about", "demo", "features", "contact"} {
			if strings.Contains(path, kw) {
				add(rec)
				break
			}
		}
	}
	return core
}

var socialTitles = map[string]string{
	"twitter": "Twitter/X",
	"ko-fi":   "Ko-fi",
}

// contactItems lists the homepage's social and contact links, falling back to
// the contact-category pages when the homepage carries none.
func contactItems(pages, contactBucket []*types.PageRecord) []string {
	home := homepageRecord(pages)
	if home == nil || len(home.SocialLinks) == 0 {
		return linkItems(contactBucket)
	}
	items := make([]string, 0, len(home.SocialLinks))
	for _, link := range home.SocialLinks {
		platform := socialTitles[link.Platform]
		if platform == "" {
			platform = strings.ToUpper(link.Platform[:1]) + link.Platform[1:]
		}
		item := fmt.Sprintf("[%s](%s)", platform, link.URL)
		if text := oneLine(link.Text); text != "" && !strings.EqualFold(text, platform) {
			item += ": " + escapeBrackets(text)
		}
		items = append(items, item)
	}
	return items
}

var homePaths = map[string]struct{}{
	"/": {}, "": {}, "/index": {}, "/index.html": {},
}

func homepageRecord(pages []*types.PageRecord) *types.PageRecord {
	for _, rec := range pages {
		if _, ok := homePaths[pathOf(rec.URL)]; ok {
			return rec
		}
	}
	if len(pages) > 0 {
		return pages[0]
	}
	return nil
}

// orderedByHomepage yields the homepage first so its metadata wins ties.
func orderedByHomepage(pages []*types.PageRecord) []*types.PageRecord {
	home := homepageRecord(pages)
	if home == nil {
		return pages
	}
	out := make([]*types.PageRecord, 0, len(pages))
	out = append(out, home)
	for _, rec := range pages {
		if rec != home {
			out = append(out, rec)
		}
	}
	return out
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}

func collectOptional(grouped map[string][]*types.PageRecord) []*types.PageRecord {
	listed := make(map[string]struct{}, len(sectionOrder)+2)
	listed["home"] = struct{}{}
	listed["contact"] = struct{}{}
	for _, cat := range sectionOrder {
		listed[cat] = struct{}{}
	}
	var rest []string
	for cat := range grouped {
		if _, ok := listed[cat]; !ok {
			rest = append(rest, cat)
		}
	}
	sort.Strings(rest)
	var optional []*types.PageRecord
	for _, cat := range rest {
		optional = append(optional, grouped[cat]...)
	}
	return optional
}

func linkItems(bucket []*types.PageRecord) []string {
	items := make([]string, 0, maxLinksPerSection)
	for _, rec := range bucket {
		if len(items) == maxLinksPerSection {
			break
		}
		title := rec.Title
		if title == "" {
			title = rec.URL
		}
		item := fmt.Sprintf("[%s](%s)", escapeBrackets(title), rec.URL)
		if desc := linkDesc(rec); desc != "" {
			item += ": " + desc
		}
		items = append(items, item)
	}
	return items
}

// linkDesc bounds per-link descriptions so sections stay scannable.
func linkDesc(rec *types.PageRecord) string {
	desc := rec.BestDescription
	if desc == "" {
		desc = rec.Description
	}
	desc = oneLine(desc)
	if len(desc) > 150 {
		cut := strings.LastIndex(desc[:150], " ")
		if cut <= 0 {
			cut = 150
		}
		desc = desc[:cut] + "..."
	}
	return desc
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func escapeBrackets(s string) string {
	s = strings.ReplaceAll(s, "[", "(")
	return strings.ReplaceAll(s, "]", ")")
}
