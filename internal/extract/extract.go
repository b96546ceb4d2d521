package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"llmstxtgen/internal/urlutil"
	"llmstxtgen/pkg/types"
)

const (
	descriptionFallbackBound = 200
	rawTextBound             = 2000
	goodParagraphMin         = 80
	goodParagraphMax         = 300
)

// Extractor builds page records for a single crawl target. The seed scheme
// and host scope the structured-URL mining.
type Extractor struct {
	host   string
	scheme string
}

// New creates an extractor scoped to the seed's host.
func New(scheme, host string) *Extractor {
	return &Extractor{scheme: scheme, host: strings.ToLower(host)}
}

// Result is the extraction outcome for one fetched page: the record plus the
// two link classes discovered on it.
type Result struct {
	Record     *types.PageRecord
	NavLinks   []string
	OtherLinks []string
}

// Extract builds a PageRecord and link sets from a fetched page. homepage is
// the run's homepage signature, nil while extracting the first page. Parse
// failures degrade to a minimal record so the crawl never aborts on one
// unparsable page.
func (x *Extractor) Extract(page *types.Page, homepage *types.HomepageSignature) *Result {
	key := urlutil.NormalizeURL(page.URL)

	visible := visibleText(page.Body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return &Result{Record: x.minimalRecord(page, key, visible)}
	}

	rec := &types.PageRecord{
		URL:             key,
		ContentHash:     hashOf(page.Body),
		VisibleTextHash: hashOf([]byte(visible)),
		VisibleTextLen:  len(visible),
		VisibleSnippet:  snippet(visible, visibleSnippetBound),
		FetchedAt:       page.FetchedAt,
	}

	rec.Title = extractTitle(doc)
	rec.Description = extractDescription(doc)
	rec.CanonicalURL = attrOf(doc, `link[rel="canonical"]`, "href")
	rec.OGURL = metaContent(doc, `meta[property="og:url"]`)

	mined := mineStructured(doc, x.host, x.scheme)
	rec.StructuredText = mined.Text
	rec.StructuredURLs = mined.URLs

	extractMetadata(doc, rec)

	rec.MainText = mainText(doc)
	rec.BestDescription = x.bestDescription(doc, rec, homepage)
	rec.RawText = buildRawText(visible, mined.Text)

	if homepage != nil {
		rec.IsSoft404 = IsSoft404(rec, homepage)
	}

	base := page.FinalURL
	if base == nil {
		base = page.URL
	}
	nav, other := extractLinks(doc, base, key)

	return &Result{Record: rec, NavLinks: nav, OtherLinks: other}
}

// minimalRecord is the degraded outcome for unparsable markup: identity,
// hashes, and a best-effort text excerpt only.
func (x *Extractor) minimalRecord(page *types.Page, key, visible string) *types.PageRecord {
	return &types.PageRecord{
		URL:             key,
		Title:           "Untitled",
		ContentHash:     hashOf(page.Body),
		VisibleTextHash: hashOf([]byte(visible)),
		VisibleTextLen:  len(visible),
		VisibleSnippet:  snippet(visible, visibleSnippetBound),
		RawText:         truncateAtWord(visible, rawTextBound),
		FetchedAt:       page.FetchedAt,
	}
}

func extractTitle(doc *goquery.Document) string {
	title := normalizeWhitespace(doc.Find("title").First().Text())
	if og := metaContent(doc, `meta[property="og:title"]`); og != "" {
		title = og
	}
	if title == "" {
		title = "Untitled"
	}
	return title
}

// extractDescription applies the precedence meta description < og:description,
// falling back to the first paragraph bounded to 200 characters.
func extractDescription(doc *goquery.Document) string {
	desc := metaContent(doc, `meta[name="description"]`)
	if og := metaContent(doc, `meta[property="og:description"]`); og != "" {
		desc = og
	}
	if desc == "" {
		if p := normalizeWhitespace(doc.Find("p").First().Text()); p != "" {
			desc = truncateAtWord(p, descriptionFallbackBound)
		}
	}
	return desc
}

// bestDescription prefers the first good paragraph of the main content
// region, then the first good structured-text line, then the description
// precedence, then a heading+paragraph composite. A result colliding with
// the homepage's best description is replaced or dropped: templated hero
// copy must not be attributed to every page.
func (x *Extractor) bestDescription(doc *goquery.Document, rec *types.PageRecord, homepage *types.HomepageSignature) string {
	candidates := x.descriptionCandidates(doc, rec)

	best := ""
	for _, c := range candidates {
		if c != "" {
			best = c
			break
		}
	}
	if homepage == nil || !looseEqual(best, homepage.BestDescription) {
		return best
	}

	for _, c := range candidates {
		if c != "" && !looseEqual(c, homepage.BestDescription) {
			return c
		}
	}
	return ""
}

func (x *Extractor) descriptionCandidates(doc *goquery.Document, rec *types.PageRecord) []string {
	return []string{
		firstGoodParagraph(doc),
		goodStructuredLine(rec.StructuredText),
		rec.Description,
		headingComposite(doc),
	}
}

// goodParagraph is the shared prose filter: 80-300 normalized characters
// with terminal punctuation.
func goodParagraph(s string) bool {
	n := len(s)
	return n >= goodParagraphMin && n <= goodParagraphMax && strings.ContainsAny(s, ".!?")
}

func firstGoodParagraph(doc *goquery.Document) string {
	found := ""
	for _, region := range []string{"main p", "article p", ".content p", "p"} {
		doc.Find(region).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := normalizeWhitespace(s.Text())
			if goodParagraph(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func goodStructuredLine(structured string) string {
	for _, line := range strings.Split(structured, "\n") {
		line = normalizeWhitespace(line)
		if goodParagraph(line) {
			return line
		}
	}
	return ""
}

// headingComposite is the last-resort description: the first heading and
// paragraph of a main/header region joined together.
func headingComposite(doc *goquery.Document) string {
	for _, region := range []string{"main", "header"} {
		sel := doc.Find(region).First()
		if sel.Length() == 0 {
			continue
		}
		heading := normalizeWhitespace(sel.Find("h1,h2").First().Text())
		para := normalizeWhitespace(sel.Find("p").First().Text())
		composite := normalizeWhitespace(heading + " " + para)
		if composite != "" {
			return truncateAtWord(composite, goodParagraphMax)
		}
	}
	return ""
}

// buildRawText combines visible and structured text into the bounded excerpt
// consumed by downstream summarization.
func buildRawText(visible, structured string) string {
	combined := visible
	if structured != "" {
		if combined != "" {
			combined += " "
		}
		combined += structured
	}
	return truncateAtWord(combined, rawTextBound)
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return normalizeWhitespace(content)
}

func attrOf(doc *goquery.Document, selector, attr string) string {
	val, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(val)
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// looseEqual compares text case- and punctuation-insensitively.
func looseEqual(a, b string) bool {
	return looseKey(a) != "" && looseKey(a) == looseKey(b)
}

func looseKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
			b.WriteRune(r)
		case r > 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}
