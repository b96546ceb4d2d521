package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	visibleSnippetBound = 2000
	mainTextBound       = 2000
)

// visibleText returns the page's whitespace-collapsed visible text: scripts
// and styles stripped, navigation kept. This is the change-detection and
// soft-404 comparison signal, so it must be stable across extraction paths;
// it is computed from the raw body with the HTML tokenizer and works even on
// markup goquery refuses.
func visibleText(body []byte) string {
	var b strings.Builder
	skipDepth := 0

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return normalizeWhitespace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if isInvisibleTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isInvisibleTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isInvisibleTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// mainText extracts a bounded excerpt of the primary content region:
// boilerplate elements removed, then a <main>/<article> element if present,
// else the single largest <section>/<div> text block.
func mainText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	work := goquery.CloneDocument(doc)
	work.Find("script,style,noscript,nav,header,footer,aside").Remove()

	for _, sel := range []string{"main", "article"} {
		if region := work.Find(sel).First(); region.Length() > 0 {
			if text := normalizeWhitespace(region.Text()); text != "" {
				return truncateAtWord(text, mainTextBound)
			}
		}
	}

	var best string
	work.Find("section,div").Each(func(_ int, s *goquery.Selection) {
		text := normalizeWhitespace(s.Text())
		if len(text) > len(best) {
			best = text
		}
	})
	if best == "" {
		best = normalizeWhitespace(work.Find("body").Text())
	}
	return truncateAtWord(best, mainTextBound)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateAtWord bounds text to max characters, cutting at a word boundary
// and appending an ellipsis marker like the rest of the pipeline expects.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// snippet bounds text to max bytes without the ellipsis marker; used for the
// visible-text snippet where exact prefixes matter.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
