package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	structuredTextBound = 8000
	structuredURLBound  = 50
	structuredMinText   = 25

	// Walk bounds keep adversarial payloads from dominating extraction cost.
	walkMaxDepth = 16
	walkMaxNodes = 10000
)

// structuredData is the material mined from a page's embedded JSON: free
// text worth keeping and candidate in-scope link URLs that framework data
// islands often carry in place of rendered anchors.
type structuredData struct {
	Text string
	URLs []string
}

// mineStructured walks every embedded JSON payload on the page: JSON-LD
// blocks, generic application/json scripts, framework data islands, and
// inline script assignments holding a JSON literal. Malformed JSON is
// skipped, never fatal.
func mineStructured(doc *goquery.Document, host, scheme string) structuredData {
	if doc == nil {
		return structuredData{}
	}

	collector := newStringCollector(host, scheme)

	doc.Find(`script[type="application/ld+json"],script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		collector.consumeJSON(s.Text())
	})

	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); strings.Contains(t, "json") {
			return // already handled above
		}
		for _, candidate := range inlineJSONLiterals(s.Text()) {
			collector.consumeJSON(candidate)
		}
	})

	return collector.result()
}

var assignPattern = regexp.MustCompile(`=\s*([\[{])`)

// inlineJSONLiterals scans script source for `= {...}` / `= [...]`
// assignments and returns the balanced literal for each, so framework
// bootstrap state like `window.__DATA__ = {...};` is recoverable.
func inlineJSONLiterals(src string) []string {
	var literals []string
	offset := 0
	for offset < len(src) && len(literals) < 8 {
		loc := assignPattern.FindStringIndex(src[offset:])
		if loc == nil {
			break
		}
		start := offset + loc[1] - 1
		literal, end := balancedJSON(src, start)
		if literal != "" {
			literals = append(literals, literal)
			offset = end
		} else {
			offset = start + 1
		}
	}
	return literals
}

// balancedJSON returns the brace/bracket-balanced substring starting at
// start, honoring JSON string escapes, or "" when unbalanced.
func balancedJSON(src string, start int) (string, int) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(src); i++ {
		c := src[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return src[start : i+1], i + 1
			}
			if depth < 0 {
				return "", i
			}
		}
	}
	return "", len(src)
}

type stringCollector struct {
	host   string
	scheme string

	texts    map[string]string // normalized -> original
	urls     []string
	urlsSeen map[string]struct{}
}

func newStringCollector(host, scheme string) *stringCollector {
	return &stringCollector{
		host:     strings.ToLower(host),
		scheme:   scheme,
		texts:    make(map[string]string),
		urlsSeen: make(map[string]struct{}),
	}
}

func (c *stringCollector) consumeJSON(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return
	}
	budget := walkMaxNodes
	c.walk(value, 0, &budget)
}

// walk visits the tagged-variant JSON value depth-first with explicit depth
// and node budgets.
func (c *stringCollector) walk(value any, depth int, budget *int) {
	if depth > walkMaxDepth || *budget <= 0 {
		return
	}
	*budget--
	switch v := value.(type) {
	case string:
		c.classify(v)
	case []any:
		for _, item := range v {
			c.walk(item, depth+1, budget)
		}
	case map[string]any:
		for _, item := range v {
			c.walk(item, depth+1, budget)
		}
	}
}

func (c *stringCollector) classify(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	switch {
	case strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//"):
		if looksLikePath(s) {
			c.addURL(c.scheme + "://" + c.host + s)
		}
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		if u, err := url.Parse(s); err == nil && strings.EqualFold(u.Host, c.host) {
			c.addURL(s)
		}
	default:
		if looksLikeContent(s) {
			norm := strings.ToLower(normalizeWhitespace(s))
			if _, dup := c.texts[norm]; !dup {
				c.texts[norm] = normalizeWhitespace(s)
			}
		}
	}
}

func (c *stringCollector) addURL(raw string) {
	if len(c.urls) >= structuredURLBound {
		return
	}
	if _, dup := c.urlsSeen[raw]; dup {
		return
	}
	c.urlsSeen[raw] = struct{}{}
	c.urls = append(c.urls, raw)
}

func looksLikePath(s string) bool {
	if len(s) > 512 {
		return false
	}
	return !strings.ContainsAny(s, " \t\n{}<>\"")
}

var base64ish = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{40,}$`)

// looksLikeContent is the content-likelihood heuristic for mined strings:
// long enough to be prose, not URL-shaped, not binary/base64-looking, and
// mostly composed of ordinary text characters.
func looksLikeContent(s string) bool {
	if len(s) < structuredMinText {
		return false
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "/") {
		return false
	}
	if base64ish.MatchString(s) {
		return false
	}
	textish := 0
	total := 0
	for _, r := range s {
		total++
		switch {
		case r == ' ' || r == '\n' || r == '\t':
			textish++
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			textish++
		case strings.ContainsRune(".,;:!?'\"()-–—%&", r):
			textish++
		case r > 127: // non-ASCII letters count as text
			textish++
		}
	}
	return total > 0 && float64(textish)/float64(total) >= 0.8
}

// result concatenates the retained texts longest-first up to the bound, so
// memory stays proportional to page content rather than script size.
func (c *stringCollector) result() structuredData {
	texts := make([]string, 0, len(c.texts))
	for _, t := range c.texts {
		texts = append(texts, t)
	}
	sort.Slice(texts, func(i, j int) bool {
		if len(texts[i]) != len(texts[j]) {
			return len(texts[i]) > len(texts[j])
		}
		return texts[i] < texts[j]
	})

	var b strings.Builder
	for _, t := range texts {
		if b.Len() >= structuredTextBound {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t)
	}
	text := b.String()
	if len(text) > structuredTextBound {
		text = snippet(text, structuredTextBound)
	}
	return structuredData{Text: text, URLs: c.urls}
}
