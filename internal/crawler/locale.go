package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// Locale segments are detected by shape, not by dictionary: a two-letter
// code ("en"), a two-letter code with a hyphenated region ("en-US"), or a
// bare three-letter code ("eng").
var localeSegment = regexp.MustCompile(`^(?:[a-z]{2}(?:-[A-Za-z]{2})?|[a-z]{3})$`)

func isLocaleSegment(seg string) bool {
	return localeSegment.MatchString(seg)
}

func isEnglishSegment(seg string) bool {
	return isLocaleSegment(seg) && strings.HasPrefix(strings.ToLower(seg), "en")
}

// splitLocale returns the URL's locale-stripped grouping key and the locale
// segment itself ("" when the first path segment is not locale-shaped).
func splitLocale(raw string) (key, locale string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	segs := strings.Split(path, "/")
	if len(segs) > 0 && isLocaleSegment(segs[0]) {
		locale = segs[0]
		segs = segs[1:]
	}
	rest := strings.Join(segs, "/")
	key = strings.ToLower(u.Host) + "/" + rest
	return key, locale
}

func pathSegments(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.Count(raw, "/")
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

// shorterURL prefers fewer path segments, then fewer characters.
func shorterURL(a, b string) bool {
	sa, sb := pathSegments(a), pathSegments(b)
	if sa != sb {
		return sa < sb
	}
	return len(a) < len(b)
}

// DedupLocales collapses URLs differing only by a locale path segment to a
// single representative per group: the shortest English-tagged variant if
// one exists, the shortest variant overall otherwise. Output preserves the
// input order of groups and is idempotent.
func DedupLocales(urls []string) []string {
	type group struct {
		best      string
		bestIsEn  bool
		firstSeen int
	}
	groups := make(map[string]*group, len(urls))
	order := make([]string, 0, len(urls))

	for i, raw := range urls {
		key, locale := splitLocale(raw)
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{best: raw, bestIsEn: isEnglishSegment(locale), firstSeen: i}
			order = append(order, key)
			continue
		}
		en := isEnglishSegment(locale)
		switch {
		case en && !g.bestIsEn:
			g.best = raw
			g.bestIsEn = true
		case en == g.bestIsEn && shorterURL(raw, g.best):
			g.best = raw
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].best)
	}
	return out
}
