package urlutil

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL to its comparison key: lowercased
// scheme+host+path with fragment, query, and trailing slash removed.
// Idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return NormalizeURL(u)
}

// NormalizeURL canonicalizes an already-parsed URL.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	key := scheme + "://" + host + u.EscapedPath()
	if strings.HasSuffix(key, "/") && len(key) > 1 {
		key = strings.TrimSuffix(key, "/")
	}
	return key
}

// SameDomain reports whether two URLs share a host. Comparison is
// case-insensitive; anything unparsable is out of scope.
func SameDomain(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

// SectionKey extracts the first path segment for dominance tracking,
// "/" for the root.
func SectionKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "/"
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "/"
	}
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	return "/" + path
}

// resourcePatterns mark URLs that point at non-page resources or
// non-HTTP schemes. Substring match against the lowercased URL.
var resourcePatterns = []string{
	"mailto:", "tel:", "javascript:", "data:", "blob:",
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg",
	".css", ".js", ".json", ".xml", ".zip", ".tar",
}

// IsResourceURL reports whether a URL should be skipped as a non-page asset.
func IsResourceURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, pat := range resourcePatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}
