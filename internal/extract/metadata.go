package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"llmstxtgen/pkg/types"
)

const (
	authorBioParagraphs = 3
	authorBioMinLen     = 50
	maxSocialLinks      = 10
)

// socialPatterns maps a platform name to the href substrings that identify it.
var socialPatterns = []struct {
	platform string
	patterns []string
}{
	{"twitter", []string{"twitter.com", "x.com"}},
	{"github", []string{"github.com"}},
	{"linkedin", []string{"linkedin.com"}},
	{"email", []string{"mailto:"}},
	{"bluesky", []string{"bsky.app"}},
	{"ko-fi", []string{"ko-fi.com"}},
	{"mastodon", []string{"mastodon"}},
	{"instagram", []string{"instagram.com"}},
	{"youtube", []string{"youtube.com"}},
}

var licenseKeywords = []string{"license", "licensing", "copyright", "cc-by", "creative commons"}

// extractMetadata fills the record's page-level metadata: document language,
// author heading and bio, licensing, and social links. All fields are
// best-effort and may stay empty.
func extractMetadata(doc *goquery.Document, rec *types.PageRecord) {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		rec.Lang = strings.TrimSpace(lang)
	}
	rec.AuthorTitle, rec.AuthorBio = extractAuthor(doc)
	rec.License = extractLicense(doc)
	rec.SocialLinks = extractSocialLinks(doc)
}

// extractAuthor looks for a heading naming a person by role and, when the
// page has a main content region, collects its opening paragraphs as a bio.
func extractAuthor(doc *goquery.Document) (title, bio string) {
	doc.Find("h1,h2,h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeWhitespace(s.Text())
		lower := strings.ToLower(text)
		if strings.Contains(lower, "engineer") || strings.Contains(lower, "developer") || strings.Contains(lower, "author") {
			title = text
			return false
		}
		return true
	})
	if title == "" {
		return "", ""
	}

	var parts []string
	for _, region := range []string{"main p", "article p", ".content p"} {
		doc.Find(region).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= authorBioParagraphs {
				return false
			}
			text := normalizeWhitespace(s.Text())
			if len(text) > authorBioMinLen {
				parts = append(parts, text)
			}
			return true
		})
		if len(parts) > 0 {
			break
		}
	}
	return title, strings.Join(parts, " ")
}

// extractLicense finds licensing information: a license link when one exists,
// else the first text block mentioning a license.
func extractLicense(doc *goquery.Document) string {
	pageText := strings.ToLower(doc.Text())
	mentioned := false
	for _, kw := range licenseKeywords {
		if strings.Contains(pageText, kw) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return ""
	}

	license := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		if strings.Contains(lower, "creativecommons.org") || strings.Contains(lower, "license") {
			license = strings.TrimSpace(href)
			return false
		}
		return true
	})
	if license != "" {
		return license
	}

	doc.Find("p,div,span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeWhitespace(s.Text())
		lower := strings.ToLower(text)
		if strings.Contains(lower, "license") {
			for _, kw := range licenseKeywords {
				if strings.Contains(lower, kw) {
					license = text
					return false
				}
			}
		}
		return true
	})
	return license
}

func extractSocialLinks(doc *goquery.Document) []types.SocialLink {
	var links []types.SocialLink
	seen := make(map[string]struct{})

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		for _, sp := range socialPatterns {
			if !matchesAny(lower, sp.patterns) {
				continue
			}
			if _, dup := seen[href]; dup {
				break
			}
			seen[href] = struct{}{}
			text := normalizeWhitespace(s.Text())
			if text == "" {
				text = titleWord(sp.platform)
			}
			links = append(links, types.SocialLink{Platform: sp.platform, URL: href, Text: text})
			break
		}
		return len(links) < maxSocialLinks
	})
	return links
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
