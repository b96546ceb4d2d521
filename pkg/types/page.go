package types

import (
	"net/url"
	"strings"
	"time"
)

// Page represents a fetched HTTP response before extraction.
type Page struct {
	URL         *url.URL
	FinalURL    *url.URL
	Body        []byte
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}

// IsHTML reports whether the response carried an HTML content type.
func (p *Page) IsHTML() bool {
	if p == nil {
		return false
	}
	ct := strings.ToLower(p.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// PageRecord is the extraction result for one crawled page. Records are
// immutable once built; the crawl output is the ordered list of them in
// fetch order.
type PageRecord struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	BestDescription string   `json:"best_description,omitempty"`
	CanonicalURL    string   `json:"canonical_url,omitempty"`
	OGURL           string   `json:"og_url,omitempty"`
	StructuredText  string   `json:"structured_text,omitempty"`
	StructuredURLs  []string `json:"structured_urls,omitempty"`
	MainText        string   `json:"main_text,omitempty"`
	VisibleTextHash string   `json:"visible_text_hash"`
	VisibleTextLen  int      `json:"visible_text_len"`
	VisibleSnippet  string   `json:"-"`
	RawText         string   `json:"raw_text,omitempty"`
	ContentHash     string   `json:"content_hash"`
	IsSoft404       bool     `json:"is_soft404,omitempty"`

	Lang        string       `json:"lang,omitempty"`
	AuthorTitle string       `json:"author_title,omitempty"`
	AuthorBio   string       `json:"author_bio,omitempty"`
	License     string       `json:"license,omitempty"`
	SocialLinks []SocialLink `json:"social_links,omitempty"`

	Depth     int       `json:"depth"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SocialLink is a contact or social-profile link found on a page.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
}

// HomepageSignature is a reduced snapshot of the first successfully fetched
// page of a run. It is the comparison baseline for every later soft-404
// check and is never overwritten within a run.
type HomepageSignature struct {
	URL             string
	Title           string
	BestDescription string
	CanonicalURL    string
	OGURL           string
	VisibleTextHash string
	VisibleTextLen  int
}

// SignatureOf builds the homepage signature from a page record.
func SignatureOf(rec *PageRecord) *HomepageSignature {
	if rec == nil {
		return nil
	}
	return &HomepageSignature{
		URL:             rec.URL,
		Title:           rec.Title,
		BestDescription: rec.BestDescription,
		CanonicalURL:    rec.CanonicalURL,
		OGURL:           rec.OGURL,
		VisibleTextHash: rec.VisibleTextHash,
		VisibleTextLen:  rec.VisibleTextLen,
	}
}
