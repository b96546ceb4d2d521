package api

import (
	"time"

	"llmstxtgen/internal/storage"
)

// RegisterWebsiteRequest is the payload for POST /api/websites.
type RegisterWebsiteRequest struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// WebsiteResponse is the API shape of a registered website.
type WebsiteResponse struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Name            string     `json:"name,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastCrawledAt   *time.Time `json:"last_crawled_at,omitempty"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
}

// ChangeResponse is one change-log entry.
type ChangeResponse struct {
	Type       string    `json:"type"`
	PageURL    string    `json:"page_url,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

func websiteResponse(site *storage.Website) WebsiteResponse {
	out := WebsiteResponse{
		ID:        site.ID,
		URL:       site.URL,
		Name:      site.Name,
		CreatedAt: site.CreatedAt,
	}
	if site.LastCrawledAt.Valid {
		t := site.LastCrawledAt.Time
		out.LastCrawledAt = &t
	}
	if site.LastGeneratedAt.Valid {
		t := site.LastGeneratedAt.Time
		out.LastGeneratedAt = &t
	}
	return out
}
