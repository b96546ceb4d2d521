package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"llmstxtgen/internal/monitor"
	"llmstxtgen/internal/storage"
)

// Server exposes the HTTP API for registering websites and fetching their
// generated llms.txt documents.
type Server struct {
	store    *storage.Store
	crawl    monitor.CrawlFunc
	generate monitor.GenerateFunc
	logger   *slog.Logger
	mux      *http.ServeMux

	// generationTimeout bounds the background crawl kicked off by a
	// website registration.
	generationTimeout time.Duration
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(store *storage.Store, crawl monitor.CrawlFunc, generate monitor.GenerateFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:             store,
		crawl:             crawl,
		generate:          generate,
		logger:            logger,
		mux:               http.NewServeMux(),
		generationTimeout: 10 * time.Minute,
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/websites", s.handleWebsites)
	s.mux.HandleFunc("/api/websites/", s.handleWebsiteByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleWebsites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listWebsites(w, r)
	case http.MethodPost:
		s.registerWebsite(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleWebsiteByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/websites/"), "/")
	if trimmed == "" {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(trimmed, "/")
	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		s.getWebsite(w, r, id)
		return
	}

	switch parts[1] {
	case "llms.txt":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		s.getDocument(w, r, id)
	case "changes":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		s.getChanges(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) registerWebsite(w http.ResponseWriter, r *http.Request) {
	var req RegisterWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	site, err := s.store.UpsertWebsite(r.Context(), req.URL, req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	go s.generateFor(site)

	writeJSON(w, http.StatusAccepted, websiteResponse(site))
}

// generateFor crawls the site and stores pages plus a fresh document. Runs
// detached from the registration request.
func (s *Server) generateFor(site *storage.Website) {
	ctx, cancel := context.WithTimeout(context.Background(), s.generationTimeout)
	defer cancel()

	pages, err := s.crawl(ctx, site.URL)
	if err != nil {
		s.logger.Error("crawl failed", "url", site.URL, "error", err)
		return
	}
	if err := s.store.ReplacePages(ctx, site.ID, pages); err != nil {
		s.logger.Error("store pages failed", "url", site.URL, "error", err)
		return
	}
	content, err := s.generate(ctx, pages)
	if err != nil {
		s.logger.Error("generation failed", "url", site.URL, "error", err)
		return
	}
	if _, err := s.store.SaveGeneration(ctx, site.ID, content, len(pages)); err != nil {
		s.logger.Error("save generation failed", "url", site.URL, "error", err)
		return
	}
	s.logger.Info("document generated", "url", site.URL, "pages", len(pages))
}

func (s *Server) listWebsites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.Websites(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]WebsiteResponse, 0, len(sites))
	for _, site := range sites {
		out = append(out, websiteResponse(site))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getWebsite(w http.ResponseWriter, r *http.Request, id string) {
	site, err := s.store.Website(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, websiteResponse(site))
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	gen, err := s.store.LatestGeneration(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "no document generated yet", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, gen.Content)
}

func (s *Server) getChanges(w http.ResponseWriter, r *http.Request, id string) {
	changes, err := s.store.Changes(r.Context(), id, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]ChangeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, ChangeResponse{
			Type:       c.ChangeType,
			PageURL:    c.PageURL,
			Detail:     c.Detail,
			DetectedAt: c.DetectedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
