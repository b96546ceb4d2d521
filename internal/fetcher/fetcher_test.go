package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestFetchHTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "TestAgent" {
			t.Errorf("expected User-Agent header, got %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>hello</body></html>")
	}))
	defer server.Close()

	client := New(Options{UserAgent: "TestAgent"})
	page, err := client.Fetch(context.Background(), mustParse(t, server.URL))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(string(page.Body), "hello") {
		t.Fatalf("unexpected body %q", page.Body)
	}
	if !page.IsHTML() {
		t.Fatal("expected HTML page")
	}
}

func TestFetchRejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"not":"html"}`)
	}))
	defer server.Close()

	client := New(Options{})
	if _, err := client.Fetch(context.Background(), mustParse(t, server.URL)); err == nil {
		t.Fatal("expected non-HTML content type to be rejected")
	}
}

func TestFetchRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Options{})
	if _, err := client.Fetch(context.Background(), mustParse(t, server.URL)); err == nil {
		t.Fatal("expected 500 to be rejected")
	}
}

func TestGetDoesNotGate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "<urlset/>")
	}))
	defer server.Close()

	client := New(Options{})
	page, err := client.Get(context.Background(), mustParse(t, server.URL))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if page.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status passthrough, got %d", page.StatusCode)
	}
}

func TestFetchDecodesGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		io.WriteString(gz, "<html><body>compressed content</body></html>")
		gz.Close()

		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := New(Options{})
	page, err := client.Fetch(context.Background(), mustParse(t, server.URL))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(string(page.Body), "compressed content") {
		t.Fatalf("gzip body not decoded: %q", page.Body)
	}
}

type closeTrackingBody struct {
	io.ReadCloser
	closed *bool
}

func (b closeTrackingBody) Close() error {
	*b.closed = true
	return b.ReadCloser.Close()
}

type closeTrackingTransport struct {
	base   http.RoundTripper
	closed *bool
}

func (t closeTrackingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		resp.Body = closeTrackingBody{ReadCloser: resp.Body, closed: t.closed}
	}
	return resp, err
}

func TestFetchClosesBodyOnBadGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		io.WriteString(w, "this is not a gzip stream")
	}))
	defer server.Close()

	closed := false
	client := New(Options{})
	client.client.Transport = closeTrackingTransport{base: client.client.Transport, closed: &closed}

	if _, err := client.Fetch(context.Background(), mustParse(t, server.URL)); err == nil {
		t.Fatal("expected a corrupt gzip body to be rejected")
	}
	if !closed {
		t.Fatal("response body must be closed on a gzip decode failure")
	}
}

func TestFetchEnforcesBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer server.Close()

	client := New(Options{MaxBodyBytes: 1024})
	if _, err := client.Fetch(context.Background(), mustParse(t, server.URL)); err == nil {
		t.Fatal("expected oversized body to be rejected")
	}
}

func TestFetchRecordsFinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>landed</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(Options{})
	page, err := client.Fetch(context.Background(), mustParse(t, server.URL+"/start"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.FinalURL == nil || page.FinalURL.Path != "/final" {
		t.Fatalf("expected final URL to track the redirect, got %v", page.FinalURL)
	}
}
