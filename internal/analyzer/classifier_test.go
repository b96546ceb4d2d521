package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"llmstxtgen/pkg/types"
)

func classifierServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
}

func testClassifier(srv *httptest.Server) *LLMClassifier {
	return NewLLMClassifier(ClassifierOptions{APIKey: "sk-test", BaseURL: srv.URL})
}

func TestLLMClassifierCategorize(t *testing.T) {
	srv := classifierServer(t, " Blog ")
	defer srv.Close()

	cat, err := testClassifier(srv).Categorize(context.Background(), "https://example.com/p", "Post", "", "body text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat != "blog" {
		t.Fatalf("expected blog, got %q", cat)
	}
}

func TestLLMClassifierUnknownCategoryDegrades(t *testing.T) {
	srv := classifierServer(t, "marketing fluff")
	defer srv.Close()

	cat, err := testClassifier(srv).Categorize(context.Background(), "https://example.com/p", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat != "other" {
		t.Fatalf("expected other for an unknown category, got %q", cat)
	}
}

func TestLLMClassifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClassifier(srv).Categorize(context.Background(), "https://example.com/p", "", "", "")
	if err == nil {
		t.Fatal("expected an error on non-200 status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected the status in the error, got %v", err)
	}
}

func TestClassifierFromEnvWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if cls := ClassifierFromEnv(nil); cls != nil {
		t.Fatal("expected a nil classifier without an API key")
	}
}

func TestAnalyzerFallsBackWhenClassifierFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(testClassifier(srv))
	rec := &types.PageRecord{URL: "https://example.com/pricing", Title: "Pricing Plans"}
	if got := a.Categorize(context.Background(), rec); got != "pricing" {
		t.Fatalf("expected keyword fallback to pricing, got %q", got)
	}
}
