package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultClassifierBase  = "https://api.openai.com/v1"
	defaultClassifierModel = "gpt-4o-mini"
	classifierPreviewBound = 500
)

// ClassifierOptions configures the chat-completion classifier.
type ClassifierOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMClassifier categorizes pages through an OpenAI-compatible chat
// completions endpoint. Responses outside the known category set degrade to
// "other"; transport failures surface as errors so the caller falls back to
// its keyword heuristics.
type LLMClassifier struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewLLMClassifier constructs a classifier client.
func NewLLMClassifier(opts ClassifierOptions) *LLMClassifier {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultClassifierBase
	}
	if opts.Model == "" {
		opts.Model = defaultClassifierModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &LLMClassifier{
		client:  &http.Client{Timeout: opts.Timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		model:   opts.Model,
	}
}

// ClassifierFromEnv builds a classifier from the OPENAI_API_KEY environment
// variable. A missing key disables classification rather than failing: the
// analyzer's keyword heuristics remain fully functional without it.
func ClassifierFromEnv(logger *slog.Logger) Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		logger.Warn("OPENAI_API_KEY not set, falling back to keyword classification")
		return nil
	}
	if !strings.HasPrefix(key, "sk-") {
		logger.Warn("OPENAI_API_KEY format appears invalid")
	}
	return NewLLMClassifier(ClassifierOptions{APIKey: key})
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Categorize asks the model to pick one category for the page.
func (c *LLMClassifier) Categorize(ctx context.Context, pageURL, title, description, preview string) (string, error) {
	if len(preview) > classifierPreviewBound {
		preview = preview[:classifierPreviewBound]
	}
	categories := append(sortedCategories(), "other")

	prompt := fmt.Sprintf(
		"Categorize this webpage into one of these categories: %s\n\nURL: %s\nTitle: %s\nDescription: %s\nContent preview: %s\n\nReturn only the category name, nothing else.",
		strings.Join(categories, ", "), pageURL, title, description, preview)

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant that categorizes web pages. Return only the category name."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   20,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("classify request status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode classify response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("classify response has no choices")
	}

	category := strings.ToLower(strings.TrimSpace(parsed.Choices[0].Message.Content))
	if category == "other" {
		return "other", nil
	}
	if _, ok := categoryKeywords[category]; !ok {
		return "other", nil
	}
	return category, nil
}
