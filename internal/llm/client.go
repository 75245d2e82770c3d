// Package llm is the Language Service boundary: a focused client for an
// OpenAI-compatible chat completions endpoint. Callers treat every error,
// including a missing API key, as "service unavailable" and fall back to
// their rule-based paths.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("llm: no API key configured")

// Service is the capability the intake services consume. Complete sends one
// prompt with an optional system instruction and returns the model's text.
type Service interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("llm: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Client talks to one chat-completions endpoint with a bounded timeout.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSpace(baseURL) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:     "https://api.openai.com/v1",
		apiKey:      apiKey,
		model:       model,
		temperature: 0.5,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete sends the prompt and returns the first choice's text, trimmed.
func (c *Client) Complete(ctx context.Context, prompt, system string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, Temperature: c.temperature})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response body: %w", err)
	}
	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("llm: no choices in response")
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}
