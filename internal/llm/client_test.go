package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteSendsPromptAndSystem(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  hello there  "}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", WithBaseURL(srv.URL))
	out, err := c.Complete(context.Background(), "How are you?", "You are Elli.")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("out = %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "How are you?" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestCompleteNoKey(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.Complete(context.Background(), "hi", ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", "m", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "hi", "")
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want HTTPStatusError 429, got %v", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewClient("k", "m", WithBaseURL(srv.URL))
	if _, err := c.Complete(context.Background(), "hi", ""); err == nil {
		t.Fatal("want error on empty choices")
	}
}
