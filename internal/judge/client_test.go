package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		wantErr  bool
	}{
		{"anthropic", DefaultAnthropicModel, false},
		{"claude", DefaultAnthropicModel, false},
		{"gemini", DefaultGeminiModel, false},
		{"", "", true},
		{"openai", "", true},
	}
	for _, tt := range tests {
		c, err := New(Config{Provider: tt.provider})
		if tt.wantErr {
			if err == nil {
				t.Errorf("provider %q: expected error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Fatalf("provider %q: unexpected error: %v", tt.provider, err)
		}
		if c.Model() != tt.model {
			t.Errorf("provider %q: expected model %q, got %q", tt.provider, tt.model, c.Model())
		}
		c.Close()
	}
}

func TestClaudeClientJudge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "is it?" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"decision\":\"BELONGS\"}"}]}`))
	}))
	defer srv.Close()

	c := NewClaudeClient(Config{APIKey: "key", BaseURL: srv.URL})
	got, err := c.Judge(context.Background(), "is it?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"decision":"BELONGS"}` {
		t.Errorf("unexpected answer %q", got)
	}
	if snap := c.Stats().Snapshot(); snap.Count != 1 || snap.Failures != 0 {
		t.Errorf("expected one successful sample, got %+v", snap)
	}
}

func TestClaudeClientRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	c := NewClaudeClient(Config{APIKey: "key", BaseURL: srv.URL})
	_, err := c.Judge(context.Background(), "p")
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if re.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", re.StatusCode)
	}
	if snap := c.Stats().Snapshot(); snap.Failures != 1 {
		t.Errorf("expected one failure, got %+v", snap)
	}
}

func TestClaudeClientBadRequestNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClaudeClient(Config{APIKey: "key", BaseURL: srv.URL})
	_, err := c.Judge(context.Background(), "p")
	var re *RetryableError
	if err == nil || errors.As(err, &re) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestGeminiClientJudge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gkey" {
			t.Errorf("missing bearer token")
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format")
		}
		if req.Model != "gemini-test" {
			t.Errorf("expected model gemini-test, got %s", req.Model)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"relationship\":\"CHILD\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{APIKey: "gkey", BaseURL: srv.URL, Model: "gemini-test"})
	got, err := c.Judge(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := ParseVerdict(got, "relationship", []string{"SIBLING", "CHILD"})
	if err != nil {
		t.Fatalf("parse verdict: %v", err)
	}
	if v.Value != "CHILD" {
		t.Errorf("expected CHILD, got %s", v.Value)
	}
}

func TestGeminiClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{BaseURL: srv.URL})
	if _, err := c.Judge(context.Background(), "p"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestLimiterHonorsContext(t *testing.T) {
	c := NewClaudeClient(Config{BaseURL: "http://127.0.0.1:0", RequestsPerSecond: 0.001, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Judge(ctx, "p"); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
