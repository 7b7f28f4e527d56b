// Package judge sends short classification prompts to an LLM and validates
// the JSON verdicts that come back.
package judge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client answers a single prompt with the model's raw text.
type Client interface {
	Judge(ctx context.Context, prompt string) (string, error)
	Model() string
	Stats() *LLMStats
	Close()
}

// Config selects and configures a Client.
type Config struct {
	Provider string // anthropic or gemini
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	// RequestsPerSecond paces calls across every pipeline sharing the
	// client. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// New creates a Client from configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "anthropic", "claude":
		return NewClaudeClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

func newLimiter(cfg Config) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

var codeBlockRe = regexp.MustCompile("(?s)```(?i:json)?\\s*(.*?)\\s*```")

// stripCodeBlock returns the body of the first fenced block, or the trimmed
// input when there is none.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
