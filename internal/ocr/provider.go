// Package ocr runs layout analysis on PDFs and caches the results.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Provider turns raw PDF bytes into a layout analysis.
type Provider interface {
	Analyze(ctx context.Context, docID string, pdf []byte) (*Result, error)
}

// Result pairs the decoded analysis with the provider's raw JSON, which is
// persisted unchanged for audit.
type Result struct {
	Analysis *AnalyzeResult
	Raw      json.RawMessage
	Cached   bool
}

// Decode builds a Result from a raw analyzeResult payload.
func Decode(raw []byte) (*Result, error) {
	var ar AnalyzeResult
	if err := json.Unmarshal(raw, &ar); err != nil {
		return nil, fmt.Errorf("decode analyze result: %w", err)
	}
	return &Result{Analysis: &ar, Raw: json.RawMessage(raw)}, nil
}

// RetryableError indicates a transient provider failure (throttling or a
// server-side error) that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("ocr retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
