package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAzureAPIVersion = "2024-11-30"
	DefaultAzureModel      = "prebuilt-layout"
	DefaultPollInterval    = 2 * time.Second
	DefaultPollTimeout     = 5 * time.Minute
)

// ErrPollTimeout is returned when an analysis does not finish within the
// poll timeout. It is not retryable: resubmitting would start a new paid
// analysis.
var ErrPollTimeout = errors.New("analysis timed out")

// AzureConfig holds Document Intelligence connection settings.
type AzureConfig struct {
	Endpoint     string
	APIKey       string
	APIVersion   string
	Model        string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// AzureClient calls the Document Intelligence REST API: one analyze
// submission followed by polling of the returned operation.
type AzureClient struct {
	cfg        AzureConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewAzureClient(cfg AzureConfig, log *slog.Logger) *AzureClient {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAzureModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &AzureClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

type operationResponse struct {
	Status        string          `json:"status"`
	AnalyzeResult json.RawMessage `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits the PDF and blocks until the analysis finishes, fails,
// or the poll timeout elapses.
func (c *AzureClient) Analyze(ctx context.Context, docID string, pdf []byte) (*Result, error) {
	if c.cfg.Endpoint == "" || c.cfg.APIKey == "" {
		return nil, fmt.Errorf("azure document intelligence not configured")
	}
	log := c.log.With("doc_id", docID)

	opURL, err := c.submit(ctx, pdf)
	if err != nil {
		return nil, fmt.Errorf("submit analysis: %w", err)
	}
	log.Info("ocr submitted", "operation", opURL)

	raw, err := c.poll(ctx, opURL, log)
	if err != nil {
		return nil, fmt.Errorf("poll analysis: %w", err)
	}
	res, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	log.Info("ocr completed",
		"pages", len(res.Analysis.Pages),
		"paragraphs", len(res.Analysis.Paragraphs),
		"tables", len(res.Analysis.Tables),
		"sections", len(res.Analysis.Sections),
	)
	return res, nil
}

func (c *AzureClient) submit(ctx context.Context, pdf []byte) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.cfg.Endpoint, c.cfg.Model, c.cfg.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(pdf))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		opURL := resp.Header.Get("Operation-Location")
		if opURL == "" {
			return "", fmt.Errorf("missing Operation-Location header")
		}
		return opURL, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return "", fmt.Errorf("azure api status %d: %s", resp.StatusCode, truncate(string(body), 200))
}

// poll waits for the operation to finish. Throttled or failing poll
// responses keep polling the same operation until the deadline.
func (c *AzureClient) poll(ctx context.Context, opURL string, log *slog.Logger) (json.RawMessage, error) {
	deadline := time.After(c.cfg.PollTimeout)
	wait := c.cfg.PollInterval
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("%w after %s", ErrPollTimeout, c.cfg.PollTimeout)
		case <-time.After(wait):
		}

		op, err := c.fetchOperation(ctx, opURL)
		var re *RetryableError
		if errors.As(err, &re) {
			wait = max(re.RetryAfter, c.cfg.PollInterval)
			log.Warn("ocr poll throttled, waiting", "status", re.StatusCode, "wait", wait)
			continue
		}
		if err != nil {
			return nil, err
		}
		wait = c.cfg.PollInterval

		switch strings.ToLower(op.Status) {
		case "succeeded":
			if len(op.AnalyzeResult) == 0 {
				return nil, fmt.Errorf("succeeded without analyzeResult")
			}
			return op.AnalyzeResult, nil
		case "failed", "canceled":
			if op.Error != nil {
				return nil, fmt.Errorf("analysis %s: %s: %s", op.Status, op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("analysis %s", op.Status)
		}
	}
}

func (c *AzureClient) fetchOperation(ctx context.Context, opURL string) (*operationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azure api status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	return &op, nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Close releases resources.
func (c *AzureClient) Close() {
	c.httpClient.CloseIdleConnections()
}
