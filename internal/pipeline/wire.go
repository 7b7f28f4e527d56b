package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/obaidtambo/doc-struct/internal/config"
	"github.com/obaidtambo/doc-struct/internal/hierarchy"
	"github.com/obaidtambo/doc-struct/internal/judge"
	"github.com/obaidtambo/doc-struct/internal/ocr"
)

// NewProvider returns the Azure client, wrapped in the per-document cache
// unless caching is disabled.
func NewProvider(cfg config.Config, cache ocr.CacheStore, log *slog.Logger) ocr.Provider {
	var p ocr.Provider = ocr.NewAzureClient(cfg.Azure(), log.With("component", "ocr"))
	if cfg.OCRCacheDisabled || cache == nil {
		return p
	}
	return ocr.NewCache(p, cache, log.With("component", "ocr_cache"))
}

// NewCorrector builds the oracle client and the hierarchy corrector on top
// of it. Both are nil when correction is disabled. The caller closes the
// client.
func NewCorrector(cfg config.Config, log *slog.Logger) (Corrector, judge.Client, error) {
	if !cfg.CorrectionEnabled {
		return nil, nil, nil
	}
	if err := cfg.RequireOracle(); err != nil {
		return nil, nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, nil, err
	}
	client, err := judge.New(cfg.Oracle())
	if err != nil {
		return nil, nil, fmt.Errorf("oracle client: %w", err)
	}
	corrector := hierarchy.NewCorrector(client, log.With("component", "hierarchy"), hierarchy.Options{
		MaxAttempts: cfg.OracleAttempts,
		RetryDelay:  cfg.OracleRetryDelay,
		Policy:      policy,
	})
	return corrector, client, nil
}
