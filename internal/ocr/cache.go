package ocr

import (
	"context"
	"log/slog"
)

// CacheStore persists raw analysis payloads keyed by document id.
type CacheStore interface {
	LoadCache(docID string) ([]byte, bool, error)
	SaveCache(docID string, data []byte) error
}

// Cache wraps a Provider so a document is only analyzed once. Entries are
// keyed by document id, not by content.
type Cache struct {
	next  Provider
	store CacheStore
	log   *slog.Logger
}

func NewCache(next Provider, store CacheStore, log *slog.Logger) *Cache {
	return &Cache{next: next, store: store, log: log}
}

func (c *Cache) Analyze(ctx context.Context, docID string, pdf []byte) (*Result, error) {
	raw, ok, err := c.store.LoadCache(docID)
	if err != nil {
		c.log.Warn("ocr cache read failed", "doc_id", docID, "error", err)
	}
	if ok {
		res, err := Decode(raw)
		if err == nil {
			c.log.Info("ocr cache hit", "doc_id", docID)
			res.Cached = true
			return res, nil
		}
		c.log.Warn("ocr cache entry unreadable, re-running", "doc_id", docID, "error", err)
	}

	res, err := c.next.Analyze(ctx, docID, pdf)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveCache(docID, res.Raw); err != nil {
		c.log.Warn("ocr cache write failed", "doc_id", docID, "error", err)
	}
	return res, nil
}
