// Package cache provides embedding caches and a decorator that consults
// them before calling the embedding service.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/logger"
)

// Ensure Embedder implements the interface.
var _ driven.EmbeddingService = (*Embedder)(nil)

// Key derives the cache key for text embedded by model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// Embedder serves single-text embeddings from a cache. Batch calls bypass
// the cache since they only happen during builds.
type Embedder struct {
	next  driven.EmbeddingService
	cache driven.EmbeddingCache
}

// WrapEmbedder decorates next with cache.
func WrapEmbedder(next driven.EmbeddingService, cache driven.EmbeddingCache) *Embedder {
	return &Embedder{next: next, cache: cache}
}

// Embed returns a cached vector or embeds and caches text.
// Cache failures are logged and never fail the call.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(e.next.ModelName(), text)

	v, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("embedding cache get: %v", err)
	}
	if ok && len(v) > 0 {
		logger.Debug("embedding cache hit")
		return v, nil
	}

	v, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, key, v); err != nil {
		logger.Warn("embedding cache set: %v", err)
	}
	return v, nil
}

// EmbedBatch delegates to the wrapped service.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.next.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int { return e.next.Dimensions() }

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string { return e.next.ModelName() }

// Ping validates the wrapped service.
func (e *Embedder) Ping(ctx context.Context) error { return e.next.Ping(ctx) }

// Close closes the wrapped service and the cache.
func (e *Embedder) Close() error {
	err := e.next.Close()
	if cerr := e.cache.Close(); err == nil {
		err = cerr
	}
	return err
}
