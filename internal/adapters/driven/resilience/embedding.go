package resilience

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.EmbeddingService = (*Embedder)(nil)

// Embedder retries embedding calls under a Policy.
type Embedder struct {
	next   driven.EmbeddingService
	policy *Policy
}

// WrapEmbedder decorates next with policy.
func WrapEmbedder(next driven.EmbeddingService, policy *Policy) *Embedder {
	return &Embedder{next: next, policy: policy}
}

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.policy.Do(ctx, "embed", func(ctx context.Context) error {
		v, err := e.next.Embed(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// EmbedBatch retries the whole batch; partial results are never returned.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.policy.Do(ctx, "embed batch", func(ctx context.Context) error {
		v, err := e.next.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int { return e.next.Dimensions() }

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string { return e.next.ModelName() }

// Ping is not retried so that health checks report the first failure.
func (e *Embedder) Ping(ctx context.Context) error { return e.next.Ping(ctx) }

// Close releases resources.
func (e *Embedder) Close() error { return e.next.Close() }
