package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Failures are reported to callers, which wrap them with domain.ErrEmbedding.
//
// Implementations:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	// It fails as a whole if any text cannot be embedded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCache stores query embeddings keyed by model and text.
type EmbeddingCache interface {
	// Get returns the cached vector and true, or false on a miss.
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Set stores a vector.
	Set(ctx context.Context, key string, vector []float32) error

	// Close releases resources.
	Close() error
}
