package driven

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// PostProcessor turns a document into chunks or refines existing chunks.
// PostProcessors are chained in a pipeline (chunking, metadata stamping).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A creating processor (the chunker) receives nil and returns new chunks;
	// a refining processor receives and returns chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
