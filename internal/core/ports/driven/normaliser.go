package driven

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// Normaliser extracts text from raw source files.
// Each normaliser handles specific MIME types (e.g., PDF, DOCX).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise transforms a raw file into one or more documents.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Normalisation only produces Documents with Content; chunking is handled
// by the PostProcessor pipeline.
type NormaliseResult struct {
	// Documents holds the extracted documents. Most formats yield one;
	// procedure catalogues yield one per procedure.
	Documents []domain.Document
}
