package driving

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// RetrievalService returns the relevant chunks or procedures for a query.
type RetrievalService interface {
	// Retrieve runs direct lookup, then the keyword and vector paths.
	// An empty or missing store yields an empty result, not an error.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) (*domain.RetrievalResult, error)
}

// AskService answers questions strictly from retrieved context.
type AskService interface {
	// Ask retrieves context for the question and synthesises a grounded answer.
	Ask(ctx context.Context, question string, opts RetrieveOptions) (*AskResult, error)

	// Answer synthesises an answer from already retrieved items.
	Answer(ctx context.Context, question string, items []domain.RetrievedItem) (*domain.Answer, error)
}

// RetrieveOptions overrides configured retrieval settings for one call.
// Zero values fall back to the configured defaults.
type RetrieveOptions struct {
	Collection string
	K          int
	Strategy   domain.SearchStrategy
	FetchK     int
	Lambda     float64
	Mode       domain.RetrievalMode
}

// AskResult pairs the answer with the retrieval it was grounded on.
type AskResult struct {
	Answer    *domain.Answer
	Retrieval *domain.RetrievalResult
}
