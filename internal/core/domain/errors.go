package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// Callers wrap them with context and test with errors.Is.
var (
	// ErrConfiguration indicates invalid sizing, missing credentials or paths,
	// or a malformed procedure catalogue. It is fatal and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbedding indicates the embedding collaborator failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the language model collaborator failed.
	ErrGeneration = errors.New("generation failed")

	// ErrIndexNotFound indicates a persisted collection was expected but is absent.
	// Recover by building the collection.
	ErrIndexNotFound = errors.New("index not found")

	// ErrNotFound indicates an explicitly requested entity does not exist.
	// Retrieval never returns it: an empty result means nothing relevant was found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles a document type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// StatusError is a non-2xx reply from a remote model provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Message)
}

// Temporary reports whether the status is worth retrying: request timeout,
// rate limiting and server-side failures.
func (e *StatusError) Temporary() bool {
	return e.Code == 408 || e.Code == 429 || e.Code >= 500
}
