package domain

import "time"

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "rag_collection"

// VectorRecord pairs a chunk with its embedding.
// All records of one collection share the same dimensionality.
type VectorRecord struct {
	Chunk  Chunk
	Vector []float32
}

// CollectionManifest describes a persisted collection.
type CollectionManifest struct {
	// Name is the collection key.
	Name string `json:"name"`

	// EmbeddingModel is the model that produced the vectors.
	EmbeddingModel string `json:"embedding_model"`

	// Dimensions is the vector size shared by every record.
	Dimensions int `json:"dimensions"`

	// ChunkCount is the number of records.
	ChunkCount int `json:"chunk_count"`

	// DocumentCount is the number of source documents.
	DocumentCount int `json:"document_count"`

	// Sources lists the ingested source paths in build order.
	Sources []string `json:"sources"`

	// SourceDigest is a SHA-256 over the ingested source bytes.
	// It is reported by status only and never triggers a rebuild.
	SourceDigest string `json:"source_digest"`

	// CreatedAt is when the build completed.
	CreatedAt time.Time `json:"created_at"`
}
