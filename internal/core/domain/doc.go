// Package domain defines the core entities of the QMS retrieval pipeline.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: normalised text plus source metadata
//   - Chunk: a bounded span of a document used as the retrieval unit
//   - VectorRecord: a chunk paired with its embedding
//   - Procedure: a curated ISO 13485 procedure record
//   - RetrievedItem: a chunk or procedure selected for one query
//   - Answer: the grounded response returned to the caller
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
