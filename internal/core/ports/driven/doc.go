// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: maps text to fixed-length vectors
//   - LLMService: completes a system instruction plus user message
//   - CollectionStore: persists vector collections by name
//   - Normaliser / NormaliserRegistry: extracts text from source files
//   - PostProcessor: turns a document into chunks
//   - ConfigStore, PromptStore: configuration and prompt templates
//
// # Optional Interfaces
//
// These can be nil and the application degrades gracefully:
//
//   - ProcedureStore: structured procedure catalogue. Without it, direct
//     lookup and the keyword path contribute nothing.
//   - EmbeddingCache: caches query embeddings.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
