package mcp

import (
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval finds relevant procedures and chunks.
	Retrieval driving.RetrievalService

	// Ask answers questions from retrieved context. Optional: without it
	// the ask tool is not registered.
	Ask driving.AskService

	// Procedures exposes the procedure catalogue. Optional.
	Procedures driving.ProcedureService

	// Index lists persisted collections. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
