package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// Ensure Pipeline implements the interface.
var _ driving.AskService = (*Pipeline)(nil)

// Pipeline is the query-time object shared by the CLI, TUI and MCP
// server. It is built once at startup and safe for concurrent questions.
type Pipeline struct {
	Index       *IndexService
	Retriever   *Retriever
	Synthesizer *Synthesizer
	Procedures  *ProcedureService
}

// Ask retrieves context for the question and synthesises a grounded answer.
func (p *Pipeline) Ask(ctx context.Context, question string, opts driving.RetrieveOptions) (*driving.AskResult, error) {
	retrieval, err := p.Retriever.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	answer, err := p.Synthesizer.Answer(ctx, question, retrieval.Items)
	if err != nil {
		return nil, err
	}
	answer.Path = retrieval.Path
	return &driving.AskResult{Answer: answer, Retrieval: retrieval}, nil
}

// Answer synthesises an answer from already retrieved items.
func (p *Pipeline) Answer(ctx context.Context, question string, items []domain.RetrievedItem) (*domain.Answer, error) {
	return p.Synthesizer.Answer(ctx, question, items)
}
