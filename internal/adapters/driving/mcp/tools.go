package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question about the quality management system"`
	K        int    `json:"k,omitempty" jsonschema:"maximum number of context items to retrieve"`
	Mode     string `json:"mode,omitempty" jsonschema:"retrieval mode: keyword, vector or hybrid"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Fallback bool     `json:"fallback"`
	Path     string   `json:"path"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string  `json:"query" jsonschema:"the text to find supporting context for"`
	K        int     `json:"k,omitempty" jsonschema:"maximum number of items to return"`
	Mode     string  `json:"mode,omitempty" jsonschema:"retrieval mode: keyword, vector or hybrid"`
	Strategy string  `json:"strategy,omitempty" jsonschema:"vector ranking: similarity or mmr"`
	FetchK   int     `json:"fetch_k,omitempty" jsonschema:"candidate pool size for mmr"`
	Lambda   float64 `json:"lambda,omitempty" jsonschema:"mmr relevance weight between 0 and 1"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Path  string       `json:"path"`
	Match string       `json:"match,omitempty"`
	Items []ItemOutput `json:"items"`
	Count int          `json:"count"`
}

// ItemOutput represents a single retrieved item.
type ItemOutput struct {
	Kind    string  `json:"kind"`
	Source  string  `json:"source"`
	Score   float64 `json:"score,omitempty"`
	Content string  `json:"content"`
}

// FindProcedureInput is the input schema for the find_procedure tool.
type FindProcedureInput struct {
	Term string `json:"term" jsonschema:"a proc_id such as PROC_8_2_2 or a keyword to search titles, descriptions and keywords"`
}

// FindProcedureOutput is the output schema for the find_procedure tool.
type FindProcedureOutput struct {
	Procedures []ProcedureOutput `json:"procedures"`
	Count      int               `json:"count"`
}

// ProcedureOutput summarises a procedure.
type ProcedureOutput struct {
	ProcID      string `json:"proc_id"`
	Title       string `json:"title"`
	Requirement string `json:"requirement"`
	Description string `json:"description"`
	URI         string `json:"uri"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	if s.ports.Ask != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question strictly from the indexed ISO 13485 documentation, citing sources",
		}, s.handleAsk)
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the procedures and document chunks relevant to a query without generating an answer",
	}, s.handleRetrieve)

	if s.ports.Procedures != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "find_procedure",
			Description: "Look up QMS procedures by proc_id or keyword",
		}, s.handleFindProcedure)
	}
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}

	res, err := s.ports.Ask.Ask(ctx, input.Question, driving.RetrieveOptions{
		K:    input.K,
		Mode: domain.RetrievalMode(input.Mode),
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:   res.Answer.Text,
		Sources:  res.Answer.Sources,
		Fallback: res.Answer.Fallback,
		Path:     string(res.Answer.Path),
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	res, err := s.ports.Retrieval.Retrieve(ctx, input.Query, driving.RetrieveOptions{
		K:        input.K,
		Mode:     domain.RetrievalMode(input.Mode),
		Strategy: domain.SearchStrategy(input.Strategy),
		FetchK:   input.FetchK,
		Lambda:   input.Lambda,
	})
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Path:  string(res.Path),
		Match: res.Match,
		Items: make([]ItemOutput, len(res.Items)),
		Count: len(res.Items),
	}
	for i, item := range res.Items {
		output.Items[i] = ItemOutput{
			Kind:    string(item.Kind),
			Source:  item.Source,
			Score:   item.Score,
			Content: item.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) handleFindProcedure(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FindProcedureInput,
) (*mcp.CallToolResult, FindProcedureOutput, error) {
	term := strings.TrimSpace(input.Term)
	if term == "" {
		return nil, FindProcedureOutput{}, errors.New("term is required")
	}

	var found []domain.Procedure
	if p, err := s.ports.Procedures.Get(term); err == nil {
		found = []domain.Procedure{*p}
	} else {
		found = s.ports.Procedures.Find(term)
	}

	output := FindProcedureOutput{
		Procedures: make([]ProcedureOutput, len(found)),
		Count:      len(found),
	}
	for i, p := range found {
		output.Procedures[i] = ProcedureOutput{
			ProcID:      p.ProcID,
			Title:       p.Title,
			Requirement: p.Requirement,
			Description: p.Description,
			URI:         procedureScheme + p.ProcID,
		}
	}
	return nil, output, nil
}
