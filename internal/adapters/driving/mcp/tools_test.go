package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns grounded answer", func(t *testing.T) {
		ask := &mockAskService{answer: &domain.Answer{
			Text:    "Complaints are investigated.",
			Sources: []string{"PROC_8_2_2"},
			Path:    domain.PathDirect,
		}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Ask: ask})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "PROC_8_2_2?", K: 2, Mode: "keyword"})
		require.NoError(t, err)

		assert.Equal(t, "Complaints are investigated.", output.Answer)
		assert.Equal(t, []string{"PROC_8_2_2"}, output.Sources)
		assert.Equal(t, "direct", output.Path)
		assert.False(t, output.Fallback)
		assert.Equal(t, "PROC_8_2_2?", ask.question)
		assert.Equal(t, 2, ask.opts.K)
		assert.Equal(t, domain.RetrievalKeyword, ask.opts.Mode)
	})

	t.Run("reports fallback", func(t *testing.T) {
		ask := &mockAskService{answer: &domain.Answer{Text: domain.FallbackAnswer, Fallback: true, Sources: []string{}}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Ask: ask})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "weather?"})
		require.NoError(t, err)
		assert.True(t, output.Fallback)
		assert.Equal(t, domain.FallbackAnswer, output.Answer)
	})

	t.Run("empty question", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Ask: &mockAskService{}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "  "})
		assert.Error(t, err)
	})

	t.Run("propagates errors", func(t *testing.T) {
		ask := &mockAskService{err: domain.ErrGeneration}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Ask: ask})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, domain.ErrGeneration)
	})
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns items", func(t *testing.T) {
		retrieval := &mockRetrievalService{result: &domain.RetrievalResult{
			Path:  domain.PathHybrid,
			Items: []domain.RetrievedItem{
				{Kind: domain.ItemProcedure, Key: "PROC_4_2_5", Source: "PROC_4_2_5", Content: "Record Control"},
				{Kind: domain.ItemChunk, Key: "c1", Source: "/docs/capa.pdf", Content: "Corrective action", Score: 0.82},
			},
		}}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{
			Query:    "records",
			K:        5,
			Strategy: "mmr",
			FetchK:   30,
			Lambda:   0.4,
		})
		require.NoError(t, err)

		assert.Equal(t, "hybrid", output.Path)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "procedure", output.Items[0].Kind)
		assert.Equal(t, "/docs/capa.pdf", output.Items[1].Source)
		assert.InDelta(t, 0.82, output.Items[1].Score, 1e-9)
		assert.Equal(t, domain.StrategyMMR, retrieval.opts.Strategy)
		assert.Equal(t, 30, retrieval.opts.FetchK)
		assert.InDelta(t, 0.4, retrieval.opts.Lambda, 1e-9)
	})

	t.Run("empty result", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "nothing"})
		require.NoError(t, err)
		assert.Equal(t, "none", output.Path)
		assert.Zero(t, output.Count)
		assert.NotNil(t, output.Items)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{err: errors.New("embedding down")}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding down")
	})
}

func TestServer_handleFindProcedure(t *testing.T) {
	ctx := context.Background()
	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Procedures: testCatalogue()})
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		_, output, err := server.handleFindProcedure(ctx, nil, FindProcedureInput{Term: "proc_8_2_2"})
		require.NoError(t, err)
		require.Equal(t, 1, output.Count)
		assert.Equal(t, "PROC_8_2_2", output.Procedures[0].ProcID)
		assert.Equal(t, "procedure://PROC_8_2_2", output.Procedures[0].URI)
	})

	t.Run("by keyword", func(t *testing.T) {
		_, output, err := server.handleFindProcedure(ctx, nil, FindProcedureInput{Term: "MANUAL"})
		require.NoError(t, err)
		require.Equal(t, 1, output.Count)
		assert.Equal(t, "Quality Manual", output.Procedures[0].Title)
	})

	t.Run("no match", func(t *testing.T) {
		_, output, err := server.handleFindProcedure(ctx, nil, FindProcedureInput{Term: "sterilisation"})
		require.NoError(t, err)
		assert.Zero(t, output.Count)
	})

	t.Run("empty term", func(t *testing.T) {
		_, _, err := server.handleFindProcedure(ctx, nil, FindProcedureInput{})
		assert.Error(t, err)
	})
}
