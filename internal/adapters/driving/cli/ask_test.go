package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
	assert.Contains(t, askCmd.Long, "fallback")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_Flags(t *testing.T) {
	for _, name := range []string{"k", "mode", "strategy", "fetch-k", "lambda", "collection", "json", "plain"} {
		assert.NotNil(t, askCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "m", askCmd.Flags().Lookup("mode").Shorthand)
}

func TestAskCmd_PrintsAnswerWithSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	svc := askService.(*mockAskService)
	svc.answer = &domain.Answer{
		Text:    "Records are kept for at least the lifetime of the device.",
		Sources: []string{"PROC_4_2_5", "records.pdf"},
		Path:    domain.PathHybrid,
	}
	indexService.(*mockIndexService).manifests[domain.DefaultCollection] = domain.CollectionManifest{Name: domain.DefaultCollection}

	out, err := execute(t, "ask", "how long", "are records kept?", "--k", "3", "--strategy", "MMR", "--lambda", "0.5")

	require.NoError(t, err)
	assert.Equal(t, "how long are records kept?", svc.lastQuestion)
	assert.Equal(t, 3, svc.lastOpts.K)
	assert.Equal(t, domain.StrategyMMR, svc.lastOpts.Strategy)
	assert.InDelta(t, 0.5, svc.lastOpts.Lambda, 1e-9)
	assert.Contains(t, out, "lifetime of the device")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "  - PROC_4_2_5")
	assert.NotContains(t, out, "no vector collection")
}

func TestAskCmd_Fallback(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "what is the weather?", "--mode", "keyword")

	require.NoError(t, err)
	assert.Contains(t, out, domain.FallbackAnswer)
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_WarnsWhenCollectionMissing(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "what is a DHF?")

	require.NoError(t, err)
	assert.Contains(t, out, "no vector collection found")
	assert.Contains(t, out, "qmsrag index build")
}

func TestAskCmd_KeywordModeSkipsIndexWarning(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "complaints", "-m", "keyword")

	require.NoError(t, err)
	assert.NotContains(t, out, "no vector collection found")
}

func TestAskCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	askService.(*mockAskService).answer = &domain.Answer{
		Question: "q",
		Text:     "grounded",
		Sources:  []string{"capa.pdf"},
		Path:     domain.PathVector,
	}

	out, err := execute(t, "ask", "q", "--json")

	require.NoError(t, err)
	var got domain.Answer
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "grounded", got.Text)
	assert.Equal(t, domain.PathVector, got.Path)
}

func TestAskCmd_InvalidMode(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask", "q", "--mode", "fuzzy")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_InvalidStrategy(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask", "q", "--strategy", "random")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	askService.(*mockAskService).err = domain.ErrGeneration

	_, err := execute(t, "ask", "q", "-m", "keyword")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestAskCmd_NoService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	askService = nil

	_, err := execute(t, "ask", "q")

	require.Error(t, err)
	assert.Equal(t, "ask service not configured", err.Error())
}

func TestRetrieveCmd_PrintsItems(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	svc := retrievalService.(*mockRetrievalService)
	svc.result = &domain.RetrievalResult{
		Query: "PROC_8_2_2",
		Path:  domain.PathDirect,
		Match: "PROC_8_2_2",
		Items: []domain.RetrievedItem{
			{Kind: domain.ItemProcedure, Source: "PROC_8_2_2", Content: "Complaint   Handling\n\nReceive complaints."},
			{Kind: domain.ItemChunk, Source: "complaints.pdf", Content: "Complaints are logged.", Score: 0.8123},
		},
	}

	out, err := execute(t, "retrieve", "PROC_8_2_2", "--fetch-k", "12")

	require.NoError(t, err)
	assert.Equal(t, 12, svc.lastOpts.FetchK)
	assert.Contains(t, out, "Path: direct (match: PROC_8_2_2)")
	assert.Contains(t, out, "Results: 2")
	assert.Contains(t, out, "1. [procedure] PROC_8_2_2")
	assert.Contains(t, out, "Complaint Handling Receive complaints.")
	assert.Contains(t, out, "Score: 0.812")
}

func TestRetrieveCmd_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "retrieve", "nothing", "-m", "keyword")

	require.NoError(t, err)
	assert.Contains(t, out, "No relevant context found.")
}

func TestRetrieveCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	retrievalService.(*mockRetrievalService).result = &domain.RetrievalResult{
		Query: "capa",
		Path:  domain.PathKeyword,
		Items: []domain.RetrievedItem{{Kind: domain.ItemChunk, Key: "c1", Source: "capa.pdf", Content: "x"}},
	}

	out, err := execute(t, "retrieve", "capa", "--json")

	require.NoError(t, err)
	var got domain.RetrievalResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.PathKeyword, got.Path)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "capa.pdf", got.Items[0].Source)
}

func TestRetrieveCmd_NoService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, err := execute(t, "retrieve", "q")

	assert.EqualError(t, err, "retrieval service not configured")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 10))
	assert.Equal(t, "abcdefg...", snippet("abcdefghijklmnop", 10))
	assert.Equal(t, "äöüäöüä...", snippet("äöüäöüäöüäöü", 10))
}

func TestAnswerMarkdown(t *testing.T) {
	assert.Equal(t, domain.FallbackAnswer, answerMarkdown(nil))
	assert.Equal(t, "plain", answerMarkdown(&domain.Answer{Text: "plain"}))
	assert.Equal(t, "text\n\nSources:\n  - a.pdf",
		answerMarkdown(&domain.Answer{Text: "text", Sources: []string{"a.pdf"}}))
}

func TestIndexHint(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "status", "--collection", "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexNotFound))
	assert.Contains(t, out, "qmsrag index build")
}
