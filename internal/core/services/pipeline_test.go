package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

func newTestPipelineService(t *testing.T, llm *fakeLLM, emb *fakeEmbedder) *Pipeline {
	t.Helper()
	idx, _ := builtIndex(t, emb)
	catalogue := loadCatalogue(t)
	return &Pipeline{
		Index:       idx,
		Retriever:   NewRetriever(catalogue, idx, emb, retrievalSettings(domain.RetrievalHybrid), ""),
		Synthesizer: NewSynthesizer(llm, domain.DefaultContextItems, 0),
		Procedures:  NewProcedureService(catalogue),
	}
}

func TestPipeline_AskDirect(t *testing.T) {
	llm := &fakeLLM{reply: "Complaints are received, evaluated and investigated."}
	p := newTestPipelineService(t, llm, &fakeEmbedder{})

	res, err := p.Ask(context.Background(), "Summarise PROC_8_2_2", driving.RetrieveOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.PathDirect, res.Retrieval.Path)
	assert.Equal(t, domain.PathDirect, res.Answer.Path)
	assert.Equal(t, []string{"PROC_8_2_2"}, res.Answer.Sources)
	assert.False(t, res.Answer.Fallback)
	assert.Contains(t, llm.requests[0].System, "Complaint Handling")
}

func TestPipeline_AskHybrid(t *testing.T) {
	llm := &fakeLLM{reply: "Retain records and act on nonconformities."}
	p := newTestPipelineService(t, llm, &fakeEmbedder{})

	res, err := p.Ask(context.Background(), "records retention and corrective action", driving.RetrieveOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.PathHybrid, res.Answer.Path)
	assert.Len(t, res.Answer.Sources, domain.DefaultContextItems)
	assert.Equal(t, "PROC_4_2_5", res.Answer.Sources[0])
}

func TestPipeline_AskOffTopic(t *testing.T) {
	llm := &fakeLLM{reply: "unused"}
	p := newTestPipelineService(t, llm, &fakeEmbedder{})
	p.Retriever = NewRetriever(loadCatalogue(t), nil, nil, retrievalSettings(domain.RetrievalKeyword), "")

	res, err := p.Ask(context.Background(), "Who painted the Mona Lisa?", driving.RetrieveOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.FallbackAnswer, res.Answer.Text)
	assert.True(t, res.Answer.Fallback)
	assert.Equal(t, domain.PathNone, res.Answer.Path)
	assert.Zero(t, llm.calls())
}

func TestPipeline_AskRetrievalError(t *testing.T) {
	emb := &fakeEmbedder{}
	p := newTestPipelineService(t, &fakeLLM{}, emb)
	emb.err = errors.New("down")

	_, err := p.Ask(context.Background(), "corrective action", driving.RetrieveOptions{Mode: domain.RetrievalVector})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestPipeline_Answer(t *testing.T) {
	llm := &fakeLLM{reply: "grounded"}
	p := newTestPipelineService(t, llm, &fakeEmbedder{})

	answer, err := p.Answer(context.Background(), "q", []domain.RetrievedItem{chunkItem("c1", "a.pdf", "text")})
	require.NoError(t, err)
	assert.Equal(t, "grounded", answer.Text)
	assert.Equal(t, []string{"a.pdf"}, answer.Sources)
}
