package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

func chunkItem(key, source, content string) domain.RetrievedItem {
	return domain.RetrievedItem{Kind: domain.ItemChunk, Key: key, Source: source, Content: content}
}

func TestSynthesizer_NoContextReturnsFallback(t *testing.T) {
	llm := &fakeLLM{reply: "should never be used"}
	s := NewSynthesizer(llm, 3, 0.1)

	answer, err := s.Answer(context.Background(), "What is the moon made of?", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.FallbackAnswer, answer.Text)
	assert.True(t, answer.Fallback)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, llm.calls())
}

func TestSynthesizer_NoContextWithoutModel(t *testing.T) {
	s := NewSynthesizer(nil, 3, 0)

	answer, err := s.Answer(context.Background(), "anything", []domain.RetrievedItem{})
	require.NoError(t, err)
	assert.True(t, answer.Fallback)
}

func TestSynthesizer_MissingModel(t *testing.T) {
	s := NewSynthesizer(nil, 3, 0)

	_, err := s.Answer(context.Background(), "q", []domain.RetrievedItem{chunkItem("c1", "sop.pdf", "text")})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSynthesizer_GroundedAnswer(t *testing.T) {
	llm := &fakeLLM{reply: "  1. Corrective action is required.  \n"}
	s := NewSynthesizer(llm, 2, 0.1)

	items := []domain.RetrievedItem{
		chunkItem("c1", "capa.pdf", "Corrective action shall eliminate causes."),
		chunkItem("c2", "training.docx", "Training records are kept."),
		chunkItem("c3", "design.txt", "never stuffed"),
	}
	answer, err := s.Answer(context.Background(), "What is corrective action?", items)
	require.NoError(t, err)

	assert.Equal(t, "1. Corrective action is required.", answer.Text)
	assert.False(t, answer.Fallback)
	assert.Equal(t, []string{"capa.pdf", "training.docx"}, answer.Sources)
	assert.Equal(t, "What is corrective action?", answer.Question)

	require.Equal(t, 1, llm.calls())
	req := llm.requests[0]
	assert.Equal(t, "What is corrective action?", req.User)
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	assert.Contains(t, req.System, domain.FallbackAnswer)
	assert.Contains(t, req.System, "[1] capa.pdf\nCorrective action shall eliminate causes.")
	assert.Contains(t, req.System, "[2] training.docx\nTraining records are kept.")
	assert.NotContains(t, req.System, "never stuffed")
}

func TestSynthesizer_ModelFallbackIsNormalised(t *testing.T) {
	llm := &fakeLLM{reply: "\"" + domain.FallbackAnswer + "\"\n"}
	s := NewSynthesizer(llm, 3, 0)

	answer, err := s.Answer(context.Background(), "Who won the match?", []domain.RetrievedItem{chunkItem("c1", "a", "b")})
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, answer.Text)
	assert.True(t, answer.Fallback)
}

func TestSynthesizer_GenerationError(t *testing.T) {
	s := NewSynthesizer(&fakeLLM{err: errors.New("503")}, 3, 0)

	_, err := s.Answer(context.Background(), "q", []domain.RetrievedItem{chunkItem("c1", "a", "b")})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestSynthesizer_PromptStore(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	s := NewSynthesizer(llm, 3, 0)
	s.SetPromptStore(fakePrompts{driven.PromptGrounding: "Custom rules. Fallback: %s"})

	_, err := s.Answer(context.Background(), "q", []domain.RetrievedItem{chunkItem("c1", "a", "b")})
	require.NoError(t, err)
	assert.Contains(t, llm.requests[0].System, "Custom rules. Fallback: "+domain.FallbackAnswer)

	s.SetPromptStore(fakePrompts{})
	_, err = s.Answer(context.Background(), "q", []domain.RetrievedItem{chunkItem("c1", "a", "b")})
	require.NoError(t, err)
	assert.Contains(t, llm.requests[1].System, "ISO 13485:2016")
}

func TestBuildContext_Procedure(t *testing.T) {
	p := domain.Procedure{
		ProcID:          "PROC_8_2_2",
		Title:           "Complaint Handling",
		Requirement:     "ISO 13485:2016 Clause 8.2.2",
		Description:     "Investigate complaints.",
		KeyRequirements: []string{"Receipt", "Evaluation", "Investigation", "Reporting"},
	}
	items := []domain.RetrievedItem{
		{Kind: domain.ItemProcedure, Key: p.ProcID, Source: p.ProcID, Procedure: &p},
		chunkItem("c1", "sop.pdf", "chunk text"),
	}

	block, sources := BuildContext(items)

	assert.Equal(t, []string{"PROC_8_2_2", "sop.pdf"}, sources)
	assert.Contains(t, block, "[1] PROC_8_2_2\nComplaint Handling\n")
	assert.Contains(t, block, "Key Points: Receipt, Evaluation, Investigation\n\n[2] sop.pdf\nchunk text")
	assert.NotContains(t, block, "Reporting")
}
