package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/logger"
	"github.com/custodia-labs/qms-rag/internal/procedures"
)

// Ensure Synthesizer implements the interface.
var _ driven.PromptStoreAware = (*Synthesizer)(nil)

// contextKeyPoints caps the key requirements rendered per procedure.
const contextKeyPoints = 3

// defaultGroundingPrompt is used when no prompt store is configured.
const defaultGroundingPrompt = `You are a regulatory compliance assistant specialised in ISO 13485:2016.
Answer strictly from the numbered context below and never fabricate facts.
If the context does not contain the answer, reply with exactly this sentence:
%s
Organise the answer in clear numbered sections.`

// Synthesizer answers a question strictly from retrieved items.
type Synthesizer struct {
	llm          driven.LLMService
	prompts      driven.PromptStore
	contextItems int
	temperature  float64
}

// NewSynthesizer creates a synthesizer. The llm may be nil, in which case
// only questions with no retrieved context can be answered.
func NewSynthesizer(llm driven.LLMService, contextItems int, temperature float64) *Synthesizer {
	if contextItems <= 0 {
		contextItems = domain.DefaultContextItems
	}
	return &Synthesizer{llm: llm, contextItems: contextItems, temperature: temperature}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *Synthesizer) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Answer makes one model call grounded on the first items. With no items
// the fallback sentence is returned without calling the model.
func (s *Synthesizer) Answer(ctx context.Context, question string, items []domain.RetrievedItem) (*domain.Answer, error) {
	logger.Section("Answer Synthesis")
	answer := &domain.Answer{Question: question, Sources: []string{}}

	if len(items) == 0 {
		logger.Debug("No context retrieved, returning fallback")
		answer.Text = domain.FallbackAnswer
		answer.Fallback = true
		return answer, nil
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no language model configured", domain.ErrConfiguration)
	}

	if len(items) > s.contextItems {
		items = items[:s.contextItems]
	}
	contextBlock, sources := BuildContext(items)
	answer.Sources = sources

	system := fmt.Sprintf(s.groundingPrompt(), domain.FallbackAnswer) + "\n\nContext:\n" + contextBlock
	logger.Debug("Context: %d items, %d bytes", len(items), len(contextBlock))

	done := logger.Timed("generate")
	text, err := s.llm.Complete(ctx, driven.CompletionRequest{
		System:      system,
		User:        question,
		Temperature: s.temperature,
	})
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	answer.Text = strings.TrimSpace(text)
	if domain.IsFallback(answer.Text) {
		answer.Text = domain.FallbackAnswer
		answer.Fallback = true
	}
	return answer, nil
}

func (s *Synthesizer) groundingPrompt() string {
	if s.prompts == nil {
		return defaultGroundingPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptGrounding)
	if err != nil {
		logger.Warn("grounding prompt: %v", err)
		return defaultGroundingPrompt
	}
	return tmpl
}

// BuildContext renders items as numbered, source-labelled blocks and
// returns the labels in the same order.
func BuildContext(items []domain.RetrievedItem) (string, []string) {
	var b strings.Builder
	sources := make([]string, 0, len(items))
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, item.Source)
		if item.Kind == domain.ItemProcedure && item.Procedure != nil {
			b.WriteString(procedures.ContextText(*item.Procedure, contextKeyPoints))
		} else {
			b.WriteString(item.Content)
		}
		sources = append(sources, item.Source)
	}
	return b.String(), sources
}
