package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
	"github.com/custodia-labs/qms-rag/internal/logger"
	"github.com/custodia-labs/qms-rag/internal/procedures"
	"github.com/custodia-labs/qms-rag/internal/vectorindex"
)

// Ensure Retriever implements the interfaces.
var (
	_ driving.RetrievalService = (*Retriever)(nil)
	_ driven.PromptStoreAware  = (*Retriever)(nil)
)

// IndexProvider resolves the in-memory index of a collection.
type IndexProvider interface {
	// Index returns the loaded index, or domain.ErrIndexNotFound.
	Index(ctx context.Context, collection string) (*vectorindex.Index, error)
}

// Retriever finds the procedures and chunks relevant to a query.
// Every collaborator is optional; missing ones disable their path.
type Retriever struct {
	procedures driven.ProcedureStore
	indexes    IndexProvider
	embedder   driven.EmbeddingService
	llm        driven.LLMService
	prompts    driven.PromptStore
	settings   domain.RetrievalSettings
	collection string
}

// NewRetriever creates a retriever with the configured defaults.
func NewRetriever(
	store driven.ProcedureStore,
	indexes IndexProvider,
	embedder driven.EmbeddingService,
	settings domain.RetrievalSettings,
	collection string,
) *Retriever {
	return &Retriever{
		procedures: store,
		indexes:    indexes,
		embedder:   embedder,
		settings:   settings,
		collection: collection,
	}
}

// SetQueryRewriter sets the LLM used to restate questions when
// RewriteQuery is enabled.
func (r *Retriever) SetQueryRewriter(llm driven.LLMService) {
	r.llm = llm
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (r *Retriever) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// Retrieve runs direct lookup, then the keyword and vector paths.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, opts driving.RetrieveOptions,
) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	defer logger.Timed("retrieve")()

	query = strings.TrimSpace(query)
	result := &domain.RetrievalResult{Query: query, Path: domain.PathNone, Items: []domain.RetrievedItem{}}
	if query == "" {
		return result, nil
	}
	opts = r.resolve(opts)
	logger.Debug("Query: %q (mode=%s, k=%d, strategy=%s)", query, opts.Mode, opts.K, opts.Strategy)

	// 1. Exact structural references short-circuit everything else
	if r.procedures != nil {
		if m, ok := r.procedures.Lookup(query); ok {
			logger.Debug("Direct match: %s %s", m.Kind, m.ID)
			result.Path = domain.PathDirect
			result.Match = m.Kind + " " + m.ID
			result.Items = finalise(procedureItems(m.Procedures), opts.K)
			return result, nil
		}
	}

	var keywordItems, vectorItems []domain.RetrievedItem

	// 2. Keyword path over the procedure catalogue
	if opts.Mode.UsesKeywords() && r.procedures != nil {
		keywordItems = r.keywordSearch(query)
		logger.Debug("Keyword path: %d procedures", len(keywordItems))
	}

	// 3. Vector path over the loaded collection
	if opts.Mode.UsesVectors() {
		items, err := r.vectorSearch(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		vectorItems = items
		logger.Debug("Vector path: %d chunks", len(vectorItems))
	}

	// 4. Merge, dedupe and truncate
	switch {
	case len(keywordItems) > 0 && len(vectorItems) > 0:
		result.Path = domain.PathHybrid
	case len(keywordItems) > 0:
		result.Path = domain.PathKeyword
	case len(vectorItems) > 0:
		result.Path = domain.PathVector
	}
	result.Items = finalise(append(keywordItems, vectorItems...), opts.K)
	return result, nil
}

func (r *Retriever) keywordSearch(query string) []domain.RetrievedItem {
	var hits []domain.Procedure
	for _, term := range procedures.Keywords(query, r.settings.MaxKeywords) {
		hits = append(hits, r.procedures.FindByKeyword(term)...)
	}
	return procedureItems(hits)
}

func (r *Retriever) vectorSearch(
	ctx context.Context, query string, opts driving.RetrieveOptions,
) ([]domain.RetrievedItem, error) {
	if r.indexes == nil || r.embedder == nil {
		logger.Debug("Vector path disabled: no index or embedder")
		return nil, nil
	}

	idx, err := r.indexes.Index(ctx, opts.Collection)
	if errors.Is(err, domain.ErrIndexNotFound) {
		logger.Warn("collection %q not built, vector path skipped", opts.Collection)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if idx.Len() == 0 {
		return nil, nil
	}

	text := r.rewrite(ctx, query)
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrEmbedding, err)
	}

	hits, err := idx.Query(vec, domain.QueryOptions{
		K:        opts.K,
		Strategy: opts.Strategy,
		FetchK:   opts.FetchK,
		Lambda:   opts.Lambda,
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.RetrievedItem, 0, len(hits))
	for _, h := range hits {
		chunk := h.Chunk
		items = append(items, domain.RetrievedItem{
			Kind:    domain.ItemChunk,
			Key:     chunkKey(chunk),
			Source:  chunk.Source(),
			Content: chunk.Content,
			Score:   h.Score,
			Chunk:   &chunk,
		})
	}
	return items, nil
}

// chunkKey keys a chunk cut from a catalogue procedure by its proc_id, so it
// collapses with the keyword hit for the same procedure.
func chunkKey(c domain.Chunk) string {
	if id, ok := c.Metadata[domain.MetaProcID].(string); ok && id != "" {
		return id
	}
	return c.ID
}

// rewrite asks the LLM to restate the question. Failures keep the original.
func (r *Retriever) rewrite(ctx context.Context, query string) string {
	if !r.settings.RewriteQuery || r.llm == nil || r.prompts == nil {
		return query
	}

	tmpl, err := r.prompts.Load(driven.PromptQueryRewrite)
	if err != nil {
		logger.Warn("query rewrite prompt: %v", err)
		return query
	}
	out, err := r.llm.Complete(ctx, driven.CompletionRequest{
		User:      fmt.Sprintf(tmpl, query),
		MaxTokens: 128,
	})
	if err != nil {
		logger.Warn("query rewrite failed, using original question: %v", err)
		return query
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return query
	}
	logger.Debug("Rewritten query: %q", out)
	return out
}

// resolve fills zero-valued options from the configured settings.
func (r *Retriever) resolve(opts driving.RetrieveOptions) driving.RetrieveOptions {
	if opts.Collection == "" {
		opts.Collection = r.collection
	}
	if opts.K <= 0 {
		opts.K = r.settings.K
	}
	if opts.K <= 0 {
		opts.K = domain.DefaultK
	}
	if opts.Strategy == "" {
		opts.Strategy = r.settings.Strategy
	}
	if opts.FetchK <= 0 {
		opts.FetchK = r.settings.FetchK
	}
	if opts.Lambda <= 0 || opts.Lambda > 1 {
		opts.Lambda = r.settings.Lambda
	}
	if !opts.Mode.IsValid() {
		opts.Mode = r.settings.Mode
	}
	if !opts.Mode.IsValid() {
		opts.Mode = domain.RetrievalHybrid
	}
	return opts
}

func procedureItems(procs []domain.Procedure) []domain.RetrievedItem {
	items := make([]domain.RetrievedItem, 0, len(procs))
	for _, p := range procs {
		items = append(items, domain.RetrievedItem{
			Kind:      domain.ItemProcedure,
			Key:       p.ProcID,
			Source:    p.ProcID,
			Content:   procedures.ContextText(p, 0),
			Procedure: &p,
		})
	}
	return items
}

func finalise(items []domain.RetrievedItem, k int) []domain.RetrievedItem {
	items = domain.DedupeItems(items)
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items
}
