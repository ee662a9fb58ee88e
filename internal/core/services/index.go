package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
	"github.com/custodia-labs/qms-rag/internal/logger"
	"github.com/custodia-labs/qms-rag/internal/vectorindex"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// DefaultEmbedBatchSize is the number of chunks sent per embedding request.
const DefaultEmbedBatchSize = 64

// IndexService builds persisted collections and loads them into memory.
type IndexService struct {
	store       driven.CollectionStore
	loader      *SourceLoader
	pipeline    driven.PostProcessorPipeline
	embedder    driven.EmbeddingService
	collections *Collections
	collection  string
	batchSize   int
	locks       keyedMutex
	now         func() time.Time
}

// NewIndexService creates an index service. The embedder may be nil, in
// which case builds fail with ErrConfiguration but loads still work.
func NewIndexService(
	store driven.CollectionStore,
	loader *SourceLoader,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	collections *Collections,
	defaultCollection string,
) *IndexService {
	if collections == nil {
		collections = NewCollections()
	}
	if defaultCollection == "" {
		defaultCollection = domain.DefaultCollection
	}
	return &IndexService{
		store:       store,
		loader:      loader,
		pipeline:    pipeline,
		embedder:    embedder,
		collections: collections,
		collection:  defaultCollection,
		batchSize:   DefaultEmbedBatchSize,
		now:         time.Now,
	}
}

// SetBatchSize overrides the embedding batch size.
func (s *IndexService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// Build ingests req.Paths into a collection, or loads the collection when
// it already exists and req.Force is false.
func (s *IndexService) Build(ctx context.Context, req driving.BuildRequest) (*driving.BuildReport, error) {
	name := s.name(req.Collection)
	unlock := s.locks.Lock(name)
	defer unlock()

	if !req.Force {
		exists, err := s.store.Exists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check collection: %w", err)
		}
		if exists {
			logger.Info("Collection %s exists, loading instead of rebuilding", name)
			manifest, _, err := s.load(ctx, name)
			if err != nil {
				return nil, err
			}
			return &driving.BuildReport{Manifest: *manifest, Reused: true}, nil
		}
	}

	return s.build(ctx, name, req.Paths)
}

// Refresh rebuilds a collection unconditionally.
func (s *IndexService) Refresh(ctx context.Context, req driving.BuildRequest) (*driving.BuildReport, error) {
	req.Force = true
	return s.Build(ctx, req)
}

//nolint:gocyclo // Sequential ingestion stages
func (s *IndexService) build(ctx context.Context, name string, paths []string) (*driving.BuildReport, error) {
	logger.Section("Index Build: " + name)
	defer logger.Timed("build " + name)()

	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", domain.ErrConfiguration)
	}

	// 1. Load and normalise sources
	done := logger.Timed("load")
	loaded, err := s.loader.Load(ctx, paths)
	done()
	if err != nil {
		return nil, err
	}

	// 2. Chunk every document
	done = logger.Timed("chunk")
	var chunks []domain.Chunk
	for i := range loaded.Documents {
		docChunks, err := s.pipeline.Process(ctx, &loaded.Documents[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", loaded.Documents[i].URI, err)
		}
		chunks = append(chunks, docChunks...)
	}
	done()
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no content to index in %v", domain.ErrConfiguration, paths)
	}
	logger.Debug("%d documents produced %d chunks", len(loaded.Documents), len(chunks))

	// 3. Embed all chunks; any failure aborts the build
	done = logger.Timed("embed")
	records, err := s.embed(ctx, chunks)
	done()
	if err != nil {
		return nil, err
	}

	idx, err := vectorindex.FromRecords(records)
	if err != nil {
		return nil, err
	}

	// 4. Persist atomically, then publish the index
	manifest := domain.CollectionManifest{
		Name:           name,
		EmbeddingModel: s.embedder.ModelName(),
		Dimensions:     idx.Dimensions(),
		ChunkCount:     len(records),
		DocumentCount:  len(loaded.Documents),
		Sources:        loaded.Sources,
		SourceDigest:   loaded.Digest,
		CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
	}
	done = logger.Timed("save")
	err = s.store.Save(ctx, manifest, records)
	done()
	if err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	s.collections.Put(name, idx)

	logger.Info("Built collection %s: %d chunks from %d documents", name, manifest.ChunkCount, manifest.DocumentCount)
	return &driving.BuildReport{Manifest: manifest, Skipped: loaded.Skipped}, nil
}

// embed embeds chunks in batches and pairs them with their vectors.
func (s *IndexService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.VectorRecord, error) {
	records := make([]domain.VectorRecord, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: chunks %d-%d: %w", domain.ErrEmbedding, start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(batch))
		}

		for i, c := range batch {
			meta, err := vectorindex.CanonicalMetadata(c.Metadata)
			if err != nil {
				return nil, fmt.Errorf("chunk %s metadata: %w", c.ID, err)
			}
			c.Metadata = meta
			records = append(records, domain.VectorRecord{Chunk: c, Vector: vectors[i]})
		}
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}
	return records, nil
}

// Load reconstructs a collection from the store without embedding.
func (s *IndexService) Load(ctx context.Context, collection string) (*domain.CollectionManifest, error) {
	name := s.name(collection)
	unlock := s.locks.Lock(name)
	defer unlock()
	manifest, _, err := s.load(ctx, name)
	return manifest, err
}

// load builds the index from the store and caches it. Callers use the
// returned index, since the cache entry may be dropped at any time.
func (s *IndexService) load(ctx context.Context, name string) (*domain.CollectionManifest, *vectorindex.Index, error) {
	defer logger.Timed("load " + name)()

	manifest, records, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("load collection %s: %w", name, err)
	}

	idx := vectorindex.New(manifest.Dimensions)
	if err := idx.Add(records...); err != nil {
		return nil, nil, fmt.Errorf("load collection %s: %w", name, err)
	}
	s.collections.Put(name, idx)

	logger.Debug("Loaded collection %s: %d records", name, idx.Len())
	return manifest, idx, nil
}

// Index returns the in-memory index for a collection, loading it from the
// store on first use.
func (s *IndexService) Index(ctx context.Context, collection string) (*vectorindex.Index, error) {
	name := s.name(collection)
	if idx, ok := s.collections.Get(name); ok {
		return idx, nil
	}

	unlock := s.locks.Lock(name)
	defer unlock()
	if idx, ok := s.collections.Get(name); ok {
		return idx, nil
	}
	_, idx, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Status returns the manifest and whether the sources still match it.
func (s *IndexService) Status(ctx context.Context, collection string) (*driving.CollectionStatus, error) {
	name := s.name(collection)
	manifest, err := s.store.Manifest(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}

	_, loaded := s.collections.Get(name)
	status := &driving.CollectionStatus{Manifest: *manifest, Loaded: loaded}

	digest, err := s.loader.Digest(manifest.Sources)
	if err != nil {
		logger.Debug("Digest of %s sources failed: %v", name, err)
		status.Stale = true
	} else {
		status.Stale = digest != manifest.SourceDigest
	}
	return status, nil
}

// List returns all persisted collections.
func (s *IndexService) List(ctx context.Context) ([]domain.CollectionManifest, error) {
	manifests, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return manifests, nil
}

// Delete removes a collection from the store and from memory.
func (s *IndexService) Delete(ctx context.Context, collection string) error {
	name := s.name(collection)
	unlock := s.locks.Lock(name)
	defer unlock()

	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		return fmt.Errorf("collection %s: %w", name, domain.ErrIndexNotFound)
	}
	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	s.collections.Drop(name)
	return nil
}

// IsIndexNotFound reports whether err means a collection has not been built.
func IsIndexNotFound(err error) bool {
	return errors.Is(err, domain.ErrIndexNotFound)
}

func (s *IndexService) name(collection string) string {
	if collection == "" {
		return s.collection
	}
	return collection
}
