// Package memory provides an in-process CollectionStore for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

type collection struct {
	manifest domain.CollectionManifest
	records  []domain.VectorRecord
}

// CollectionStore keeps collections in a map. Stored values are copied on
// the way in and out so callers cannot mutate them.
type CollectionStore struct {
	mu          sync.RWMutex
	collections map[string]collection
}

// NewCollectionStore creates an empty store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{collections: make(map[string]collection)}
}

// Exists reports whether the named collection has been saved.
func (s *CollectionStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// Save replaces the named collection.
func (s *CollectionStore) Save(ctx context.Context, manifest domain.CollectionManifest, records []domain.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if manifest.Name == "" {
		return fmt.Errorf("%w: collection name is empty", domain.ErrConfiguration)
	}

	c := collection{manifest: copyManifest(manifest), records: copyRecords(records)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[manifest.Name] = c
	return nil
}

// Load returns copies of the manifest and records.
func (s *CollectionStore) Load(_ context.Context, name string) (*domain.CollectionManifest, []domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	m := copyManifest(c.manifest)
	return &m, copyRecords(c.records), nil
}

// Manifest returns a copy of the manifest.
func (s *CollectionStore) Manifest(_ context.Context, name string) (*domain.CollectionManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	m := copyManifest(c.manifest)
	return &m, nil
}

// List returns all manifests ordered by name.
func (s *CollectionStore) List(_ context.Context) ([]domain.CollectionManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CollectionManifest, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, copyManifest(c.manifest))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named collection.
func (s *CollectionStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// Close is a no-op.
func (s *CollectionStore) Close() error {
	return nil
}

func copyManifest(m domain.CollectionManifest) domain.CollectionManifest {
	m.Sources = slices.Clone(m.Sources)
	if m.Sources == nil {
		m.Sources = []string{}
	}
	return m
}

func copyRecords(records []domain.VectorRecord) []domain.VectorRecord {
	out := make([]domain.VectorRecord, len(records))
	for i, r := range records {
		out[i] = r
		out[i].Vector = slices.Clone(r.Vector)
		out[i].Chunk.Metadata = maps.Clone(r.Chunk.Metadata)
		if out[i].Chunk.Metadata == nil {
			out[i].Chunk.Metadata = map[string]any{}
		}
	}
	return out
}
