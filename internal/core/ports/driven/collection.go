package driven

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// CollectionStore persists vector collections keyed by name.
// A collection survives process restart and is reloaded without re-embedding.
type CollectionStore interface {
	// Exists reports whether the named collection has been saved.
	Exists(ctx context.Context, name string) (bool, error)

	// Save replaces the named collection atomically.
	// Either every record is persisted or the previous state is kept.
	Save(ctx context.Context, manifest domain.CollectionManifest, records []domain.VectorRecord) error

	// Load returns the manifest and records in insertion order.
	// Returns domain.ErrIndexNotFound if the collection is absent.
	Load(ctx context.Context, name string) (*domain.CollectionManifest, []domain.VectorRecord, error)

	// Manifest returns only the manifest.
	// Returns domain.ErrIndexNotFound if the collection is absent.
	Manifest(ctx context.Context, name string) (*domain.CollectionManifest, error)

	// List returns the manifests of all collections, ordered by name.
	List(ctx context.Context) ([]domain.CollectionManifest, error)

	// Delete removes the named collection. Deleting an absent collection is not an error.
	Delete(ctx context.Context, name string) error

	// Close releases resources.
	Close() error
}
