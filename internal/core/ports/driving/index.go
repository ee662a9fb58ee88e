package driving

import (
	"context"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// IndexService builds, loads and manages persisted vector collections.
type IndexService interface {
	// Build ingests the given files into a collection. If the collection
	// already exists and req.Force is false, the persisted collection is
	// loaded instead and the report is marked Reused.
	Build(ctx context.Context, req BuildRequest) (*BuildReport, error)

	// Refresh rebuilds a collection unconditionally.
	Refresh(ctx context.Context, req BuildRequest) (*BuildReport, error)

	// Load reconstructs a collection without re-embedding.
	// Returns domain.ErrIndexNotFound if absent.
	Load(ctx context.Context, collection string) (*domain.CollectionManifest, error)

	// Status returns the collection manifest and whether the sources on
	// disk still match it.
	Status(ctx context.Context, collection string) (*CollectionStatus, error)

	// List returns all persisted collections.
	List(ctx context.Context) ([]domain.CollectionManifest, error)

	// Delete removes a collection.
	Delete(ctx context.Context, collection string) error
}

// BuildRequest describes one ingestion.
type BuildRequest struct {
	// Collection is the collection name; empty uses the configured default.
	Collection string

	// Paths are files or directories to ingest.
	Paths []string

	// Force rebuilds even when the collection exists.
	Force bool
}

// BuildReport summarises a build.
type BuildReport struct {
	Manifest domain.CollectionManifest

	// Reused is true when an existing collection was loaded instead of rebuilt.
	Reused bool

	// Skipped lists files that no normaliser could handle.
	Skipped []string
}

// CollectionStatus reports a collection and its freshness.
type CollectionStatus struct {
	Manifest domain.CollectionManifest

	// Loaded is true when the collection is resident in memory.
	Loaded bool

	// Stale is true when the current source digest differs from the manifest.
	// It is informational; nothing is rebuilt automatically.
	Stale bool
}
