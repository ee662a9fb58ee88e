// Package postgres provides a PostgreSQL-backed CollectionStore using pgx.
//
// Vectors are stored as REAL[] columns; similarity is computed in process by
// the vector index, so no database extension is required.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/vectorindex"
)

// Ensure Store implements the interface.
var _ driven.CollectionStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS qmsrag_collections (
    name            TEXT PRIMARY KEY,
    embedding_model TEXT NOT NULL,
    dimensions      INTEGER NOT NULL,
    chunk_count     INTEGER NOT NULL,
    document_count  INTEGER NOT NULL,
    sources         TEXT[] NOT NULL DEFAULT '{}',
    source_digest   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS qmsrag_records (
    collection  TEXT NOT NULL REFERENCES qmsrag_collections(name) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    chunk_id    TEXT NOT NULL,
    document_id TEXT NOT NULL,
    content     TEXT NOT NULL,
    position    INTEGER NOT NULL,
    char_offset INTEGER NOT NULL,
    metadata    JSONB NOT NULL DEFAULT '{}',
    vector      REAL[] NOT NULL,
    PRIMARY KEY (collection, seq)
);
`

var recordColumns = []string{
	"collection", "seq", "chunk_id", "document_id", "content",
	"position", "char_offset", "metadata", "vector",
}

// Store is a PostgreSQL collection store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, verifies the connection and creates the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrConfiguration)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Exists reports whether the named collection has been saved.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM qmsrag_collections WHERE name = $1)", name).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return ok, nil
}

// Save replaces the named collection in one transaction, bulk loading the
// records with COPY.
func (s *Store) Save(ctx context.Context, manifest domain.CollectionManifest, records []domain.VectorRecord) error {
	if manifest.Name == "" {
		return fmt.Errorf("%w: collection name is empty", domain.ErrConfiguration)
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		metadata, err := vectorindex.EncodeMetadata(rec.Chunk.Metadata)
		if err != nil {
			return err
		}
		rows[i] = []any{
			manifest.Name, i, rec.Chunk.ID, rec.Chunk.DocumentID, rec.Chunk.Content,
			rec.Chunk.Position, rec.Chunk.Offset, metadata, rec.Vector,
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM qmsrag_records WHERE collection = $1", manifest.Name); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	sources := manifest.Sources
	if sources == nil {
		sources = []string{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO qmsrag_collections
			(name, embedding_model, dimensions, chunk_count, document_count, sources, source_digest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			embedding_model = EXCLUDED.embedding_model,
			dimensions = EXCLUDED.dimensions,
			chunk_count = EXCLUDED.chunk_count,
			document_count = EXCLUDED.document_count,
			sources = EXCLUDED.sources,
			source_digest = EXCLUDED.source_digest,
			created_at = EXCLUDED.created_at
	`, manifest.Name, manifest.EmbeddingModel, manifest.Dimensions, manifest.ChunkCount,
		manifest.DocumentCount, sources, manifest.SourceDigest, manifest.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"qmsrag_records"}, recordColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copying records: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("copied %d of %d records", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load returns the manifest and records in insertion order.
func (s *Store) Load(ctx context.Context, name string) (*domain.CollectionManifest, []domain.VectorRecord, error) {
	manifest, err := s.Manifest(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, document_id, content, position, char_offset, metadata::text, vector
		FROM qmsrag_records WHERE collection = $1 ORDER BY seq
	`, name)
	if err != nil {
		return nil, nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.VectorRecord, 0, manifest.ChunkCount)
	for rows.Next() {
		var rec domain.VectorRecord
		var metadata string
		if err := rows.Scan(&rec.Chunk.ID, &rec.Chunk.DocumentID, &rec.Chunk.Content,
			&rec.Chunk.Position, &rec.Chunk.Offset, &metadata, &rec.Vector); err != nil {
			return nil, nil, fmt.Errorf("scanning record: %w", err)
		}
		if rec.Chunk.Metadata, err = vectorindex.DecodeMetadata(metadata); err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating records: %w", err)
	}

	return manifest, records, nil
}

// Manifest returns only the manifest.
func (s *Store) Manifest(ctx context.Context, name string) (*domain.CollectionManifest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT name, embedding_model, dimensions, chunk_count, document_count, sources, source_digest, created_at
		FROM qmsrag_collections WHERE name = $1
	`, name)

	m, err := scanManifest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns the manifests of all collections, ordered by name.
func (s *Store) List(ctx context.Context) ([]domain.CollectionManifest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, embedding_model, dimensions, chunk_count, document_count, sources, source_digest, created_at
		FROM qmsrag_collections ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var out []domain.CollectionManifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return out, nil
}

// Delete removes the named collection; records cascade.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM qmsrag_collections WHERE name = $1", name); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanManifest(row pgx.Row) (*domain.CollectionManifest, error) {
	var m domain.CollectionManifest
	if err := row.Scan(&m.Name, &m.EmbeddingModel, &m.Dimensions, &m.ChunkCount,
		&m.DocumentCount, &m.Sources, &m.SourceDigest, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}
	if m.Sources == nil {
		m.Sources = []string{}
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
