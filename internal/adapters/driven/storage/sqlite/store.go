package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/qms-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/vectorindex"
)

// DatabaseFile is the file name created inside the data directory.
const DatabaseFile = "collections.db"

// Ensure Store implements the interface.
var _ driven.CollectionStore = (*Store)(nil)

// Store is a SQLite-backed collection store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.qmsrag/data/collections.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".qmsrag", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_collections.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Exists reports whether the named collection has been saved.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return n > 0, nil
}

// Save replaces the named collection in a single transaction.
func (s *Store) Save(ctx context.Context, manifest domain.CollectionManifest, records []domain.VectorRecord) error {
	if manifest.Name == "" {
		return fmt.Errorf("%w: collection name is empty", domain.ErrConfiguration)
	}

	sources, err := json.Marshal(nonNil(manifest.Sources))
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_records WHERE collection = ?", manifest.Name); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (name, embedding_model, dimensions, chunk_count, document_count, sources, source_digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			embedding_model = excluded.embedding_model,
			dimensions = excluded.dimensions,
			chunk_count = excluded.chunk_count,
			document_count = excluded.document_count,
			sources = excluded.sources,
			source_digest = excluded.source_digest,
			created_at = excluded.created_at
	`, manifest.Name, manifest.EmbeddingModel, manifest.Dimensions, manifest.ChunkCount,
		manifest.DocumentCount, string(sources), manifest.SourceDigest, manifest.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO collection_records (collection, seq, chunk_id, document_id, content, position, char_offset, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		metadata, err := vectorindex.EncodeMetadata(rec.Chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, manifest.Name, i, rec.Chunk.ID, rec.Chunk.DocumentID,
			rec.Chunk.Content, rec.Chunk.Position, rec.Chunk.Offset, metadata,
			vectorindex.EncodeVector(rec.Vector)); err != nil {
			return fmt.Errorf("saving record %s: %w", rec.Chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, content, position, char_offset, metadata, vector
		FROM collection_records WHERE collection = ? ORDER BY seq
	`, name)
	if err != nil {
		return nil, nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.VectorRecord, 0, manifest.ChunkCount)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
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
	row := s.db.QueryRowContext(ctx, `
		SELECT name, embedding_model, dimensions, chunk_count, document_count, sources, source_digest, created_at
		FROM collections WHERE name = ?
	`, name)

	m, err := scanManifest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns the manifests of all collections, ordered by name.
func (s *Store) List(ctx context.Context) ([]domain.CollectionManifest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, embedding_model, dimensions, chunk_count, document_count, sources, source_digest, created_at
		FROM collections ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var out []domain.CollectionManifest //nolint:prealloc // size unknown from query
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

// Delete removes the named collection and its records.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_records WHERE collection = ?", name); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return tx.Commit()
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanManifest(row scanner) (*domain.CollectionManifest, error) {
	var m domain.CollectionManifest
	var sources string
	var created int64

	if err := row.Scan(&m.Name, &m.EmbeddingModel, &m.Dimensions, &m.ChunkCount,
		&m.DocumentCount, &sources, &m.SourceDigest, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}

	if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
		return nil, fmt.Errorf("unmarshalling sources: %w", err)
	}
	m.Sources = nonNil(m.Sources)
	m.CreatedAt = time.Unix(0, created).UTC()

	return &m, nil
}

func scanRecord(row scanner) (domain.VectorRecord, error) {
	var rec domain.VectorRecord
	var metadata string
	var blob []byte

	if err := row.Scan(&rec.Chunk.ID, &rec.Chunk.DocumentID, &rec.Chunk.Content,
		&rec.Chunk.Position, &rec.Chunk.Offset, &metadata, &blob); err != nil {
		return rec, fmt.Errorf("scanning record: %w", err)
	}

	var err error
	if rec.Chunk.Metadata, err = vectorindex.DecodeMetadata(metadata); err != nil {
		return rec, err
	}
	if rec.Vector, err = vectorindex.DecodeVector(blob); err != nil {
		return rec, fmt.Errorf("record %s: %w", rec.Chunk.ID, err)
	}
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
