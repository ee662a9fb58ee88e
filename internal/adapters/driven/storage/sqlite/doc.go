// Package sqlite provides the default persisted CollectionStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each collection is one row in the
// collections table plus its vector records in insertion order; vectors are
// stored as little-endian float32 blobs.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.qmsrag/data/collections.db
//
// # Thread Safety
//
// All operations are thread-safe. Save replaces a collection inside a single
// transaction, so readers observe either the old or the new collection.
package sqlite
