// Package sqlite provides the SQLite-backed job store and embedding cache.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Both stores share one database file:
//
//   - JobStore: ingestion job records (table jobs)
//   - EmbeddingCache: vectors keyed by backend, model, dim and chunk id (table embedding_cache)
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-ingest/jobs.db
//
// # Thread Safety
//
// All operations are thread-safe. Job updates are single conditional
// statements, so a terminal status written by one caller cannot be
// overwritten by a late progress update from another.
package sqlite
