// Package sqlite provides a unified SQLite-based implementation of the
// driven storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements every store
// interface through a single database connection:
//
//   - WatermarkLedger: per-document processing watermarks
//   - SummaryStore: structured document summaries
//   - VectorStore: embedded chunks with exhaustive cosine search
//   - RunHistory: bounded log of ingestion runs
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is applied in a transaction
// together with its schema_migrations row.
//
// # Data Location
//
// By default, the database is stored at ~/.juris/data/juris.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
