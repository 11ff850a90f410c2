// Package migrations embeds the schema of the juris index: the watermark
// ledger, summaries, chunks with their vectors, and run history.
//
// Files are named NNN_name.up.sql and NNN_name.down.sql and applied in
// version order.
package migrations

import "embed"

// FS holds the migration files.
//
//go:embed *.sql
var FS embed.FS
