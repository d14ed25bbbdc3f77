package migrations

import "embed"

// FS contains embedded SQLite migrations for countdown storage.
//
//go:embed *.sql
var FS embed.FS
