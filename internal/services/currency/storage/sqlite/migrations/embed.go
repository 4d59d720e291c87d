package migrations

import "embed"

// FS contains embedded SQLite migrations for currency storage.
//
//go:embed *.sql
var FS embed.FS
