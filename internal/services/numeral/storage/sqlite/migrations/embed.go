package migrations

import "embed"

// FS contains embedded SQLite migrations for conversion storage.
//
//go:embed *.sql
var FS embed.FS
