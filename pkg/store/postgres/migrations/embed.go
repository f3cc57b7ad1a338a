// Package migrations embeds the SQL schema of the PostgreSQL session backend.
package migrations

import "embed"

// FS holds the numbered golang-migrate migration files.
//
//go:embed *.sql
var FS embed.FS
