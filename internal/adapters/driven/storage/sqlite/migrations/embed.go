// Package migrations holds the SQLite schema for the guidance store.
// Files are named NNN_name.up.sql and applied in version order.
package migrations

import "embed"

// FS is the set of migration files compiled into the binary.
//
//go:embed *.sql
var FS embed.FS
