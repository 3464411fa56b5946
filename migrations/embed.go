// Package migrations holds the versioned PostgreSQL schema applied by
// golang-migrate. The files are embedded so the binaries carry their schema.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
