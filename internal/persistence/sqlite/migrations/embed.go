// Package migrations holds the embedded SQL schema of the calendar database.
package migrations

import "embed"

// FS contains the ordered migration files.
//
//go:embed *.sql
var FS embed.FS
