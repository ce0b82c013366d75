// Package migrations embeds the schema migrations so binaries and tests apply
// the same SQL without depending on the working directory.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
