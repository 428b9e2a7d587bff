// Package migrations embeds the SQL files that bootstrap the local store's
// sqlite tables. Document-level schema migrations live elsewhere; these only
// shape the physical rows.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
