// Package migrations embeds the SQL schema migrations so the server and the
// migrate tool can apply them without the source tree.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
