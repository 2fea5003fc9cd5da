// Package migrations embeds the goose SQL migrations. The schema is kept
// portable between postgres and sqlite: text columns and epoch-millisecond
// BIGINT timestamps only.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
