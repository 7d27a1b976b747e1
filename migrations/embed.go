// Package migrations embeds the goose SQL migrations so the cli binary can
// run them without a checkout of the repository.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

const Dir = "."
