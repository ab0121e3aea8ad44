// Package migrations embeds the QuestDB time-series schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
