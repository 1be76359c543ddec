// Package migrations embeds the goose SQL migrations applied to the
// SQLite database, so the production binary carries them instead of
// reading from the source tree (unlike testhelper, which reads this
// directory directly via os.DirFS for speed in tests).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
