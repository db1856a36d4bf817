// Package quizzes holds the built-in quiz definitions served when no
// database is configured.
package quizzes

import "embed"

//go:embed *.yaml
var FS embed.FS
