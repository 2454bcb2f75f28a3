package scaffold

import "embed"

//go:embed all:templates
var scaffoldFS embed.FS
