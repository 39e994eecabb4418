package web

import "embed"

// Templates embeds the HTML error page templates.
//
//go:embed templates/errors/*.html
var Templates embed.FS
