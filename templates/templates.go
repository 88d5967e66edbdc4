// Package templates embeds the html templates so the server binary runs from any directory.
package templates

import "embed"

//go:embed layouts/*.tmpl partials/*.tmpl pages
var FS embed.FS
