// Package templates embeds the storefront HTML templates. Layouts and partials
// are shared; each file under pages/ defines the "content" block of one page.
package templates

import "embed"

//go:embed layouts/*.tmpl partials/*.tmpl pages/*.tmpl
var FS embed.FS
