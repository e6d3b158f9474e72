// Package public embeds the static assets served under /assets/.
package public

import "embed"

//go:embed assets
var FS embed.FS
