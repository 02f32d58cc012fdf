// Package web embeds the page templates and static assets of the history view.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates returns the embedded templates filesystem rooted at templates/.
func Templates() (fs.FS, error) {
	return fs.Sub(templateFS, "templates")
}

// Assets returns the embedded static filesystem.
// The returned FS has static/ as its root, so files are accessed
// directly (e.g., "app.css" not "static/app.css").
func Assets() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
