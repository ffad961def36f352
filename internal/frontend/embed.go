package frontend

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// GetStaticFS returns the embedded form assets.
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
