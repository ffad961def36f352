package frontend

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewFormHandler serves the embedded patient form. Unknown paths fall back
// to the form so a bookmarked path still lands on it. The root path stays
// "/" so the file server renders index.html itself instead of issuing its
// canonical-path redirect.
func NewFormHandler(staticFS fs.FS) gin.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticFS))

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path != "/" {
			if _, err := fs.Stat(staticFS, strings.TrimPrefix(path, "/")); err != nil {
				path = "/"
			}
		}

		c.Request.URL.Path = path
		c.Header("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
