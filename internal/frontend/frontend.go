// Package frontend serves a prebuilt single-page app next to the API.
package frontend

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/cliptag/backend/pkg/response"
)

// Mount serves files from dist. Unknown non-API GET paths get index.html so
// client-side routes resolve.
func Mount(r *gin.Engine, dist string) error {
	index := filepath.Join(dist, "index.html")
	if _, err := os.Stat(index); err != nil {
		return err
	}
	files := http.Dir(dist)
	serve := gzip.Gzip(gzip.DefaultCompression)

	r.NoRoute(serve, func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || p == "/api" {
			response.NotFound(c, "Not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			response.NotFound(c, "Not found")
			return
		}
		if f, err := files.Open(filepath.Clean(p)); err == nil {
			st, statErr := f.Stat()
			_ = f.Close()
			if statErr == nil && !st.IsDir() {
				c.FileFromFS(p, files)
				return
			}
		}
		c.File(index)
	})
	return nil
}
