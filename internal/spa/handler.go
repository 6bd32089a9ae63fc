// Package spa serves the single-page application build.
package spa

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	indexFile          = "index.html"
	indexCacheControl  = "no-cache"
	assetsDir          = "assets/"
	assetsCacheControl = "public, max-age=31536000, immutable"
)

// ErrMissingIndex is returned when the build has no index.html.
var ErrMissingIndex = errors.New("spa build has no index.html")

// Handler serves files from an SPA build. Extension-less paths that match no
// file get index.html so client-side routing works; missing files with an
// extension get 404.
type Handler struct {
	fsys     fs.FS
	index    []byte
	reserved []string
}

// NewHandler creates a Handler over fsys, which must contain index.html at
// its root. Paths under any reserved prefix always 404.
func NewHandler(fsys fs.FS, reserved ...string) (*Handler, error) {
	index, err := fs.ReadFile(fsys, indexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingIndex, err)
	}
	return &Handler{fsys: fsys, index: index, reserved: reserved}, nil
}

// Handle is a gin handler, normally registered with NoRoute.
func (h *Handler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		return
	}

	requestPath := c.Request.URL.Path
	for _, prefix := range h.reserved {
		if strings.HasPrefix(requestPath, prefix) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
	}

	name := strings.TrimPrefix(path.Clean("/"+requestPath), "/")
	if name == "" || name == indexFile {
		h.serveIndex(c)
		return
	}

	info, err := fs.Stat(h.fsys, name)
	if err == nil && !info.IsDir() {
		if strings.HasPrefix(name, assetsDir) {
			c.Header("Cache-Control", assetsCacheControl)
		}
		http.ServeFileFS(c.Writer, c.Request, h.fsys, name)
		return
	}

	if path.Ext(name) == "" {
		h.serveIndex(c)
		return
	}
	c.Status(http.StatusNotFound)
}

func (h *Handler) serveIndex(c *gin.Context) {
	c.Header("Cache-Control", indexCacheControl)
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.index)
}
