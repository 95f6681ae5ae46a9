package handlers

import (
	"net/http"
	"path"
	"strings"
)

// contentTypes overrides the host mime table for module assets
var contentTypes = map[string]string{
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".json": "application/json",
	".map":  "application/json",
	".wasm": "application/wasm",
}

// StaticHandler serves a directory without caching
type StaticHandler struct {
	files http.Handler
}

// NewStaticHandler creates a handler serving the files under dir
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{
		files: http.FileServer(http.Dir(dir)),
	}
}

// ServeHTTP handles GET and HEAD requests for files
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ext := strings.ToLower(path.Ext(r.URL.Path))
	if contentType, ok := contentTypes[ext]; ok {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "no-store")

	h.files.ServeHTTP(w, r)
}
