package httpadapter

import "net/http"

// HttpHandle pairs a Go 1.22 mux pattern ("GET /api/users") with its handler.
type HttpHandle struct {
	Path    string
	Handler func(w http.ResponseWriter, r *http.Request)
}

// Register mounts every handle on mux.
func Register(mux *http.ServeMux, handles ...HttpHandle) {
	for _, h := range handles {
		mux.HandleFunc(h.Path, h.Handler)
	}
}
