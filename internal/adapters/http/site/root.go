// Package site serves the embedded browser dashboard.
package site

import (
	"context"
	"net/http"
)

// Register attaches the dashboard UI to the root of mux. Explicit API
// routes keep precedence; the file server only catches what nothing else
// claimed.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/", http.FileServer(FS()))
}
