// Package api declares the dashboard HTTP contracts and route registration.
package api

import (
	"context"
	"net/http"

	"github.com/aimboard/aimboard/internal/domain/session"
)

// SessionController exposes the practice window to the HTTP layer.
type SessionController interface {
	SessionSnapshot(ctx context.Context) session.Snapshot
	ResetSession(ctx context.Context)
}

// SessionHandler handles practice window requests.
type SessionHandler struct {
	deps SessionController
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionController) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleSnapshot handles GET /session requests.
func (h *SessionHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.SessionSnapshot(r.Context()))
}

// HandleReset handles POST /session/reset requests.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.deps.ResetSession(r.Context())
	writeJSON(w, http.StatusOK, ackResponse{Status: "reset"})
}
