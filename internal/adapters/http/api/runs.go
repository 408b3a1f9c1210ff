// Package api declares the dashboard HTTP contracts and route registration.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/domain/model"
)

// RunIngestor accepts manually posted runs and forced sync requests.
type RunIngestor interface {
	// IngestRun feeds one run through the same pipeline as polled runs.
	IngestRun(ctx context.Context, run model.Run) error

	// ForceSync polls every configured source once and returns how many
	// runs were ingested.
	ForceSync(ctx context.Context) int
}

// RunsHandler handles manual run ingestion.
type RunsHandler struct {
	deps RunIngestor
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunIngestor) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandlePostRun handles POST /runs requests.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Wrap(ErrBadRequest, "malformed body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.IngestRun(r.Context(), req.toRun()); err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Ingested: 1})
}

// HandleSync handles POST /sync requests, forcing an immediate poll of all
// sources outside the regular cadence.
func (h *RunsHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n := h.deps.ForceSync(r.Context())
	writeJSON(w, http.StatusOK, ackResponse{Status: "synced", Ingested: n})
}
