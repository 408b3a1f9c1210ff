// Package api declares the dashboard HTTP contracts and route registration.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/domain/ranked"
)

// RankedController exposes the ranked session machine to the HTTP layer.
type RankedController interface {
	RankedState(ctx context.Context) ranked.State
	StartRanked(ctx context.Context, difficulty string) (ranked.State, error)
	AdvanceRanked(ctx context.Context) (ranked.State, error)
	RetreatRanked(ctx context.Context) (ranked.State, error)
	ExtendRanked(ctx context.Context) (ranked.State, error)
	EndRanked(ctx context.Context) (ranked.State, error)
	ResetRanked(ctx context.Context) error
}

// startRequest mirrors the POST /ranked/start body.
type startRequest struct {
	Difficulty string `json:"difficulty"`
}

// RankedHandler handles ranked session requests.
type RankedHandler struct {
	deps RankedController
}

// NewRankedHandler creates a new ranked handler.
func NewRankedHandler(deps RankedController) *RankedHandler {
	return &RankedHandler{deps: deps}
}

// HandleState handles GET /ranked requests.
func (h *RankedHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.RankedState(r.Context()))
}

// HandleStart handles POST /ranked/start requests.
func (h *RankedHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Wrap(ErrBadRequest, "malformed body"))
		return
	}
	if strings.TrimSpace(req.Difficulty) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Wrap(ErrBadRequest, "missing difficulty"))
		return
	}
	st, err := h.deps.StartRanked(r.Context(), strings.TrimSpace(req.Difficulty))
	h.respond(w, st, err)
}

// HandleAdvance handles POST /ranked/advance requests.
func (h *RankedHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	st, err := h.deps.AdvanceRanked(r.Context())
	h.respond(w, st, err)
}

// HandleRetreat handles POST /ranked/retreat requests.
func (h *RankedHandler) HandleRetreat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	st, err := h.deps.RetreatRanked(r.Context())
	h.respond(w, st, err)
}

// HandleExtend handles POST /ranked/extend requests.
func (h *RankedHandler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	st, err := h.deps.ExtendRanked(r.Context())
	h.respond(w, st, err)
}

// HandleEnd handles POST /ranked/end requests.
func (h *RankedHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	st, err := h.deps.EndRanked(r.Context())
	h.respond(w, st, err)
}

// HandleReset handles POST /ranked/reset requests.
func (h *RankedHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.ResetRanked(r.Context()); err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "reset"})
}

func (h *RankedHandler) respond(w http.ResponseWriter, st ranked.State, err error) {
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
