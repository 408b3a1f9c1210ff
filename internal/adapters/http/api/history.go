// Package api declares the dashboard HTTP contracts and route registration.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/adapters/history"
)

// HistoryReader exposes the run log to the HTTP layer.
type HistoryReader interface {
	RecentRuns(ctx context.Context, q history.Query) ([]history.Entry, error)
	RunStats(ctx context.Context, player, scenario string) (history.Stats, error)
}

// HistoryHandler handles run log requests.
type HistoryHandler struct {
	deps HistoryReader
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryReader) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleRuns handles GET /history requests with optional player, scenario,
// since, until and limit query parameters.
func (h *HistoryHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.RecentRuns(r.Context(), q)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleStats handles GET /history/stats?scenario= requests.
func (h *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scenario := r.URL.Query().Get("scenario")
	if scenario == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Wrap(ErrBadRequest, "missing scenario"))
		return
	}
	stats, err := h.deps.RunStats(r.Context(), r.URL.Query().Get("player"), scenario)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseHistoryQuery(r *http.Request) (history.Query, error) {
	var q history.Query
	values := r.URL.Query()

	q.Player = values.Get("player")
	q.Scenario = values.Get("scenario")

	if v := values.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.Wrap(ErrBadRequest, "invalid since; must be RFC3339")
		}
		q.Since = t
	}
	if v := values.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.Wrap(ErrBadRequest, "invalid until; must be RFC3339")
		}
		q.Until = t
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, errors.Wrap(ErrBadRequest, "invalid limit")
		}
		q.Limit = n
	}
	return q, nil
}
