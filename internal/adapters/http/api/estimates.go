// Package api declares the dashboard HTTP contracts and route registration.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/aimboard/aimboard/internal/domain/estimate"
)

// EstimateView is the read shape for one tracked scenario: the raw estimate
// state joined with its display rank.
type EstimateView struct {
	Scenario   string                    `json:"scenario"`
	Category   string                    `json:"category"`
	Difficulty string                    `json:"difficulty"`
	Estimate   estimate.ScenarioEstimate `json:"estimate"`
	Display    estimate.EstimatedRank    `json:"display"`
}

// EstimateReader exposes estimate reads to the HTTP layer.
type EstimateReader interface {
	// Estimates lists tracked scenarios, optionally filtered by difficulty.
	Estimates(ctx context.Context, difficulty string) ([]EstimateView, error)

	// ScenarioEstimate returns the view for one scenario.
	ScenarioEstimate(ctx context.Context, scenario string) (EstimateView, error)

	// HolisticRank aggregates a difficulty's estimates into one rank.
	HolisticRank(ctx context.Context, difficulty string) (estimate.EstimatedRank, error)
}

// EstimatesHandler handles estimate reads.
type EstimatesHandler struct {
	deps EstimateReader
}

// NewEstimatesHandler creates a new estimates handler.
func NewEstimatesHandler(deps EstimateReader) *EstimatesHandler {
	return &EstimatesHandler{deps: deps}
}

// HandleList handles GET /estimates?difficulty= requests.
func (h *EstimatesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	views, err := h.deps.Estimates(r.Context(), r.URL.Query().Get("difficulty"))
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleScenario handles GET /estimates/{scenario} requests.
func (h *EstimatesHandler) HandleScenario(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scenario := strings.TrimPrefix(r.URL.Path, "/estimates/")
	if scenario == "" || strings.Contains(scenario, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	view, err := h.deps.ScenarioEstimate(r.Context(), scenario)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleHolistic handles GET /rank?difficulty= requests.
func (h *EstimatesHandler) HandleHolistic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rank, err := h.deps.HolisticRank(r.Context(), difficulty)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}
