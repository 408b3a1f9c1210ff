// Package api declares the dashboard HTTP contracts and route registration.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/internal/domain/ranked"
)

// Dependencies bundles everything the handler layer needs. The app service
// satisfies the whole bundle; tests swap in narrow mocks.
type Dependencies interface {
	RunIngestor
	EstimateReader
	SessionController
	RankedController
	HistoryReader
	StatsProvider
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	health    *HealthHandler
	stats     *StatsHandler
	runs      *RunsHandler
	estimates *EstimatesHandler
	session   *SessionHandler
	ranked    *RankedHandler
	history   *HistoryHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		health:    NewHealthHandler(),
		stats:     NewStatsHandler(deps),
		runs:      NewRunsHandler(deps),
		estimates: NewEstimatesHandler(deps),
		session:   NewSessionHandler(deps),
		ranked:    NewRankedHandler(deps),
		history:   NewHistoryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux, most specific first.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runs.HandlePostRun, "runs"))
	mux.HandleFunc("/sync", MetricsMiddleware(s.runs.HandleSync, "sync"))
	mux.HandleFunc("/estimates", MetricsMiddleware(s.estimates.HandleList, "estimates"))
	mux.HandleFunc("/estimates/", MetricsMiddleware(s.estimates.HandleScenario, "estimate"))
	mux.HandleFunc("/rank", MetricsMiddleware(s.estimates.HandleHolistic, "rank"))
	mux.HandleFunc("/session", MetricsMiddleware(s.session.HandleSnapshot, "session"))
	mux.HandleFunc("/session/reset", MetricsMiddleware(s.session.HandleReset, "session_reset"))
	mux.HandleFunc("/ranked", MetricsMiddleware(s.ranked.HandleState, "ranked"))
	mux.HandleFunc("/ranked/start", MetricsMiddleware(s.ranked.HandleStart, "ranked_start"))
	mux.HandleFunc("/ranked/advance", MetricsMiddleware(s.ranked.HandleAdvance, "ranked_advance"))
	mux.HandleFunc("/ranked/retreat", MetricsMiddleware(s.ranked.HandleRetreat, "ranked_retreat"))
	mux.HandleFunc("/ranked/extend", MetricsMiddleware(s.ranked.HandleExtend, "ranked_extend"))
	mux.HandleFunc("/ranked/end", MetricsMiddleware(s.ranked.HandleEnd, "ranked_end"))
	mux.HandleFunc("/ranked/reset", MetricsMiddleware(s.ranked.HandleReset, "ranked_reset"))
	mux.HandleFunc("/history", MetricsMiddleware(s.history.HandleRuns, "history"))
	mux.HandleFunc("/history/stats", MetricsMiddleware(s.history.HandleStats, "history_stats"))
}

// runRequest mirrors the POST /runs body.
type runRequest struct {
	ID       string  `json:"id,omitempty"`
	Player   string  `json:"player,omitempty"`
	Scenario string  `json:"scenario"`
	Score    float64 `json:"score"`
	Seconds  float64 `json:"seconds,omitempty"`
	PlayedAt string  `json:"played_at,omitempty"`
}

func (r runRequest) validate() error {
	if strings.TrimSpace(r.Scenario) == "" {
		return errors.Wrap(ErrBadRequest, "missing scenario")
	}
	if r.PlayedAt != "" {
		if _, err := time.Parse(time.RFC3339, r.PlayedAt); err != nil {
			return errors.Wrap(ErrBadRequest, "invalid played_at; must be RFC3339")
		}
	}
	return nil
}

// toRun builds the domain run. Missing identity fields stay empty; the app
// layer assigns an id, the configured player and the receive time.
func (r runRequest) toRun() model.Run {
	run := model.Run{
		ID:       strings.TrimSpace(r.ID),
		Player:   strings.TrimSpace(r.Player),
		Scenario: strings.TrimSpace(r.Scenario),
		Score:    r.Score,
		Seconds:  r.Seconds,
	}
	if r.PlayedAt != "" {
		run.PlayedAt, _ = time.Parse(time.RFC3339, r.PlayedAt)
	}
	return run
}

type ackResponse struct {
	Status   string `json:"status"`
	Ingested int    `json:"ingested,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor translates domain errors into an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, bench.ErrUnknownScenario),
		errors.Is(err, bench.ErrUnknownDifficulty):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ranked.ErrNoActiveSession),
		errors.Is(err, ranked.ErrSessionInProgress),
		errors.Is(err, ranked.ErrGauntletIncomplete):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
