// Package seedruns floods a running dashboard with synthetic scenario runs
// and verifies the estimates, session window and holistic ranks that come
// back. It drives the public HTTP API only, the way a trainer integration
// would.
package seedruns

import "time"

// Config holds configuration for a seeding pass.
type Config struct {
	BaseURL    string        // Base URL of the dashboard
	NumRuns    int           // Number of runs to generate
	Difficulty string        // Restrict scenarios to one difficulty ("" = all)
	Player     string        // Player name on generated runs ("" = server default)
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated runs
	LogFile    string        // Log file for seeder output
	Verbose    bool          // Enable verbose logging
}

// runPayload mirrors the POST /runs body.
type runPayload struct {
	ID       string  `json:"id"`
	Player   string  `json:"player,omitempty"`
	Scenario string  `json:"scenario"`
	Score    float64 `json:"score"`
	Seconds  float64 `json:"seconds"`
	PlayedAt string  `json:"played_at"`
}

// ackResponse mirrors the run submission acknowledgement.
type ackResponse struct {
	Status   string `json:"status"`
	Ingested int    `json:"ingested"`
}

// estimateView mirrors one entry of the GET /estimates response.
type estimateView struct {
	Scenario   string        `json:"scenario"`
	Category   string        `json:"category"`
	Difficulty string        `json:"difficulty"`
	Estimate   estimateState `json:"estimate"`
	Display    estimatedRank `json:"display"`
}

// estimateState mirrors the raw per-scenario estimate state.
type estimateState struct {
	ContinuousValue float64 `json:"continuous_value"`
	HighestAchieved float64 `json:"highest_achieved"`
	Penalty         float64 `json:"penalty"`
}

// estimatedRank mirrors a display rank from GET /rank and estimate views.
type estimatedRank struct {
	Value    float64 `json:"value"`
	Level    int     `json:"level"`
	Name     string  `json:"name"`
	Progress int     `json:"progress"`
}

// sessionSnapshot mirrors the GET /session response.
type sessionSnapshot struct {
	ID     string               `json:"id"`
	Active bool                 `json:"active"`
	Bests  map[string]bestEntry `json:"bests"`
}

// bestEntry mirrors one session best.
type bestEntry struct {
	Scenario string  `json:"scenario"`
	Score    float64 `json:"score"`
	Rank     string  `json:"rank"`
}

// Stats holds seeding statistics.
type Stats struct {
	RunsGenerated    int
	RunsSubmitted    int
	RunsAccepted     int
	RunsFailed       int
	ScenariosCovered int
	EstimatesTracked int
	SessionBests     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
