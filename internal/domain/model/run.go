// Package model contains domain models passed between layers.
package model

import "time"

// Run represents a single completed scenario attempt reported by a trainer.
type Run struct {
	ID       string    `json:"id"`        // unique id for idempotency
	Player   string    `json:"player"`    // profile the run belongs to
	Scenario string    `json:"scenario"`  // scenario name as listed in the benchmark catalog
	Score    float64   `json:"score"`     // final score reported by the trainer
	Seconds  float64   `json:"seconds"`   // time spent in the scenario, in seconds
	PlayedAt time.Time `json:"played_at"` // when the run finished
}

// ScenarioBest captures the best score seen for a scenario inside one
// practice session window.
type ScenarioBest struct {
	Scenario string    `json:"scenario"`
	Score    float64   `json:"score"`
	Rank     string    `json:"rank"`
	PlayedAt time.Time `json:"played_at"`
}
