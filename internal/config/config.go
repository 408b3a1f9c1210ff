// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// Player names the local profile all state is keyed under.
	Player string `koanf:"player"`

	// DataDir holds the bolt state store and, unless overridden,
	// the run history database.
	DataDir string `koanf:"data_dir"`

	// BenchmarkFile optionally points at a benchmark catalog JSON file.
	// Empty means the embedded catalog.
	BenchmarkFile string `koanf:"benchmark_file"`

	// SessionTimeoutSeconds is the inactivity window that closes a
	// practice session.
	SessionTimeoutSeconds int `koanf:"session_timeout_seconds"`

	// RankedLength sets how many scenarios a ranked gauntlet selects.
	RankedLength int `koanf:"ranked_length"`

	// StatsDir optionally points at a directory of trainer stat exports
	// to poll. Empty disables the file poller.
	StatsDir string `koanf:"stats_dir"`

	// PollIntervalSeconds controls how often StatsDir is scanned.
	PollIntervalSeconds int `koanf:"poll_interval_seconds"`

	// DecaySweepMinutes controls how often the inactivity decay sweep runs.
	DecaySweepMinutes int `koanf:"decay_sweep_minutes"`

	// HistoryDriver selects the run history backend: sqlite or postgres.
	HistoryDriver string `koanf:"history_driver"`

	// HistoryDSN is the history database DSN. Empty with the sqlite
	// driver means a file inside DataDir.
	HistoryDSN string `koanf:"history_dsn"`

	// MaxQueryLimit caps GET /api/history?limit.
	MaxQueryLimit int `koanf:"max_query_limit"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9090",
		Player:                "local",
		DataDir:               "data",
		BenchmarkFile:         "",
		SessionTimeoutSeconds: 600,
		RankedLength:          3,
		StatsDir:              "",
		PollIntervalSeconds:   2,
		DecaySweepMinutes:     60,
		HistoryDriver:         "sqlite",
		HistoryDSN:            "",
		MaxQueryLimit:         500,
	}
	return c
}
