package seedruns

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/aimboard/aimboard/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "seed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the run seeder.
func ShowHelp() {
	os.Stdout.WriteString(`Aimboard Run Seeder
===================

A concurrent tool for exercising a running aimboard dashboard with
synthetic scenario runs drawn from the built-in benchmark catalog.

Usage:
  go run cmd/seed-runs/main.go [options]

Options:
  -url string
        Base URL of the dashboard (default "http://localhost:9090")
  -runs int
        Number of runs to generate and submit (default 200)
  -difficulty string
        Restrict scenarios to one benchmark difficulty (default: all)
  -player string
        Player name on generated runs (default: dashboard's configured player)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated runs (default: seeded_runs_TIMESTAMP.json)
  -log string
        Log file for seeder output (default: seed_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/seed-runs/main.go

  # Seed only novice scenarios with custom parameters
  go run cmd/seed-runs/main.go -runs 500 -difficulty novice -workers 8

  # Seed a different dashboard with verbose output
  go run cmd/seed-runs/main.go -verbose -url http://localhost:8080

The seeder assumes the dashboard serves the built-in benchmark catalog;
runs for scenarios outside the dashboard's catalog are logged but never
tracked as estimates.
`)
}
