package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/aimboard/aimboard/internal/seedruns"
)

// Default configuration constants.
const (
	defaultNumRuns     = 200
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSeedTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9090", "Base URL of the dashboard")
		numRuns    = flag.Int("runs", defaultNumRuns, "Number of runs to generate and submit")
		difficulty = flag.String("difficulty", "", "Restrict scenarios to one benchmark difficulty (default: all)")
		player     = flag.String("player", "", "Player name on generated runs (default: dashboard's configured player)")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated runs (default: seeded_runs_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for seeder output (default: seed_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seedruns.ShowHelp()
		return
	}

	// Setup logging
	if err := seedruns.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSeedTimeout)
	defer cancel()

	// Create seeder configuration
	config := &seedruns.Config{
		BaseURL:    *baseURL,
		NumRuns:    *numRuns,
		Difficulty: *difficulty,
		Player:     *player,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the seeder
	if err := seedruns.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		return
	}
}
