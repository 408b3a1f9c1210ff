package seedruns

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes a complete seeding pass.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting aimboard run seeder",
		logger.String("baseURL", config.BaseURL),
		logger.Int("runs", config.NumRuns),
		logger.String("difficulty", config.Difficulty),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check dashboard health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("dashboard health check failed: %w", err)
	}

	// Step 2: Collect the scenario pool from the benchmark catalog
	pool, err := scenarioPool(config)
	if err != nil {
		return fmt.Errorf("scenario pool selection failed: %w", err)
	}

	// Step 3: Generate runs
	runs, err := generateRuns(ctx, config, pool, stats)
	if err != nil {
		return fmt.Errorf("run generation failed: %w", err)
	}

	// Step 4: Submit runs concurrently
	if err := submitRuns(ctx, config, runs, stats); err != nil {
		return fmt.Errorf("run submission failed: %w", err)
	}

	// Step 5: Let the dashboard fold the runs in
	logger.Get().Info(ctx, "waiting for runs to settle")
	time.Sleep(SettleDelay)

	// Step 6: Read back tracked estimates
	estimates, err := fetchEstimates(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("estimate readback failed: %w", err)
	}

	// Step 7: Read back the session window
	snap, err := fetchSession(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("session readback failed: %w", err)
	}

	// Step 8: Read back holistic ranks per seeded difficulty
	ranks := fetchHolisticRanks(ctx, config, seededDifficulties(pool))

	// Step 9: Verify results
	if err := verifyResults(config, runs, estimates, snap, ranks, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 10: Save runs to file
	if err := saveRunsToFile(ctx, config, runs); err != nil {
		logger.Get().Warn(ctx, "failed to save runs to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "seeding completed successfully")
	return nil
}

// checkServiceHealth verifies the dashboard is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking dashboard health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to dashboard: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("dashboard health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "dashboard is healthy")
	return nil
}

// saveRunsToFile saves the generated runs to a JSON file.
func saveRunsToFile(ctx context.Context, config *Config, runs []runPayload) error {
	if len(runs) == 0 {
		return fmt.Errorf("no runs to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "seeded_runs_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write runs to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, run := range runs {
		jsonData, err := marshalJSON(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write run %d: %w", i, err)
		}

		// Add comma except for last run
		if i < len(runs)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "runs saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final seeding statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, runsPerSecond float64

	if stats.RunsSubmitted > 0 {
		acceptRate = float64(stats.RunsAccepted) / float64(stats.RunsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("runsGenerated", stats.RunsGenerated),
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsAccepted", stats.RunsAccepted),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("scenariosCovered", stats.ScenariosCovered),
		logger.Int("estimatesTracked", stats.EstimatesTracked),
		logger.Int("sessionBests", stats.SessionBests),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("runsPerSecond", runsPerSecond))
}

// seededDifficulties lists the distinct difficulties present in the pool,
// in first-seen order.
func seededDifficulties(pool []*bench.Scenario) []string {
	seen := make(map[string]bool, len(pool))
	var difficulties []string
	for _, sc := range pool {
		if !seen[sc.Difficulty] {
			seen[sc.Difficulty] = true
			difficulties = append(difficulties, sc.Difficulty)
		}
	}
	return difficulties
}
