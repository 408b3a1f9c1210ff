package seedruns

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	runIDDivisor       = 10000
	scoreTierDivisor   = 8
)

// Constants for score tier cases.
const (
	caseLowerHalf  = 0
	caseUpperHalf  = 1
	caseBelowFloor = 2
	caseAboveCeil  = 3
	caseFarBelow   = 4
	caseMidHigh    = 5
	caseMidLow     = 6
	caseWideRange  = 7
)

// Constants shaping each tier relative to the scenario's threshold ladder.
const (
	halfSpanRatio    = 0.5
	aboveCeilRatio   = 0.1
	farBelowRatio    = 0.5
	midHighStart     = 0.4
	midHighSpanRatio = 0.3
	midLowStart      = 0.1
	midLowSpanRatio  = 0.3
	wideCeilRatio    = 1.1
)

// defaultRunSeconds is the standard scenario length reported on every
// generated run.
const defaultRunSeconds = 60.0

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// scenarioPool collects the scenarios runs will be drawn from, restricted
// to one difficulty when configured.
func scenarioPool(config *Config) ([]*bench.Scenario, error) {
	catalog := bench.Default()

	if config.Difficulty != "" {
		pool, err := catalog.Scenarios(config.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("unknown difficulty %q: %w", config.Difficulty, err)
		}
		return pool, nil
	}

	var pool []*bench.Scenario
	for _, name := range catalog.Difficulties() {
		scs, err := catalog.Scenarios(name)
		if err != nil {
			return nil, err
		}
		pool = append(pool, scs...)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("benchmark catalog has no scenarios")
	}
	return pool, nil
}

// generateRuns creates the configured number of runs, cycling through the
// scenario pool so every scenario gets covered once the run count exceeds
// the pool size.
func generateRuns(ctx context.Context, config *Config, pool []*bench.Scenario, stats *Stats) ([]runPayload, error) {
	logger.Get().Info(ctx, "generating runs across scenario pool",
		logger.Int("numRuns", config.NumRuns),
		logger.Int("scenarios", len(pool)))

	runs := make([]runPayload, config.NumRuns)

	// Generate runs concurrently
	type runResult struct {
		index int
		run   runPayload
		err   error
	}

	resultChan := make(chan runResult, config.NumRuns)

	// Use worker pool for run generation
	workerCount := minInt(config.Workers, config.NumRuns)
	runsPerWorker := config.NumRuns / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * runsPerWorker
		end := start + runsPerWorker
		if worker == workerCount-1 {
			end = config.NumRuns // Last worker gets remaining runs
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- runResult{index: i, err: ctx.Err()}
					return
				default:
					run := generateSingleRun(i, config.Player, pool[i%len(pool)])
					resultChan <- runResult{index: i, run: run, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumRuns; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during run generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate run %d: %w", result.index, result.err)
			}
			runs[result.index] = result.run
		}
	}

	stats.RunsGenerated = len(runs)
	logger.Get().Info(ctx, "generated runs successfully", logger.Int("count", len(runs)))

	return runs, nil
}

// generateSingleRun creates a single run for the given scenario.
func generateSingleRun(index int, player string, sc *bench.Scenario) runPayload {
	score := generateTieredScore(sc)

	// Current timestamp in RFC3339 format
	timestamp := time.Now().UTC().Format(time.RFC3339)

	// Generate unique run ID
	randNum, _ := rand.Int(rand.Reader, big.NewInt(runIDDivisor))
	runID := "seed_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	return runPayload{
		ID:       runID,
		Player:   player,
		Scenario: sc.Name,
		Score:    score,
		Seconds:  defaultRunSeconds,
		PlayedAt: timestamp,
	}
}

// generateTieredScore creates a score with varied distribution relative to
// the scenario's own rank thresholds, so the dashboard sees everything
// from unranked attempts to scores past the top rank.
func generateTieredScore(sc *bench.Scenario) float64 {
	floor := sc.MinScore()
	ceil := sc.MaxScore()
	span := ceil - floor

	randNum, _ := rand.Int(rand.Reader, big.NewInt(scoreTierDivisor))
	switch randNum.Int64() {
	case caseLowerHalf:
		// Lower half of the ladder - most common
		return floor + getRandomFloat()*span*halfSpanRatio
	case caseUpperHalf:
		// Upper half of the ladder
		return floor + span*halfSpanRatio + getRandomFloat()*span*halfSpanRatio
	case caseBelowFloor:
		// Below the entry bar, stays unranked
		return getRandomFloat() * floor
	case caseAboveCeil:
		// Past the top rank - rare
		return ceil + getRandomFloat()*ceil*aboveCeilRatio
	case caseFarBelow:
		// Far below the entry bar - rare
		return getRandomFloat() * floor * farBelowRatio
	case caseMidHigh:
		// Mid-high stretch of the ladder
		return floor + span*midHighStart + getRandomFloat()*span*midHighSpanRatio
	case caseMidLow:
		// Mid-low stretch of the ladder
		return floor + span*midLowStart + getRandomFloat()*span*midLowSpanRatio
	case caseWideRange:
		// Random across the full range including past the top
		return getRandomFloat() * ceil * wideCeilRatio
	default:
		return getRandomFloat() * ceil * wideCeilRatio
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
