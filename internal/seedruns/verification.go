package seedruns

import (
	"log"
	"sort"
)

// verifyResults checks that the dashboard absorbed the seeded runs: every
// seeded scenario is tracked, and session bests match the best generated
// scores.
func verifyResults(config *Config, runs []runPayload, estimates []estimateView, snap sessionSnapshot, ranks map[string]estimatedRank, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	// Best generated score per seeded scenario
	bestGenerated := make(map[string]float64)
	for _, run := range runs {
		if run.Score > bestGenerated[run.Scenario] {
			bestGenerated[run.Scenario] = run.Score
		}
	}
	stats.ScenariosCovered = len(bestGenerated)

	tracked := make(map[string]estimateView, len(estimates))
	for _, view := range estimates {
		tracked[view.Scenario] = view
	}

	// Every seeded scenario should be tracked. A miss usually means the
	// dashboard runs a different benchmark catalog than the seeder.
	missing := 0
	for scenario := range bestGenerated {
		if _, ok := tracked[scenario]; !ok {
			missing++
			if config.Verbose {
				log.Printf("⚠️  Scenario not tracked: %s", scenario)
			}
		}
	}
	if missing > 0 {
		log.Printf("⚠️  %d of %d seeded scenarios are not tracked by the dashboard", missing, len(bestGenerated))
	} else {
		log.Printf("✅ All %d seeded scenarios are tracked", len(bestGenerated))
	}

	// Session bests should match the best scores we generated.
	if !snap.Active {
		log.Println("⚠️  Practice session is not active after seeding")
	}
	mismatched := 0
	for scenario, best := range bestGenerated {
		entry, ok := snap.Bests[scenario]
		if !ok {
			continue
		}
		if entry.Score < best {
			mismatched++
			if config.Verbose {
				log.Printf("⚠️  Session best for %s is %.1f, expected at least %.1f", scenario, entry.Score, best)
			}
		}
	}
	if mismatched > 0 {
		log.Printf("⚠️  %d session bests fall short of the generated scores", mismatched)
	} else {
		log.Printf("✅ Session bests match the generated scores (%d recorded)", len(snap.Bests))
	}

	displayTopEstimates(estimates, ranks, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// displayTopEstimates shows the strongest tracked scenarios and the
// holistic rank per difficulty.
func displayTopEstimates(estimates []estimateView, ranks map[string]estimatedRank, verbose bool) {
	sorted := make([]estimateView, len(estimates))
	copy(sorted, estimates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Display.Level != sorted[j].Display.Level {
			return sorted[i].Display.Level > sorted[j].Display.Level
		}
		return sorted[i].Estimate.ContinuousValue > sorted[j].Estimate.ContinuousValue
	})

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("🏆 Top %d tracked scenarios:", topN)
	for i := 0; i < topN; i++ {
		view := sorted[i]
		log.Printf("   %d. %s - %s (value: %.2f, penalty: %.2f)",
			i+1, view.Scenario, view.Display.Name, view.Estimate.ContinuousValue, view.Estimate.Penalty)
	}

	difficulties := make([]string, 0, len(ranks))
	for difficulty := range ranks {
		difficulties = append(difficulties, difficulty)
	}
	sort.Strings(difficulties)

	if len(difficulties) > 0 {
		log.Println("🥇 Holistic ranks:")
		for _, difficulty := range difficulties {
			rank := ranks[difficulty]
			log.Printf("   %s: %s (level %d, %d%%)", difficulty, rank.Name, rank.Level, rank.Progress)
		}
	}

	if verbose && len(sorted) > 0 {
		maxValue := sorted[0].Estimate.ContinuousValue
		minValue := sorted[len(sorted)-1].Estimate.ContinuousValue
		avgValue := calculateAverageValue(sorted)

		log.Printf(`📊 Estimate statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, avgValue, maxValue, minValue)
	}
}

// calculateAverageValue calculates the average continuous value across
// tracked estimates.
func calculateAverageValue(estimates []estimateView) float64 {
	if len(estimates) == 0 {
		return 0
	}

	sum := 0.0
	for _, view := range estimates {
		sum += view.Estimate.ContinuousValue
	}

	return sum / float64(len(estimates))
}
