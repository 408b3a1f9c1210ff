package seedruns

import (
	"context"
	"fmt"
	"log"
	"net/url"
)

// fetchEstimates reads back every tracked estimate, restricted to the
// configured difficulty when set.
func fetchEstimates(ctx context.Context, config *Config, stats *Stats) ([]estimateView, error) {
	log.Printf("🎯 Fetching tracked estimates...")

	client := newHTTPClient(config.Timeout)
	target := config.BaseURL + "/estimates"
	if config.Difficulty != "" {
		target += "?difficulty=" + url.QueryEscape(config.Difficulty)
	}

	resp, err := client.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var views []estimateView
	if err := unmarshalJSON(body, &views); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.EstimatesTracked = len(views)
	log.Printf("✅ Retrieved %d tracked estimates", len(views))

	return views, nil
}

// fetchSession reads back the current practice session window.
func fetchSession(ctx context.Context, config *Config, stats *Stats) (sessionSnapshot, error) {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/session")
	if err != nil {
		return sessionSnapshot{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return sessionSnapshot{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return sessionSnapshot{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var snap sessionSnapshot
	if err := unmarshalJSON(body, &snap); err != nil {
		return sessionSnapshot{}, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.SessionBests = len(snap.Bests)
	return snap, nil
}

// fetchHolisticRanks reads back one holistic rank per seeded difficulty.
// Failures are logged and skipped so one bad difficulty never hides the
// others.
func fetchHolisticRanks(ctx context.Context, config *Config, difficulties []string) map[string]estimatedRank {
	client := newHTTPClient(config.Timeout)
	ranks := make(map[string]estimatedRank, len(difficulties))

	for _, difficulty := range difficulties {
		target := config.BaseURL + "/rank?difficulty=" + url.QueryEscape(difficulty)

		resp, err := client.Get(ctx, target)
		if err != nil {
			log.Printf("⚠️  Failed to get holistic rank for %s: %v", difficulty, err)
			continue
		}

		body, err := readResponseBody(resp)
		if err != nil {
			log.Printf("⚠️  Failed to read holistic rank for %s: %v", difficulty, err)
			continue
		}
		if resp.StatusCode != StatusOK {
			log.Printf("⚠️  Holistic rank for %s: HTTP %d: %s", difficulty, resp.StatusCode, string(body))
			continue
		}

		var rank estimatedRank
		if err := unmarshalJSON(body, &rank); err != nil {
			log.Printf("⚠️  Failed to parse holistic rank for %s: %v", difficulty, err)
			continue
		}
		ranks[difficulty] = rank
	}

	return ranks
}
