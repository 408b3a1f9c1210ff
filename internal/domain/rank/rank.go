// Package rank maps raw scenario scores onto discrete benchmark ranks.
//
// Calculate is a pure function of a score and a threshold ladder; it never
// touches persistent state. The continuous estimate package builds on the
// same threshold walk via Index and VirtualInterval.
package rank

import (
	"math"
	"sort"

	"github.com/aimboard/aimboard/internal/domain/bench"
)

// Unranked names the level below the first threshold.
const Unranked = "Unranked"

// defaultVirtualInterval extrapolates progress past a single-threshold ladder.
const defaultVirtualInterval = 100.0

// Result is the discrete rank a score maps to.
type Result struct {
	Rank     string `json:"rank"`
	Level    int    `json:"level"`
	Progress int    `json:"progress"`
}

// Better reports whether r beats other: a higher level, or the same level
// with higher progress.
func (r Result) Better(other Result) bool {
	if r.Level != other.Level {
		return r.Level > other.Level
	}
	return r.Progress > other.Progress
}

// Index returns the highest threshold index a score satisfies, or -1 when
// the score sits below the first threshold. Thresholds must be sorted by
// ascending score, as the catalog guarantees.
func Index(score float64, thresholds []bench.Threshold) int {
	idx := -1
	for i, t := range thresholds {
		if score >= t.Score {
			idx = i
			continue
		}
		break
	}
	return idx
}

// VirtualInterval is the score span assumed past the highest threshold: the
// gap between the last two thresholds, or a fixed span for a single-rank
// ladder.
func VirtualInterval(thresholds []bench.Threshold) float64 {
	n := len(thresholds)
	if n < 2 {
		return defaultVirtualInterval
	}
	return thresholds[n-1].Score - thresholds[n-2].Score
}

// Calculate maps a score onto the threshold ladder. An empty ladder maps
// everything to Unranked. Progress is a percentage into the current band:
// clamped to [0,100] below the first threshold, extrapolated past 100 above
// the last one.
func Calculate(score float64, thresholds []bench.Threshold) Result {
	if len(thresholds) == 0 {
		return Result{Rank: Unranked, Level: 0, Progress: 0}
	}
	if !sort.SliceIsSorted(thresholds, func(i, j int) bool {
		return thresholds[i].Score < thresholds[j].Score
	}) {
		sorted := append([]bench.Threshold(nil), thresholds...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
		thresholds = sorted
	}

	idx := Index(score, thresholds)
	switch {
	case idx < 0:
		first := thresholds[0].Score
		if first <= 0 {
			return Result{Rank: Unranked, Level: 0, Progress: 0}
		}
		pct := int(math.Round(score / first * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return Result{Rank: Unranked, Level: 0, Progress: pct}

	case idx == len(thresholds)-1:
		span := VirtualInterval(thresholds)
		pct := int(math.Round((score - thresholds[idx].Score) / span * 100))
		return Result{Rank: thresholds[idx].Rank, Level: idx + 1, Progress: pct}

	default:
		lower := thresholds[idx].Score
		upper := thresholds[idx+1].Score
		span := upper - lower
		if span <= 0 {
			span = 1
		}
		pct := int(math.Round((score - lower) / span * 100))
		return Result{Rank: thresholds[idx].Rank, Level: idx + 1, Progress: pct}
	}
}
