package estimate

import (
	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/rank"
)

// ContinuousValue converts a raw score into rank units against a threshold
// ladder. The base level is the satisfied threshold's index plus one, so an
// integer part of 1 means the first rank is held. Below the first threshold
// the value is the fraction of that threshold reached. Past the last
// threshold the fraction extrapolates over the ladder's virtual interval.
// Degenerate ladders map to 0 rather than failing.
func ContinuousValue(score float64, thresholds []bench.Threshold) float64 {
	if len(thresholds) == 0 || score <= 0 {
		return 0
	}

	idx := rank.Index(score, thresholds)
	switch {
	case idx < 0:
		first := thresholds[0].Score
		if first <= 0 {
			return 0
		}
		return score / first

	case idx == len(thresholds)-1:
		span := rank.VirtualInterval(thresholds)
		if span <= 0 {
			span = 1
		}
		return float64(idx+1) + (score-thresholds[idx].Score)/span

	default:
		lower := thresholds[idx].Score
		span := thresholds[idx+1].Score - lower
		if span <= 0 {
			span = 1
		}
		return float64(idx+1) + (score-lower)/span
	}
}
