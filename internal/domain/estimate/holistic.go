package estimate

import (
	"context"
	"math"

	"github.com/aimboard/aimboard/internal/domain/rank"
)

// HolisticRank aggregates every scenario estimate of a difficulty into one
// displayed rank. Averaging is hierarchical: scenarios average within their
// subcategory, subcategories within their category, categories into the
// final value. Each category therefore weighs the same no matter how many
// scenarios it contains. Scenarios without an estimate contribute zero, and
// no scenario can contribute more than the ladder's top rank level.
func (est *Estimator) HolisticRank(ctx context.Context, difficulty string) EstimatedRank {
	pool, err := est.catalog.Scenarios(difficulty)
	if err != nil || len(pool) == 0 {
		return est.EstimateForValue(0, difficulty)
	}
	m := est.EstimateMap(ctx)
	maxLevel := float64(est.catalog.MaxRankLevel(difficulty))

	byCategory := make(map[string]map[string][]float64)
	for _, s := range pool {
		v := m[s.Name].Effective()
		if v > maxLevel {
			v = maxLevel
		}
		if byCategory[s.Category] == nil {
			byCategory[s.Category] = make(map[string][]float64)
		}
		byCategory[s.Category][s.Subcategory] = append(byCategory[s.Category][s.Subcategory], v)
	}

	var categoryAverages []float64
	for _, subs := range byCategory {
		var subAverages []float64
		for _, values := range subs {
			subAverages = append(subAverages, mean(values))
		}
		categoryAverages = append(categoryAverages, mean(subAverages))
	}
	return est.EstimateForValue(mean(categoryAverages), difficulty)
}

// EstimateForValue maps a rank-unit value onto a difficulty's rank ladder.
// The integer part picks the rank name, the fraction becomes a progress
// percentage capped at 99. Values past the end of the ladder keep the last
// rank name. Values below 1 display as Unranked.
func (est *Estimator) EstimateForValue(value float64, difficulty string) EstimatedRank {
	if value < 0 || math.IsNaN(value) {
		value = 0
	}
	level := int(math.Floor(value))
	progress := int(math.Round((value - math.Floor(value)) * 100))
	if progress > 99 {
		progress = 99
	}

	name := rank.Unranked
	if level >= 1 {
		if names, err := est.catalog.RankNames(difficulty); err == nil && len(names) > 0 {
			idx := level - 1
			if idx >= len(names) {
				idx = len(names) - 1
			}
			name = names[idx]
		}
	}
	return EstimatedRank{Value: value, Level: level, Name: name, Progress: progress}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
