package ranked

import (
	"context"
	"math"
	"sort"
)

// diversityMargin is the continuous-value distance within which a
// different-category scenario may replace the third pick.
const diversityMargin = 1.0

// candidate is one scenario in the selection pool with its current
// estimate readings.
type candidate struct {
	name     string
	category string
	cv       float64
	gap      float64
}

// buildSequence picks scenarios for a ranked round using the
// Strong-Weak-Weak heuristic:
//
//   - slot one takes the scenario with the widest gap below its recorded
//     peak, the strongest reinforcement target;
//   - the remaining slots take the lowest continuous values, with the third
//     pick swapped for a close different-category alternative when it would
//     repeat the second pick's category.
//
// Estimates the player has never touched read as zero. Ties break on the
// scenario name so the pick is deterministic. The returned map freezes the
// continuous value of every pick at build time.
func (s *Service) buildSequence(ctx context.Context, difficulty string, exclude map[string]bool, want int) ([]string, map[string]float64) {
	pool, err := s.catalog.Scenarios(difficulty)
	if err != nil || want <= 0 {
		return nil, nil
	}

	cands := make([]candidate, 0, len(pool))
	for _, sc := range pool {
		if exclude[sc.Name] {
			continue
		}
		c := candidate{name: sc.Name, category: sc.Category}
		if e, ok := s.est.Estimate(ctx, sc.Name); ok {
			c.cv = e.ContinuousValue
			c.gap = e.Gap()
		}
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].gap != cands[j].gap {
			return cands[i].gap > cands[j].gap
		}
		return cands[i].name < cands[j].name
	})
	picks := []candidate{cands[0]}

	weak := append([]candidate(nil), cands[1:]...)
	sort.Slice(weak, func(i, j int) bool {
		if weak[i].cv != weak[j].cv {
			return weak[i].cv < weak[j].cv
		}
		return weak[i].name < weak[j].name
	})

	used := map[string]bool{picks[0].name: true}
	for _, w := range weak {
		if len(picks) >= want {
			break
		}
		if used[w.name] {
			continue
		}
		if len(picks) == 2 && w.category == picks[1].category {
			if alt, ok := diversitySwap(weak, used, w); ok {
				w = alt
			}
		}
		picks = append(picks, w)
		used[w.name] = true
	}

	sequence := make([]string, len(picks))
	initial := make(map[string]float64, len(picks))
	for i, p := range picks {
		sequence[i] = p.name
		initial[p.name] = p.cv
	}
	return sequence, initial
}

// diversitySwap looks for an unused scenario in a different category whose
// continuous value sits within the margin of the would-be third pick.
func diversitySwap(weak []candidate, used map[string]bool, pick candidate) (candidate, bool) {
	for _, alt := range weak {
		if used[alt.name] || alt.name == pick.name {
			continue
		}
		if alt.category != pick.category && math.Abs(alt.cv-pick.cv) < diversityMargin {
			return alt, true
		}
	}
	return candidate{}, false
}
