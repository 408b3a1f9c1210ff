package estimate

import (
	"context"
	"math"
	"time"

	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// Decay constants. An idle scenario drifts toward a floor two rank units
// below its peak: exponentially with a 30 day half-life, but never slower
// than a straight line that lands on the floor at 90 days.
const (
	decayWindow      = 2.0
	halfLifeDays     = 30.0
	linearZeroDays   = 90.0
	penaltyCeiling   = 5.0
	penaltyStep      = 0.1
	penaltyLiftStep  = 0.5
	penaltyDecayRate = 0.5
	writeTolerance   = 0.001
)

// ApplyDailyDecay lowers estimates for every scenario idle for more than a
// day and bleeds off accumulated penalty proportionally to the idle time.
// Scenarios already at or below their decay floor are untouched. Only
// entries that actually change are written back, so re-running the sweep
// within the same day is a no-op. Returns how many estimates changed.
func (est *Estimator) ApplyDailyDecay(ctx context.Context) (int, error) {
	est.mu.Lock()
	defer est.mu.Unlock()

	m := est.load(ctx)
	now := est.clk.Now()
	adjusted := 0

	for name, e := range m {
		if e.LastUpdated.IsZero() {
			continue
		}
		idle := now.Sub(e.LastUpdated)
		if idle <= 24*time.Hour {
			continue
		}
		days := idle.Hours() / 24

		next := e
		floor := e.HighestAchieved - decayWindow
		if e.ContinuousValue > floor {
			exponential := floor + (e.ContinuousValue-floor)*math.Pow(0.5, days/halfLifeDays)
			linear := e.ContinuousValue - (e.ContinuousValue-floor)*(days/linearZeroDays)
			decayed := math.Max(floor, math.Min(exponential, linear))
			next.ContinuousValue = math.Max(0, decayed)
		}
		next.Penalty = math.Max(0, e.Penalty-penaltyDecayRate*days)

		if math.Abs(next.ContinuousValue-e.ContinuousValue) < writeTolerance &&
			math.Abs(next.Penalty-e.Penalty) < writeTolerance {
			continue
		}
		next.LastUpdated = now
		m[name] = next
		adjusted++
	}

	if adjusted > 0 {
		if err := est.persist(ctx, m); err != nil {
			return 0, err
		}
		est.log.Info(ctx, "decay sweep applied", logger.Int("adjusted", adjusted))
	}
	metrics.RecordDecaySweep(adjusted)
	return adjusted, nil
}

// ApplyPenaltyLift grants the flat daily penalty recovery: once per
// calendar day (UTC) each penalized scenario recovers half a rank unit.
// Repeat calls on the same day are no-ops. Returns how many scenarios
// recovered.
func (est *Estimator) ApplyPenaltyLift(ctx context.Context) (int, error) {
	est.mu.Lock()
	defer est.mu.Unlock()

	m := est.load(ctx)
	now := est.clk.Now()
	today := now.UTC().Truncate(24 * time.Hour)
	lifted := 0

	for name, e := range m {
		if e.Penalty <= 0 {
			continue
		}
		if !e.LastDecayed.IsZero() && !e.LastDecayed.UTC().Truncate(24*time.Hour).Before(today) {
			continue
		}
		e.Penalty = math.Max(0, e.Penalty-penaltyLiftStep)
		e.LastDecayed = now
		m[name] = e
		lifted++
	}

	if lifted > 0 {
		if err := est.persist(ctx, m); err != nil {
			return 0, err
		}
		est.log.Info(ctx, "penalty lift applied", logger.Int("lifted", lifted))
		metrics.RecordPenaltyLifts(lifted)
	}
	return lifted, nil
}
