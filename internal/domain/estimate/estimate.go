// Package estimate maintains per-scenario continuous rank estimates.
//
// A scenario estimate is measured in rank units: the integer part is the
// achieved rank tier, the fractional part is progress toward the next tier.
// Estimates only ever rise through evolution; inactivity decay and the
// overplay penalty pull the surfaced value back down.
package estimate

import "time"

// ScenarioEstimate is the persisted skill state for one scenario.
type ScenarioEstimate struct {
	// ContinuousValue is the current rank-unit estimate.
	ContinuousValue float64 `json:"continuous_value"`

	// HighestAchieved is the peak rank-unit value ever reached. Decay
	// never pulls ContinuousValue more than two units below it.
	HighestAchieved float64 `json:"highest_achieved"`

	// Penalty accumulates with repeated plays and subtracts from the
	// surfaced value. It recovers with rest, not with play.
	Penalty float64 `json:"penalty"`

	// LastUpdated drives the inactivity decay clock.
	LastUpdated time.Time `json:"last_updated"`

	// LastPlayed records the most recent play of the scenario.
	LastPlayed time.Time `json:"last_played"`

	// LastDecayed guards the daily penalty lift.
	LastDecayed time.Time `json:"last_decayed"`
}

// Effective is the surfaced rank-unit value: the continuous estimate less
// the overplay penalty, never negative.
func (e ScenarioEstimate) Effective() float64 {
	v := e.ContinuousValue - e.Penalty
	if v < 0 {
		return 0
	}
	return v
}

// Gap is how far the estimate has fallen from its peak.
func (e ScenarioEstimate) Gap() float64 {
	return e.HighestAchieved - e.ContinuousValue
}

// EstimatedRank is a rank-unit value mapped onto a difficulty's rank ladder
// for display.
type EstimatedRank struct {
	Value    float64 `json:"value"`
	Level    int     `json:"level"`
	Name     string  `json:"name"`
	Progress int     `json:"progress"`
}
