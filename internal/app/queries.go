// Package service assembles the dashboard: it owns every domain component
// and exposes the operations the HTTP layer serves.
package service

import (
	"context"
	"sort"

	"github.com/aimboard/aimboard/internal/adapters/history"
	"github.com/aimboard/aimboard/internal/adapters/http/api"
	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/estimate"
	"github.com/aimboard/aimboard/internal/domain/ranked"
	"github.com/aimboard/aimboard/internal/domain/session"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// Estimates lists every tracked scenario the catalog knows, sorted by
// name. A non-empty difficulty filters to that ladder and must exist.
func (s *Service) Estimates(ctx context.Context, difficulty string) ([]api.EstimateView, error) {
	if difficulty != "" {
		if _, err := s.catalog.Scenarios(difficulty); err != nil {
			return nil, err
		}
	}

	m := s.est.EstimateMap(ctx)
	views := make([]api.EstimateView, 0, len(m))
	for name, e := range m {
		sc, err := s.catalog.Scenario(name)
		if err != nil {
			continue
		}
		if difficulty != "" && sc.Difficulty != difficulty {
			continue
		}
		views = append(views, s.viewFor(sc, e))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Scenario < views[j].Scenario })
	return views, nil
}

// ScenarioEstimate returns the view for one catalog scenario. A scenario
// that has never been played reports a zero estimate.
func (s *Service) ScenarioEstimate(ctx context.Context, scenario string) (api.EstimateView, error) {
	sc, err := s.catalog.Scenario(scenario)
	if err != nil {
		return api.EstimateView{}, err
	}
	e, _ := s.est.Estimate(ctx, scenario)
	return s.viewFor(sc, e), nil
}

// HolisticRank aggregates a difficulty's estimates into one displayed rank.
func (s *Service) HolisticRank(ctx context.Context, difficulty string) (estimate.EstimatedRank, error) {
	if _, err := s.catalog.Scenarios(difficulty); err != nil {
		return estimate.EstimatedRank{}, err
	}
	return s.est.HolisticRank(ctx, difficulty), nil
}

// viewFor joins one scenario's estimate state with its display rank.
func (s *Service) viewFor(sc *bench.Scenario, e estimate.ScenarioEstimate) api.EstimateView {
	return api.EstimateView{
		Scenario:   sc.Name,
		Category:   sc.Category,
		Difficulty: sc.Difficulty,
		Estimate:   e,
		Display:    s.est.EstimateForValue(e.Effective(), sc.Difficulty),
	}
}

// SessionSnapshot returns the current practice window.
func (s *Service) SessionSnapshot(_ context.Context) session.Snapshot {
	return s.sess.Snapshot()
}

// ResetSession discards the current practice window.
func (s *Service) ResetSession(ctx context.Context) {
	s.sess.Reset(ctx)
}

// RankedState returns the ranked session state machine's current state.
func (s *Service) RankedState(_ context.Context) ranked.State {
	return s.ranked.State()
}

// StartRanked begins a ranked session on a known difficulty.
func (s *Service) StartRanked(ctx context.Context, difficulty string) (ranked.State, error) {
	if _, err := s.catalog.Scenarios(difficulty); err != nil {
		return ranked.State{}, err
	}
	return s.ranked.StartSession(ctx, difficulty)
}

// AdvanceRanked moves the ranked cursor to the next scenario.
func (s *Service) AdvanceRanked(ctx context.Context) (ranked.State, error) {
	return s.ranked.Advance(ctx)
}

// RetreatRanked moves the ranked cursor back one scenario.
func (s *Service) RetreatRanked(ctx context.Context) (ranked.State, error) {
	return s.ranked.Retreat(ctx)
}

// ExtendRanked appends another gauntlet to a completed sequence.
func (s *Service) ExtendRanked(ctx context.Context) (ranked.State, error) {
	return s.ranked.ExtendSession(ctx)
}

// EndRanked commits the ranked session and evolves the estimates.
func (s *Service) EndRanked(ctx context.Context) (ranked.State, error) {
	return s.ranked.EndSession(ctx)
}

// ResetRanked abandons any ranked session without evolving anything.
func (s *Service) ResetRanked(ctx context.Context) error {
	return s.ranked.Reset(ctx)
}

// RecentRuns queries the run history log.
func (s *Service) RecentRuns(ctx context.Context, q history.Query) ([]history.Entry, error) {
	return s.hist.Runs(ctx, q)
}

// RunStats aggregates the logged runs of one scenario. An empty player
// defaults to the configured profile.
func (s *Service) RunStats(ctx context.Context, player, scenario string) (history.Stats, error) {
	if player == "" {
		player = s.cfg.Player
	}
	return s.hist.ScenarioStats(ctx, player, scenario)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	started := s.ready()

	stats := map[string]any{
		"started": started,
		"player":  s.cfg.Player,
	}
	if !started {
		return stats
	}

	ctx := context.Background()
	tracked := s.est.Count(ctx)
	stats["tracked_scenarios"] = tracked
	stats["catalog_scenarios"] = s.catalog.Size()
	stats["session_active"] = s.sess.Snapshot().Active
	stats["ranked_status"] = string(s.ranked.State().Status)
	stats["ws_clients"] = s.hub.ClientCount()
	stats["history_driver"] = s.cfg.HistoryDriver

	metrics.UpdateTrackedScenarios(tracked)
	return stats
}
