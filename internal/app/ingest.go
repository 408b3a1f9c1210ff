// Package service assembles the dashboard: it owns every domain component
// and exposes the operations the HTTP layer serves.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/internal/domain/rank"
	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// Ingest is the single intake path for score runs: the poller delivers
// batches here and manual posts arrive one at a time through IngestRun.
// Runs fold into the practice session, append to the history log, and
// charge the overplay penalty for catalog scenarios. History failures are
// logged, never propagated; a run that made it into the session is
// accepted.
func (s *Service) Ingest(ctx context.Context, runs []model.Run) error {
	if !s.ready() {
		return ErrNotStarted
	}
	if len(runs) == 0 {
		return nil
	}

	batch := make([]model.Run, 0, len(runs))
	for _, run := range runs {
		batch = append(batch, s.normalize(run))
	}
	s.sess.RegisterRuns(ctx, batch)
	sessionID := s.sess.Snapshot().ID

	for _, run := range batch {
		metrics.RecordRunIngested()
		if err := s.hist.Record(ctx, run, s.rankName(run), sessionID); err != nil {
			s.log.Warn(ctx, "history append failed",
				logger.String("run_id", run.ID),
				logger.Error(err),
			)
		}
		if _, err := s.catalog.Scenario(run.Scenario); err != nil {
			continue
		}
		if err := s.est.RecordPlay(ctx, run.Scenario); err != nil {
			s.log.Warn(ctx, "overplay charge failed",
				logger.String("scenario", run.Scenario),
				logger.Error(err),
			)
		}
	}
	return nil
}

// IngestRun feeds one manually posted run through the batch pipeline.
func (s *Service) IngestRun(ctx context.Context, run model.Run) error {
	return s.Ingest(ctx, []model.Run{run})
}

// ForceSync polls every configured source once, outside the regular
// cadence. Without a stats directory there is nothing to sync.
func (s *Service) ForceSync(ctx context.Context) int {
	if !s.ready() || s.poller == nil {
		return 0
	}
	return s.poller.Poll(ctx)
}

// normalize fills the identity fields a manual post may omit. Polled runs
// arrive complete and pass through unchanged.
func (s *Service) normalize(run model.Run) model.Run {
	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if run.Player == "" {
		run.Player = s.cfg.Player
	}
	if run.PlayedAt.IsZero() {
		run.PlayedAt = s.clk.Now()
	}
	return run
}

// rankName resolves the discrete rank a run's score maps to, for the
// history log. Runs on scenarios outside the catalog stay unranked.
func (s *Service) rankName(run model.Run) string {
	sc, err := s.catalog.Scenario(run.Scenario)
	if err != nil {
		return ""
	}
	return rank.Calculate(run.Score, sc.Thresholds).Rank
}
