package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/smartystreets/goconvey/convey"

	"github.com/aimboard/aimboard/internal/adapters/history"
	service "github.com/aimboard/aimboard/internal/app"
	"github.com/aimboard/aimboard/internal/config"
	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/internal/domain/ranked"
)

// testConfig points every data path into a fresh temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New(context.Background())
	cfg.DataDir = t.TempDir()
	return cfg
}

// eventually polls cond until it holds or two seconds pass.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a started service", t, func() {
		svc := service.New(testConfig(t))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		convey.Convey("Start is idempotent", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			stats := svc.GetStats()
			convey.So(stats["started"], convey.ShouldBeTrue)
			convey.So(stats["player"], convey.ShouldEqual, "local")
			convey.So(stats["tracked_scenarios"], convey.ShouldEqual, 0)
		})

		convey.Convey("Stop refuses further ingestion", func() {
			svc.Stop()

			convey.So(svc.GetStats()["started"], convey.ShouldBeFalse)
			err := svc.IngestRun(ctx, model.Run{Scenario: "VT Pasu Rasp Novice", Score: 650})
			convey.So(errors.Is(err, service.ErrNotStarted), convey.ShouldBeTrue)
		})

		convey.Convey("ForceSync without a stats dir syncs nothing", func() {
			convey.So(svc.ForceSync(ctx), convey.ShouldEqual, 0)
		})
	})
}

func TestServiceIngestFlow(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a started service", t, func() {
		svc := service.New(testConfig(t))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		convey.Convey("A manual run flows into session, history and penalty", func() {
			err := svc.IngestRun(ctx, model.Run{Scenario: "VT Pasu Rasp Novice", Score: 650, Seconds: 60})
			convey.So(err, convey.ShouldBeNil)

			snap := svc.SessionSnapshot(ctx)
			convey.So(snap.Active, convey.ShouldBeTrue)
			convey.So(snap.Bests["VT Pasu Rasp Novice"].Score, convey.ShouldEqual, 650)
			convey.So(snap.BestRanks["novice"].Rank, convey.ShouldEqual, "Bronze")

			entries, err := svc.RecentRuns(ctx, history.Query{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldHaveLength, 1)
			convey.So(entries[0].ID, convey.ShouldNotBeEmpty)
			convey.So(entries[0].Player, convey.ShouldEqual, "local")
			convey.So(entries[0].Rank, convey.ShouldEqual, "Bronze")
			convey.So(entries[0].SessionID, convey.ShouldEqual, snap.ID)

			view, err := svc.ScenarioEstimate(ctx, "VT Pasu Rasp Novice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(view.Estimate.Penalty, convey.ShouldAlmostEqual, 0.5, 0.0001)
			convey.So(view.Estimate.ContinuousValue, convey.ShouldEqual, 0)
			convey.So(view.Display.Name, convey.ShouldEqual, "Unranked")

			stats, err := svc.RunStats(ctx, "", "VT Pasu Rasp Novice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.PlayCount, convey.ShouldEqual, 1)
			convey.So(stats.BestScore, convey.ShouldEqual, 650)

			convey.Convey("And the session reset clears the window", func() {
				svc.ResetSession(ctx)
				convey.So(svc.SessionSnapshot(ctx).Active, convey.ShouldBeFalse)
				convey.So(svc.SessionSnapshot(ctx).Bests, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("Explicit identity fields survive, and re-posts do not double-log", func() {
			playedAt := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
			run := model.Run{
				ID:       "run-1",
				Player:   "ana",
				Scenario: "VT Pasu Rasp Novice",
				Score:    510,
				PlayedAt: playedAt,
			}
			convey.So(svc.IngestRun(ctx, run), convey.ShouldBeNil)
			convey.So(svc.IngestRun(ctx, run), convey.ShouldBeNil)

			entries, err := svc.RecentRuns(ctx, history.Query{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldHaveLength, 1)
			convey.So(entries[0].ID, convey.ShouldEqual, "run-1")
			convey.So(entries[0].Player, convey.ShouldEqual, "ana")
			convey.So(entries[0].PlayedAt, convey.ShouldEqual, playedAt)
			convey.So(entries[0].Rank, convey.ShouldEqual, "Iron")
		})

		convey.Convey("Unknown names are rejected with the catalog sentinels", func() {
			_, err := svc.ScenarioEstimate(ctx, "No Such Scenario")
			convey.So(errors.Is(err, bench.ErrUnknownScenario), convey.ShouldBeTrue)

			_, err = svc.Estimates(ctx, "celestial")
			convey.So(errors.Is(err, bench.ErrUnknownDifficulty), convey.ShouldBeTrue)

			_, err = svc.HolisticRank(ctx, "celestial")
			convey.So(errors.Is(err, bench.ErrUnknownDifficulty), convey.ShouldBeTrue)

			_, err = svc.StartRanked(ctx, "celestial")
			convey.So(errors.Is(err, bench.ErrUnknownDifficulty), convey.ShouldBeTrue)
		})

		convey.Convey("Estimates lists only played scenarios, filtered by difficulty", func() {
			convey.So(svc.IngestRun(ctx, model.Run{Scenario: "VT Pasu Rasp Novice", Score: 650}), convey.ShouldBeNil)

			all, err := svc.Estimates(ctx, "")
			convey.So(err, convey.ShouldBeNil)
			convey.So(all, convey.ShouldHaveLength, 1)
			convey.So(all[0].Scenario, convey.ShouldEqual, "VT Pasu Rasp Novice")
			convey.So(all[0].Category, convey.ShouldEqual, "clicking")
			convey.So(all[0].Difficulty, convey.ShouldEqual, "novice")

			novice, err := svc.Estimates(ctx, "novice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(novice, convey.ShouldHaveLength, 1)

			advanced, err := svc.Estimates(ctx, "advanced")
			convey.So(err, convey.ShouldBeNil)
			convey.So(advanced, convey.ShouldBeEmpty)
		})

		convey.Convey("The holistic rank of an unplayed ladder is Unranked", func() {
			r, err := svc.HolisticRank(ctx, "novice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(r.Level, convey.ShouldEqual, 0)
			convey.So(r.Name, convey.ShouldEqual, "Unranked")
		})
	})
}

func TestServiceRanked(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a started service", t, func() {
		svc := service.New(testConfig(t))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		convey.Convey("The ranked flow delegates to the state machine", func() {
			convey.So(svc.RankedState(ctx).Status, convey.ShouldEqual, ranked.StatusIdle)

			st, err := svc.StartRanked(ctx, "novice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(st.Status, convey.ShouldEqual, ranked.StatusActive)
			convey.So(st.Sequence, convey.ShouldHaveLength, 3)

			_, err = svc.StartRanked(ctx, "novice")
			convey.So(errors.Is(err, ranked.ErrSessionInProgress), convey.ShouldBeTrue)

			st, err = svc.AdvanceRanked(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(st.Current, convey.ShouldEqual, 1)

			st, err = svc.RetreatRanked(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(st.Current, convey.ShouldEqual, 0)

			convey.So(svc.ResetRanked(ctx), convey.ShouldBeNil)
			convey.So(svc.RankedState(ctx).Status, convey.ShouldEqual, ranked.StatusIdle)
		})
	})
}

func TestServicePolling(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a service polling a stats directory", t, func() {
		statsDir := t.TempDir()
		writeStats := func(name, body string) {
			convey.So(os.WriteFile(filepath.Join(statsDir, name), []byte(body), 0o644), convey.ShouldBeNil)
		}
		writeStats("VT Smoothbot Novice - 2025.07.12-10.30.00 Stats.csv", "Score:,2900\nDuration:,60\n")

		cfg := testConfig(t)
		cfg.StatsDir = statsDir
		// Keep the ticker out of the way; only the startup poll and
		// explicit syncs should deliver runs.
		cfg.PollIntervalSeconds = 3600

		svc := service.New(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		convey.Convey("The startup poll ingests existing stat files", func() {
			found := eventually(func() bool {
				entries, err := svc.RecentRuns(ctx, history.Query{})
				return err == nil && len(entries) == 1
			})
			convey.So(found, convey.ShouldBeTrue)

			entries, err := svc.RecentRuns(ctx, history.Query{Scenario: "VT Smoothbot Novice"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldHaveLength, 1)
			convey.So(entries[0].Rank, convey.ShouldEqual, "Bronze")

			convey.Convey("And a forced sync picks up a new file at once", func() {
				writeStats("VT Smoothbot Novice - 2025.07.12-11.00.00 Stats.csv", "Score:,3300\nDuration:,60\n")

				convey.So(svc.ForceSync(ctx), convey.ShouldEqual, 1)

				entries, err := svc.RecentRuns(ctx, history.Query{Scenario: "VT Smoothbot Novice"})
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 2)

				stats, err := svc.RunStats(ctx, "", "VT Smoothbot Novice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.PlayCount, convey.ShouldEqual, 2)
				convey.So(stats.BestScore, convey.ShouldEqual, 3300)
			})
		})
	})
}
