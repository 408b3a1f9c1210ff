package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/aimboard/aimboard/internal/adapters/history"
	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/pkg/clock"
)

var logBase = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

func openTestLog(t *testing.T) *history.Log {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "history.db") + "?_pragma=busy_timeout(5000)"
	db, err := history.Open(context.Background(), history.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open history db: %v", err)
	}
	l := history.NewLog(db,
		history.WithMaxLimit(10),
		history.WithClock(clock.NewManual(logBase)))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func loggedRun(id, player, scenario string, score float64, at time.Time) model.Run {
	return model.Run{
		ID:       id,
		Player:   player,
		Scenario: scenario,
		Score:    score,
		Seconds:  60,
		PlayedAt: at,
	}
}

func TestRecordAndQuery(t *testing.T) {
	convey.Convey("Given a run log over sqlite", t, func() {
		ctx := context.Background()
		l := openTestLog(t)

		convey.Convey("When a run records with its context", func() {
			run := loggedRun("r1", "local", "VT Pasu Rasp Novice", 600, logBase)
			convey.So(l.Record(ctx, run, "Silver", "sess-1"), convey.ShouldBeNil)

			entries, err := l.Runs(ctx, history.Query{})

			convey.Convey("Then it reads back complete", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 1)
				convey.So(entries[0].ID, convey.ShouldEqual, "r1")
				convey.So(entries[0].Scenario, convey.ShouldEqual, "VT Pasu Rasp Novice")
				convey.So(entries[0].Score, convey.ShouldEqual, 600)
				convey.So(entries[0].Rank, convey.ShouldEqual, "Silver")
				convey.So(entries[0].SessionID, convey.ShouldEqual, "sess-1")
				convey.So(entries[0].PlayedAt, convey.ShouldEqual, logBase)
				convey.So(entries[0].RecordedAt, convey.ShouldEqual, logBase)
			})

			convey.Convey("And re-recording the same id changes nothing", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Record(ctx, run, "Silver", "sess-1"), convey.ShouldBeNil)
				again, err := l.Runs(ctx, history.Query{})
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When several runs are logged", func() {
			convey.So(l.Record(ctx, loggedRun("r1", "local", "VT Pasu Rasp Novice", 600, logBase), "Iron", "s1"), convey.ShouldBeNil)
			convey.So(l.Record(ctx, loggedRun("r2", "local", "VT Pasu Rasp Novice", 700, logBase.Add(time.Hour)), "Bronze", "s1"), convey.ShouldBeNil)
			convey.So(l.Record(ctx, loggedRun("r3", "local", "VT Smoothbot Novice", 2500, logBase.Add(2*time.Hour)), "Iron", "s2"), convey.ShouldBeNil)
			convey.So(l.Record(ctx, loggedRun("r4", "alt", "VT Pasu Rasp Novice", 650, logBase.Add(3*time.Hour)), "Iron", "s3"), convey.ShouldBeNil)

			convey.Convey("Then queries come back newest first", func() {
				entries, err := l.Runs(ctx, history.Query{})
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 4)
				convey.So(entries[0].ID, convey.ShouldEqual, "r4")
				convey.So(entries[3].ID, convey.ShouldEqual, "r1")
			})

			convey.Convey("And filters narrow by player, scenario and time", func() {
				byPlayer, err := l.Runs(ctx, history.Query{Player: "local"})
				convey.So(err, convey.ShouldBeNil)
				convey.So(byPlayer, convey.ShouldHaveLength, 3)

				byScenario, err := l.Runs(ctx, history.Query{Player: "local", Scenario: "VT Pasu Rasp Novice"})
				convey.So(err, convey.ShouldBeNil)
				convey.So(byScenario, convey.ShouldHaveLength, 2)
				convey.So(byScenario[0].ID, convey.ShouldEqual, "r2")

				since, err := l.Runs(ctx, history.Query{Since: logBase.Add(30 * time.Minute)})
				convey.So(err, convey.ShouldBeNil)
				convey.So(since, convey.ShouldHaveLength, 3)

				until, err := l.Runs(ctx, history.Query{Until: logBase.Add(90 * time.Minute)})
				convey.So(err, convey.ShouldBeNil)
				convey.So(until, convey.ShouldHaveLength, 2)

				one, err := l.Runs(ctx, history.Query{Limit: 1})
				convey.So(err, convey.ShouldBeNil)
				convey.So(one, convey.ShouldHaveLength, 1)
				convey.So(one[0].ID, convey.ShouldEqual, "r4")
			})
		})

		convey.Convey("When more rows exist than the configured cap", func() {
			for i := 0; i < 12; i++ {
				run := loggedRun(fmt.Sprintf("run-%02d", i), "local", "VT Angleshot Novice",
					float64(500+i), logBase.Add(time.Duration(i)*time.Minute))
				convey.So(l.Record(ctx, run, "Iron", "s1"), convey.ShouldBeNil)
			}

			convey.Convey("Then oversized requests are clamped to the cap", func() {
				entries, err := l.Runs(ctx, history.Query{Limit: 9999})
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 10)
				convey.So(entries[0].ID, convey.ShouldEqual, "run-11")
			})
		})
	})
}

func TestScenarioStats(t *testing.T) {
	convey.Convey("Given logged runs for two players", t, func() {
		ctx := context.Background()
		l := openTestLog(t)

		convey.So(l.Record(ctx, loggedRun("r1", "local", "VT Pasu Rasp Novice", 600, logBase), "Iron", "s1"), convey.ShouldBeNil)
		convey.So(l.Record(ctx, loggedRun("r2", "local", "VT Pasu Rasp Novice", 700, logBase.Add(time.Hour)), "Bronze", "s1"), convey.ShouldBeNil)
		convey.So(l.Record(ctx, loggedRun("r3", "alt", "VT Pasu Rasp Novice", 900, logBase.Add(2*time.Hour)), "Silver", "s2"), convey.ShouldBeNil)

		convey.Convey("When stats aggregate one player's scenario", func() {
			st, err := l.ScenarioStats(ctx, "local", "VT Pasu Rasp Novice")

			convey.Convey("Then only that player's runs count", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.PlayCount, convey.ShouldEqual, 2)
				convey.So(st.BestScore, convey.ShouldEqual, 700)
				convey.So(st.AvgScore, convey.ShouldAlmostEqual, 650)
				convey.So(st.LastPlayed, convey.ShouldEqual, logBase.Add(time.Hour))
			})
		})

		convey.Convey("When the scenario was never played", func() {
			st, err := l.ScenarioStats(ctx, "local", "VT Ghost Scenario")

			convey.Convey("Then zero stats come back without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.PlayCount, convey.ShouldEqual, 0)
				convey.So(st.BestScore, convey.ShouldEqual, 0)
				convey.So(st.LastPlayed.IsZero(), convey.ShouldBeTrue)
			})
		})
	})
}
