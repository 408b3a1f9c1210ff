package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/aimboard/aimboard/internal/domain/model"
	"github.com/aimboard/aimboard/internal/domain/rank"
	"github.com/aimboard/aimboard/internal/domain/session"
	"github.com/aimboard/aimboard/pkg/clock"
)

const sessionCatalog = `{
  "difficulties": [
    {
      "name": "novice",
      "ranks": ["Iron", "Bronze", "Silver", "Gold"],
      "scenarios": [
        {"name": "Wallclick", "category": "clicking", "subcategory": "static", "thresholds": [100, 200, 300, 400]},
        {"name": "Orbweave", "category": "tracking", "subcategory": "smooth", "thresholds": [50, 150, 250, 350]}
      ]
    },
    {
      "name": "intermediate",
      "ranks": ["Platinum", "Diamond", "Jade", "Master"],
      "scenarios": [
        {"name": "Stormtrack", "category": "tracking", "subcategory": "reactive", "thresholds": [1000, 1400, 1800, 2200]}
      ]
    }
  ]
}`

var sessionBase = time.Date(2025, 7, 10, 18, 0, 0, 0, time.UTC)

func newService(t *testing.T, clk clock.Clock) *session.Service {
	t.Helper()
	catalog, err := bench.New([]byte(sessionCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	opts := []session.Option{session.WithTimeout(10 * time.Minute)}
	if clk != nil {
		opts = append(opts, session.WithClock(clk))
	}
	return session.New(catalog, opts...)
}

func playedRun(scenario string, score float64, at time.Time) model.Run {
	return model.Run{
		ID:       fmt.Sprintf("%s-%d", scenario, at.UnixNano()),
		Player:   "local",
		Scenario: scenario,
		Score:    score,
		Seconds:  60,
		PlayedAt: at,
	}
}

func TestSessionWindowing(t *testing.T) {
	convey.Convey("Given a session service with a ten minute window", t, func() {
		ctx := context.Background()
		clk := clock.NewManual(sessionBase)
		svc := newService(t, clk)

		convey.Convey("When the first run registers", func() {
			svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))
			snap := svc.Snapshot()

			convey.Convey("Then a window opens with the run as its best", func() {
				convey.So(snap.ID, convey.ShouldNotBeEmpty)
				convey.So(snap.Active, convey.ShouldBeTrue)
				convey.So(snap.Bests["Wallclick"].Score, convey.ShouldEqual, 150)
				convey.So(snap.Bests["Wallclick"].Rank, convey.ShouldEqual, "Iron")
			})
		})

		convey.Convey("When a second run lands nine minutes later", func() {
			svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))
			first := svc.Snapshot()
			clk.Advance(9 * time.Minute)
			svc.RegisterRun(ctx, playedRun("Wallclick", 250, clk.Now()))
			second := svc.Snapshot()

			convey.Convey("Then the window keeps its id and the best is the max", func() {
				convey.So(second.ID, convey.ShouldEqual, first.ID)
				convey.So(second.Bests["Wallclick"].Score, convey.ShouldEqual, 250)
				convey.So(second.Bests["Wallclick"].Rank, convey.ShouldEqual, "Bronze")
			})

			convey.Convey("And a weaker repeat keeps the recorded best", func() {
				clk.Advance(time.Minute)
				svc.RegisterRun(ctx, playedRun("Wallclick", 120, clk.Now()))
				convey.So(svc.Snapshot().Bests["Wallclick"].Score, convey.ShouldEqual, 250)
			})
		})

		convey.Convey("When the next run arrives eleven minutes after the last", func() {
			svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))
			first := svc.Snapshot()
			clk.Advance(11 * time.Minute)
			svc.RegisterRun(ctx, playedRun("Orbweave", 60, clk.Now()))
			second := svc.Snapshot()

			convey.Convey("Then a fresh window replaces the lapsed one", func() {
				convey.So(second.ID, convey.ShouldNotBeEmpty)
				convey.So(second.ID, convey.ShouldNotEqual, first.ID)
				_, kept := second.Bests["Wallclick"]
				convey.So(kept, convey.ShouldBeFalse)
				convey.So(second.Bests["Orbweave"].Score, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When a run references a scenario missing from the catalog", func() {
			svc.RegisterRun(ctx, playedRun("Voidstrafe", 999, clk.Now()))
			snap := svc.Snapshot()

			convey.Convey("Then it still counts for the window, unranked", func() {
				convey.So(snap.Active, convey.ShouldBeTrue)
				convey.So(snap.Bests["Voidstrafe"].Rank, convey.ShouldEqual, rank.Unranked)
				convey.So(snap.BestRanks, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a caller mutates a returned snapshot", func() {
			svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))
			snap := svc.Snapshot()
			delete(snap.Bests, "Wallclick")

			convey.Convey("Then the service state is unaffected", func() {
				_, ok := svc.Best("Wallclick")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})
	})
}

func TestSessionBestRanks(t *testing.T) {
	convey.Convey("Given runs across two difficulty tiers", t, func() {
		ctx := context.Background()
		clk := clock.NewManual(sessionBase)
		svc := newService(t, clk)

		svc.RegisterRuns(ctx, []model.Run{
			playedRun("Wallclick", 250, clk.Now()),
			playedRun("Stormtrack", 1500, clk.Now()),
		})

		convey.Convey("Then each tier tracks its own best rank", func() {
			snap := svc.Snapshot()
			convey.So(snap.BestRanks["novice"].Rank, convey.ShouldEqual, "Bronze")
			convey.So(snap.BestRanks["novice"].Progress, convey.ShouldEqual, 50)
			convey.So(snap.BestRanks["intermediate"].Rank, convey.ShouldEqual, "Diamond")
			convey.So(snap.BestRanks["intermediate"].Progress, convey.ShouldEqual, 25)
		})

		convey.Convey("When a weaker result follows in the same tier", func() {
			clk.Advance(time.Minute)
			svc.RegisterRun(ctx, playedRun("Orbweave", 160, clk.Now()))

			convey.Convey("Then the tier best stays put", func() {
				convey.So(svc.Snapshot().BestRanks["novice"].Progress, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When a stronger result follows in the same tier", func() {
			clk.Advance(time.Minute)
			svc.RegisterRun(ctx, playedRun("Orbweave", 260, clk.Now()))

			convey.Convey("Then the tier best advances", func() {
				convey.So(svc.Snapshot().BestRanks["novice"].Rank, convey.ShouldEqual, "Silver")
				convey.So(svc.Snapshot().BestRanks["novice"].Level, convey.ShouldEqual, 3)
			})
		})
	})
}

func TestSessionNotifications(t *testing.T) {
	convey.Convey("Given an update listener", t, func() {
		ctx := context.Background()
		clk := clock.NewManual(sessionBase)
		svc := newService(t, clk)

		var snaps []session.Snapshot
		unsubscribe := svc.OnSessionUpdated(func(s session.Snapshot) { snaps = append(snaps, s) })

		convey.Convey("When an empty batch registers", func() {
			svc.RegisterRuns(ctx, nil)
			svc.RegisterRuns(ctx, []model.Run{})

			convey.Convey("Then no update fires", func() {
				convey.So(snaps, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a batch of three runs registers", func() {
			svc.RegisterRuns(ctx, []model.Run{
				playedRun("Wallclick", 150, clk.Now()),
				playedRun("Orbweave", 60, clk.Now()),
				playedRun("Wallclick", 210, clk.Now()),
			})

			convey.Convey("Then exactly one update fires, carrying the folded state", func() {
				convey.So(len(snaps), convey.ShouldEqual, 1)
				convey.So(snaps[0].Bests["Wallclick"].Score, convey.ShouldEqual, 210)
				convey.So(len(snaps[0].Bests), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When an identical run registers twice", func() {
			r := playedRun("Wallclick", 150, clk.Now())
			svc.RegisterRun(ctx, r)
			svc.RegisterRun(ctx, r)

			convey.Convey("Then only the first invocation notifies", func() {
				convey.So(len(snaps), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the listener unsubscribes", func() {
			unsubscribe()
			svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))

			convey.Convey("Then it hears nothing", func() {
				convey.So(snaps, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestSessionExpiry(t *testing.T) {
	convey.Convey("Given an active window under a manual clock", t, func() {
		ctx := context.Background()
		clk := clock.NewManual(sessionBase)
		svc := newService(t, clk)

		var snaps []session.Snapshot
		svc.OnSessionUpdated(func(s session.Snapshot) { snaps = append(snaps, s) })

		svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))

		convey.Convey("When the window lapses with no further runs", func() {
			clk.Advance(10*time.Minute + time.Second)

			convey.Convey("Then observers hear one expiry and the bests survive", func() {
				convey.So(len(snaps), convey.ShouldEqual, 2)
				convey.So(snaps[1].Active, convey.ShouldBeFalse)
				convey.So(snaps[1].Bests["Wallclick"].Score, convey.ShouldEqual, 150)
				convey.So(svc.Active(), convey.ShouldBeFalse)

				clk.Advance(time.Hour)
				convey.So(len(snaps), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a mid-window run pushes the deadline out", func() {
			clk.Advance(5 * time.Minute)
			svc.RegisterRun(ctx, playedRun("Orbweave", 60, clk.Now()))

			clk.Advance(5*time.Minute + time.Second)

			convey.Convey("Then the original deadline passes silently", func() {
				convey.So(len(snaps), convey.ShouldEqual, 2)
				convey.So(svc.Active(), convey.ShouldBeTrue)
			})

			convey.Convey("And the pushed deadline expires once", func() {
				clk.Advance(5 * time.Minute)
				convey.So(len(snaps), convey.ShouldEqual, 3)
				convey.So(snaps[2].Active, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the timeout grows after the window lapsed", func() {
			clk.Advance(12 * time.Minute)
			convey.So(svc.Active(), convey.ShouldBeFalse)

			svc.SetTimeout(20 * time.Minute)

			convey.Convey("Then the window counts as active again without a run", func() {
				convey.So(svc.Active(), convey.ShouldBeTrue)
				convey.So(svc.Snapshot().Active, convey.ShouldBeTrue)
			})

			convey.Convey("And it expires against the longer window", func() {
				clk.Advance(8*time.Minute + time.Second)
				convey.So(svc.Active(), convey.ShouldBeFalse)
				convey.So(len(snaps), convey.ShouldEqual, 3)
				convey.So(snaps[2].Active, convey.ShouldBeFalse)
			})
		})
	})
}

func TestSessionReset(t *testing.T) {
	convey.Convey("Given a window with state and a pending expiry", t, func() {
		ctx := context.Background()
		clk := clock.NewManual(sessionBase)
		svc := newService(t, clk)

		var snaps []session.Snapshot
		svc.OnSessionUpdated(func(s session.Snapshot) { snaps = append(snaps, s) })

		svc.RegisterRun(ctx, playedRun("Wallclick", 250, clk.Now()))

		convey.Convey("When the session resets", func() {
			svc.Reset(ctx)

			convey.Convey("Then observers see the cleared state immediately", func() {
				convey.So(len(snaps), convey.ShouldEqual, 2)
				convey.So(snaps[1].ID, convey.ShouldBeEmpty)
				convey.So(snaps[1].Bests, convey.ShouldBeEmpty)
				convey.So(snaps[1].Active, convey.ShouldBeFalse)
			})

			convey.Convey("And the superseded expiry timer stays quiet", func() {
				clk.Advance(time.Hour)
				convey.So(len(snaps), convey.ShouldEqual, 2)
			})

			convey.Convey("And the next run opens a new window", func() {
				clk.Advance(time.Minute)
				svc.RegisterRun(ctx, playedRun("Wallclick", 150, clk.Now()))
				snap := svc.Snapshot()
				convey.So(snap.ID, convey.ShouldNotBeEmpty)
				convey.So(snap.Bests["Wallclick"].Score, convey.ShouldEqual, 150)
			})
		})
	})
}
