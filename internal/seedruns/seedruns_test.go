package seedruns

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/aimboard/aimboard/internal/domain/bench"
)

func TestScenarioPool(t *testing.T) {
	convey.Convey("Given the built-in benchmark catalog", t, func() {
		catalog := bench.Default()

		convey.Convey("An unrestricted config covers every scenario", func() {
			pool, err := scenarioPool(&Config{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(pool), convey.ShouldEqual, catalog.Size())
		})

		convey.Convey("A difficulty filter narrows the pool to that ladder", func() {
			pool, err := scenarioPool(&Config{Difficulty: "novice"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(pool), convey.ShouldBeGreaterThan, 0)
			for _, sc := range pool {
				convey.So(sc.Difficulty, convey.ShouldEqual, "novice")
			}
			convey.So(seededDifficulties(pool), convey.ShouldResemble, []string{"novice"})
		})

		convey.Convey("An unknown difficulty is rejected", func() {
			_, err := scenarioPool(&Config{Difficulty: "celestial"})
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestGenerateRuns(t *testing.T) {
	convey.Convey("Given a novice scenario pool", t, func() {
		ctx := context.Background()
		pool, err := scenarioPool(&Config{Difficulty: "novice"})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Generation produces complete runs with unique ids", func() {
			cfg := &Config{NumRuns: 25, Workers: 4, Player: "seedbot"}
			stats := &Stats{}

			runs, err := generateRuns(ctx, cfg, pool, stats)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(runs), convey.ShouldEqual, 25)
			convey.So(stats.RunsGenerated, convey.ShouldEqual, 25)

			ids := make(map[string]bool, len(runs))
			for _, run := range runs {
				ids[run.ID] = true
				convey.So(run.Player, convey.ShouldEqual, "seedbot")
				convey.So(run.Seconds, convey.ShouldEqual, defaultRunSeconds)
				_, err := time.Parse(time.RFC3339, run.PlayedAt)
				convey.So(err, convey.ShouldBeNil)
			}
			convey.So(len(ids), convey.ShouldEqual, 25)
		})

		convey.Convey("Every scenario is covered once runs exceed the pool", func() {
			cfg := &Config{NumRuns: len(pool) * 2, Workers: 4}
			stats := &Stats{}

			runs, err := generateRuns(ctx, cfg, pool, stats)
			convey.So(err, convey.ShouldBeNil)

			covered := make(map[string]bool)
			for _, run := range runs {
				covered[run.Scenario] = true
			}
			convey.So(len(covered), convey.ShouldEqual, len(pool))
		})

		convey.Convey("Tiered scores stay inside the extended ladder", func() {
			sc := pool[0]
			limit := sc.MaxScore() * wideCeilRatio
			for i := 0; i < 200; i++ {
				score := generateTieredScore(sc)
				convey.So(score, convey.ShouldBeGreaterThanOrEqualTo, 0)
				convey.So(score, convey.ShouldBeLessThanOrEqualTo, limit)
			}
		})
	})
}

func TestSubmitRuns(t *testing.T) {
	convey.Convey("Given a dashboard that accepts every run", t, func() {
		var received int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&received, 1)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(ackResponse{Status: "accepted", Ingested: 1})
		}))
		convey.Reset(srv.Close)

		cfg := &Config{BaseURL: srv.URL, Workers: 4, Timeout: 5 * time.Second}
		pool, err := scenarioPool(&Config{Difficulty: "novice"})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Every submitted run is counted as accepted", func() {
			stats := &Stats{}
			runs, err := generateRuns(context.Background(), &Config{NumRuns: 12, Workers: 4}, pool, stats)
			convey.So(err, convey.ShouldBeNil)

			convey.So(submitRuns(context.Background(), cfg, runs, stats), convey.ShouldBeNil)
			convey.So(stats.RunsSubmitted, convey.ShouldEqual, 12)
			convey.So(stats.RunsAccepted, convey.ShouldEqual, 12)
			convey.So(stats.RunsFailed, convey.ShouldEqual, 0)
			convey.So(atomic.LoadInt64(&received), convey.ShouldEqual, 12)
		})
	})

	convey.Convey("Given a dashboard that rejects certain scenarios", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var run runPayload
			_ = json.NewDecoder(r.Body).Decode(&run)
			if run.Scenario == "VT Nonsense" {
				http.Error(w, `{"code":"not_found"}`, http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(ackResponse{Status: "accepted", Ingested: 1})
		}))
		convey.Reset(srv.Close)

		cfg := &Config{BaseURL: srv.URL, Workers: 2, Timeout: 5 * time.Second}

		convey.Convey("Rejections are counted as failures", func() {
			stats := &Stats{}
			runs := []runPayload{
				{ID: "a", Scenario: "VT Pasu Rasp Novice", Score: 500, Seconds: 60},
				{ID: "b", Scenario: "VT Nonsense", Score: 100, Seconds: 60},
				{ID: "c", Scenario: "VT Pasu Rasp Novice", Score: 520, Seconds: 60},
				{ID: "d", Scenario: "VT Nonsense", Score: 110, Seconds: 60},
			}

			convey.So(submitRuns(context.Background(), cfg, runs, stats), convey.ShouldBeNil)
			convey.So(stats.RunsSubmitted, convey.ShouldEqual, 4)
			convey.So(stats.RunsAccepted, convey.ShouldEqual, 2)
			convey.So(stats.RunsFailed, convey.ShouldEqual, 2)
		})
	})
}
