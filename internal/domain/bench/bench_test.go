package bench_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aimboard/aimboard/internal/domain/bench"
	"github.com/smartystreets/goconvey/convey"
)

const miniCatalog = `{
  "difficulties": [
    {
      "name": "novice",
      "ranks": ["Iron", "Bronze", "Silver"],
      "scenarios": [
        {"name": "Wallclick", "category": "clicking", "subcategory": "static", "thresholds": [100, 200, 300]},
        {"name": "Orbweave", "category": "tracking", "subcategory": "smooth", "thresholds": [50, 150, 250]}
      ]
    }
  ]
}`

func TestCatalogNew(t *testing.T) {
	convey.Convey("Given catalog JSON", t, func() {
		convey.Convey("When parsing a valid catalog", func() {
			c, err := bench.New([]byte(miniCatalog))

			convey.Convey("Then it should expose difficulties and scenarios", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Difficulties(), convey.ShouldResemble, []string{"novice"})
				convey.So(c.Size(), convey.ShouldEqual, 2)
				convey.So(c.MaxRankLevel("novice"), convey.ShouldEqual, 3)

				ranks, err := c.RankNames("novice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ranks, convey.ShouldResemble, []string{"Iron", "Bronze", "Silver"})

				s, err := c.Scenario("Wallclick")
				convey.So(err, convey.ShouldBeNil)
				convey.So(s.Difficulty, convey.ShouldEqual, "novice")
				convey.So(s.Category, convey.ShouldEqual, "clicking")
				convey.So(s.Thresholds[0].Rank, convey.ShouldEqual, "Iron")
				convey.So(s.Thresholds[0].Score, convey.ShouldEqual, 100.0)
				convey.So(s.MinScore(), convey.ShouldEqual, 100.0)
				convey.So(s.MaxScore(), convey.ShouldEqual, 300.0)
				convey.So(s.VirtualInterval(), convey.ShouldEqual, 100.0)
			})
		})

		convey.Convey("When looking up an unknown scenario", func() {
			c, err := bench.New([]byte(miniCatalog))
			convey.So(err, convey.ShouldBeNil)

			_, err = c.Scenario("Nonexistent")

			convey.Convey("Then it should return ErrUnknownScenario", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown scenario")
			})
		})

		convey.Convey("When looking up an unknown difficulty", func() {
			c, err := bench.New([]byte(miniCatalog))
			convey.So(err, convey.ShouldBeNil)

			_, err = c.Scenarios("expert")

			convey.Convey("Then it should return ErrUnknownDifficulty", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown difficulty")
				convey.So(c.MaxRankLevel("expert"), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When parsing malformed JSON", func() {
			_, err := bench.New([]byte(`{"difficulties": [`))

			convey.Convey("Then it should reject the catalog", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a scenario threshold count mismatches the rank ladder", func() {
			_, err := bench.New([]byte(`{
  "difficulties": [{"name": "novice", "ranks": ["Iron", "Bronze"],
    "scenarios": [{"name": "Wallclick", "category": "clicking", "subcategory": "static", "thresholds": [100]}]}]
}`))

			convey.Convey("Then it should reject the catalog", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "thresholds")
			})
		})

		convey.Convey("When thresholds are not strictly ascending", func() {
			_, err := bench.New([]byte(`{
  "difficulties": [{"name": "novice", "ranks": ["Iron", "Bronze"],
    "scenarios": [{"name": "Wallclick", "category": "clicking", "subcategory": "static", "thresholds": [200, 100]}]}]
}`))

			convey.Convey("Then it should reject the catalog", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "ascending")
			})
		})

		convey.Convey("When two scenarios share a name", func() {
			_, err := bench.New([]byte(`{
  "difficulties": [{"name": "novice", "ranks": ["Iron"],
    "scenarios": [
      {"name": "Wallclick", "category": "clicking", "subcategory": "static", "thresholds": [100]},
      {"name": "Wallclick", "category": "clicking", "subcategory": "static", "thresholds": [120]}
    ]}]
}`))

			convey.Convey("Then it should reject the catalog", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate scenario")
			})
		})
	})
}

func TestCatalogLoad(t *testing.T) {
	convey.Convey("Given a catalog file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "benchmarks.json")
		convey.So(os.WriteFile(path, []byte(miniCatalog), 0o600), convey.ShouldBeNil)

		convey.Convey("When loading it", func() {
			c, err := bench.Load(path)

			convey.Convey("Then it should parse like the in-memory path", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Size(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := bench.Load(filepath.Join(dir, "missing.json"))

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestDefaultCatalog(t *testing.T) {
	convey.Convey("Given the embedded catalog", t, func() {
		c := bench.Default()

		convey.Convey("Then it should carry the three benchmark tiers", func() {
			convey.So(c.Difficulties(), convey.ShouldResemble, []string{"novice", "intermediate", "advanced"})
			convey.So(c.Size(), convey.ShouldEqual, 36)
		})

		convey.Convey("Then every scenario should align with its rank ladder", func() {
			for _, diff := range c.Difficulties() {
				ranks, err := c.RankNames(diff)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(ranks), convey.ShouldEqual, 4)

				scenarios, err := c.Scenarios(diff)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(scenarios), convey.ShouldEqual, 12)
				for _, s := range scenarios {
					convey.So(len(s.Thresholds), convey.ShouldEqual, len(ranks))
					convey.So(s.Difficulty, convey.ShouldEqual, diff)
				}
			}
		})

		convey.Convey("Then single scenarios should resolve by bare name", func() {
			s, err := c.Scenario("VT Smoothbot Novice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Difficulty, convey.ShouldEqual, "novice")
			convey.So(s.Category, convey.ShouldEqual, "tracking")
			convey.So(s.Subcategory, convey.ShouldEqual, "smooth")
		})
	})
}
