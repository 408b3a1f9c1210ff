package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aimboard/aimboard/internal/adapters/repository"
	"github.com/smartystreets/goconvey/convey"
)

type fixture struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestBoltStore(t *testing.T) {
	convey.Convey("Given a bolt-backed state store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "state.db")

		store, err := repository.NewBoltStore(path)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When writing and reading a document", func() {
			in := fixture{Name: "VT Pasu Rasp Novice", Score: 812}
			convey.So(store.Put(ctx, "best_v1_local", in), convey.ShouldBeNil)

			var out fixture
			convey.So(store.Get(ctx, "best_v1_local", &out), convey.ShouldBeNil)

			convey.Convey("Then the document should round-trip", func() {
				convey.So(out, convey.ShouldResemble, in)
			})

			convey.Convey("And overwriting should replace it", func() {
				in.Score = 950
				convey.So(store.Put(ctx, "best_v1_local", in), convey.ShouldBeNil)
				convey.So(store.Get(ctx, "best_v1_local", &out), convey.ShouldBeNil)
				convey.So(out.Score, convey.ShouldEqual, 950.0)
			})
		})

		convey.Convey("When reading a missing key", func() {
			var out fixture
			err := store.Get(ctx, "missing", &out)

			convey.Convey("Then it should return ErrKeyNotFound", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, repository.ErrKeyNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When deleting", func() {
			convey.So(store.Put(ctx, "gone", fixture{Name: "x"}), convey.ShouldBeNil)
			convey.So(store.Delete(ctx, "gone"), convey.ShouldBeNil)

			convey.Convey("Then the key should be absent and re-deletion harmless", func() {
				var out fixture
				convey.So(errors.Is(store.Get(ctx, "gone", &out), repository.ErrKeyNotFound), convey.ShouldBeTrue)
				convey.So(store.Delete(ctx, "gone"), convey.ShouldBeNil)
			})
		})

		convey.Convey("When listing keys by prefix", func() {
			convey.So(store.Put(ctx, "rank_state_v2_local", fixture{}), convey.ShouldBeNil)
			convey.So(store.Put(ctx, "rank_state_v2_alt", fixture{}), convey.ShouldBeNil)
			convey.So(store.Put(ctx, "ranked_session_v1_local", fixture{}), convey.ShouldBeNil)

			keys, err := store.Keys(ctx, "rank_state_v2_")

			convey.Convey("Then only matching keys should come back, sorted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(keys, convey.ShouldResemble, []string{"rank_state_v2_alt", "rank_state_v2_local"})
			})
		})

		convey.Convey("When reopening the database", func() {
			convey.So(store.Put(ctx, "persist", fixture{Name: "kept", Score: 1}), convey.ShouldBeNil)
			convey.So(store.Close(), convey.ShouldBeNil)

			reopened, err := repository.NewBoltStore(path)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = reopened.Close() }()

			convey.Convey("Then documents should survive", func() {
				var out fixture
				convey.So(reopened.Get(ctx, "persist", &out), convey.ShouldBeNil)
				convey.So(out.Name, convey.ShouldEqual, "kept")
			})
		})

		convey.Reset(func() {
			_ = store.Close()
		})
	})
}

func TestMemoryStore(t *testing.T) {
	convey.Convey("Given an in-memory state store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		convey.Convey("When writing and reading", func() {
			convey.So(store.Put(ctx, "doc", fixture{Name: "a", Score: 2}), convey.ShouldBeNil)

			var out fixture
			convey.So(store.Get(ctx, "doc", &out), convey.ShouldBeNil)
			convey.So(out, convey.ShouldResemble, fixture{Name: "a", Score: 2})
		})

		convey.Convey("When reading a missing key", func() {
			var out fixture
			convey.So(errors.Is(store.Get(ctx, "nope", &out), repository.ErrKeyNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When listing keys by prefix", func() {
			convey.So(store.Put(ctx, "a_1", fixture{}), convey.ShouldBeNil)
			convey.So(store.Put(ctx, "a_2", fixture{}), convey.ShouldBeNil)
			convey.So(store.Put(ctx, "b_1", fixture{}), convey.ShouldBeNil)

			keys, err := store.Keys(ctx, "a_")
			convey.So(err, convey.ShouldBeNil)
			convey.So(keys, convey.ShouldResemble, []string{"a_1", "a_2"})
		})

		convey.Convey("When using a closed store", func() {
			convey.So(store.Close(), convey.ShouldBeNil)

			var out fixture
			convey.So(errors.Is(store.Get(ctx, "doc", &out), repository.ErrClosed), convey.ShouldBeTrue)
			convey.So(errors.Is(store.Put(ctx, "doc", fixture{}), repository.ErrClosed), convey.ShouldBeTrue)
		})
	})
}
