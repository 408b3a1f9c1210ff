package ingest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/aimboard/aimboard/internal/adapters/ingest"
)

func TestSeenSet(t *testing.T) {
	convey.Convey("Given a bounded seen-set", t, func() {
		ctx := context.Background()

		convey.Convey("When recording new and repeated ids", func() {
			s := ingest.NewSeenSet(8)

			convey.So(s.Seen(ctx, "run-1"), convey.ShouldBeFalse)
			convey.So(s.Seen(ctx, "run-2"), convey.ShouldBeFalse)

			convey.Convey("Then repeats are reported and the size holds", func() {
				convey.So(s.Seen(ctx, "run-1"), convey.ShouldBeTrue)
				convey.So(s.Seen(ctx, "run-2"), convey.ShouldBeTrue)
				convey.So(s.Size(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the set fills past its limit", func() {
			s := ingest.NewSeenSet(3)
			for i := 1; i <= 3; i++ {
				convey.So(s.Seen(ctx, fmt.Sprintf("run-%d", i)), convey.ShouldBeFalse)
			}

			convey.Convey("Then the oldest id is evicted first", func() {
				convey.So(s.Seen(ctx, "run-4"), convey.ShouldBeFalse)
				convey.So(s.Size(), convey.ShouldEqual, 3)

				convey.So(s.Seen(ctx, "run-1"), convey.ShouldBeFalse)
				convey.So(s.Seen(ctx, "run-3"), convey.ShouldBeTrue)
				convey.So(s.Seen(ctx, "run-4"), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a delivered id is forgotten", func() {
			s := ingest.NewSeenSet(2)
			convey.So(s.Seen(ctx, "run-1"), convey.ShouldBeFalse)
			convey.So(s.Seen(ctx, "run-2"), convey.ShouldBeFalse)
			s.Forget(ctx, "run-1")

			convey.Convey("Then it can be delivered again", func() {
				convey.So(s.Size(), convey.ShouldEqual, 1)
				convey.So(s.Seen(ctx, "run-1"), convey.ShouldBeFalse)
				convey.So(s.Seen(ctx, "run-2"), convey.ShouldBeTrue)
			})

			convey.Convey("And forgetting an unknown id changes nothing", func() {
				s.Forget(ctx, "run-9")
				convey.So(s.Size(), convey.ShouldEqual, 1)
			})
		})
	})
}
