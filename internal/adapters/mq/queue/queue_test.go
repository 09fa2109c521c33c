package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/srvwb/core/internal/adapters/mq/queue"
	"github.com/srvwb/core/internal/domain/model"
)

func testRecord(i int) model.RawRecord {
	return model.RawRecord{
		Source:       "wb",
		Kind:         "ads_stats",
		ShopID:       fmt.Sprintf("shop_%d", i),
		OccurredAtMS: time.Now().UnixMilli(),
		ReceivedAtMS: time.Now().UnixMilli(),
	}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a new in-memory queue", t, func() {
		ctx := context.Background()

		Convey("When creating with default options", func() {
			q := queue.NewInMemoryQueue()

			Convey("Then it should start empty and open", func() {
				So(q, ShouldNotBeNil)
				So(q.Len(ctx), ShouldEqual, 0)
				So(q.IsClosed(), ShouldBeFalse)
			})
		})

		Convey("When enqueueing records", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(2))

			Convey("And there is capacity", func() {
				ok := q.Enqueue(ctx, testRecord(1))

				Convey("Then the record should be accepted", func() {
					So(ok, ShouldBeTrue)
					So(q.Len(ctx), ShouldEqual, 1)
				})
			})

			Convey("And the queue is full", func() {
				So(q.Enqueue(ctx, testRecord(1)), ShouldBeTrue)
				So(q.Enqueue(ctx, testRecord(2)), ShouldBeTrue)
				ok := q.Enqueue(ctx, testRecord(3))

				Convey("Then the record should be rejected", func() {
					So(ok, ShouldBeFalse)
					So(q.Len(ctx), ShouldEqual, 2)
				})
			})

			Convey("And the queue is closed", func() {
				So(q.Close(), ShouldBeNil)
				ok := q.Enqueue(ctx, testRecord(1))

				Convey("Then the record should be rejected", func() {
					So(ok, ShouldBeFalse)
					So(q.IsClosed(), ShouldBeTrue)
				})
			})
		})

		Convey("When dequeueing records", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10))
			for i := 0; i < 3; i++ {
				So(q.Enqueue(ctx, testRecord(i)), ShouldBeTrue)
			}

			Convey("Then records arrive in order and the channel closes after Close", func() {
				So(q.Close(), ShouldBeNil)

				var got []model.RawRecord
				for rec := range q.Dequeue(ctx) {
					got = append(got, rec)
				}
				So(got, ShouldHaveLength, 3)
				So(got[0].ShopID, ShouldEqual, "shop_0")
				So(got[2].ShopID, ShouldEqual, "shop_2")
			})
		})

		Convey("When closing twice", func() {
			q := queue.NewInMemoryQueue()

			Convey("Then the second close should be a no-op", func() {
				So(q.Close(), ShouldBeNil)
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
