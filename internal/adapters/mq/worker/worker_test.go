package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/srvwb/core/internal/adapters/mq/queue"
	"github.com/srvwb/core/internal/adapters/mq/worker"
	"github.com/srvwb/core/internal/domain/model"
	"github.com/srvwb/core/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// mockInserter records inserted rows and can simulate failures.
type mockInserter struct {
	mu       sync.Mutex
	inserted []model.RawRecord
	failWith error
	nextID   int64
}

func (m *mockInserter) InsertRaw(ctx context.Context, rec model.RawRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.nextID++
	m.inserted = append(m.inserted, rec)
	return m.nextID, nil
}

func (m *mockInserter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserted)
}

func TestIngestWorker(t *testing.T) {
	Convey("Given an ingest worker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ins := &mockInserter{}

		Convey("When processing queued records", func() {
			w := worker.NewIngestWorker(q, ins, worker.WithName("test-worker"))
			go w.Run(ctx)

			So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "sales_funnel"}), ShouldBeTrue)

			Convey("Then records should be persisted", func() {
				So(func() int {
					deadline := time.Now().Add(2 * time.Second)
					for time.Now().Before(deadline) {
						if ins.count() == 2 {
							break
						}
						time.Sleep(10 * time.Millisecond)
					}
					return ins.count()
				}(), ShouldEqual, 2)
			})
		})

		Convey("When the inserter fails", func() {
			ins.failWith = errors.New("connection refused")
			w := worker.NewIngestWorker(q, ins)
			go w.Run(ctx)

			So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)

			Convey("Then the worker should keep running", func() {
				time.Sleep(50 * time.Millisecond)
				So(ins.count(), ShouldEqual, 0)
				So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)
			})
		})

		Convey("When shutting down", func() {
			w := worker.NewIngestWorker(q, ins)
			go w.Run(ctx)

			Convey("Then shutdown should complete promptly", func() {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Second)
				defer cancelShutdown()
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		ins := &mockInserter{}

		Convey("When starting the pool and enqueueing records", func() {
			pool := worker.NewPool(4, q, ins)
			pool.Start(ctx)

			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)
			}

			Convey("Then all records should be persisted", func() {
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && ins.count() < 20 {
					time.Sleep(10 * time.Millisecond)
				}
				So(ins.count(), ShouldEqual, 20)
			})
		})

		Convey("When the worker count is invalid", func() {
			pool := worker.NewPool(0, q, ins)

			Convey("Then a default pool should still be created", func() {
				So(pool, ShouldNotBeNil)
			})
		})

		Convey("When the run context is canceled before shutdown", func() {
			runCtx, cancelRun := context.WithCancel(context.Background())
			pool := worker.NewPool(2, q, ins)
			pool.Start(runCtx)

			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)
			}
			cancelRun()

			Convey("Then shutdown still drains every buffered record", func() {
				So(pool.Shutdown(context.Background()), ShouldBeNil)
				So(ins.count(), ShouldEqual, 20)
			})
		})

		Convey("When shutting the pool down", func() {
			pool := worker.NewPool(2, q, ins)
			pool.Start(ctx)

			Convey("Then shutdown drains buffered records", func() {
				for i := 0; i < 5; i++ {
					So(q.Enqueue(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)
				}
				So(pool.Shutdown(context.Background()), ShouldBeNil)
				So(ins.count(), ShouldEqual, 5)
			})
		})
	})
}
