package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/srvwb/core/internal/adapters/repository"
	service "github.com/srvwb/core/internal/app"
	"github.com/srvwb/core/internal/domain/model"
	"github.com/srvwb/core/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// fakeStore is an in-memory repository.Store used for service tests.
type fakeStore struct {
	mu      sync.Mutex
	raw     []model.RawRecord
	events  []model.ChangeEvent
	pingErr error
	insErr  error
}

func (f *fakeStore) InsertRaw(ctx context.Context, rec model.RawRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insErr != nil {
		return 0, f.insErr
	}
	f.raw = append(f.raw, rec)
	return int64(len(f.raw)), nil
}

func (f *fakeStore) InsertChangeEvent(ctx context.Context, ev model.ChangeEvent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insErr != nil {
		return 0, f.insErr
	}
	f.events = append(f.events, ev)
	return int64(len(f.events)), nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) Counts(ctx context.Context) (repository.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return repository.Counts{
		RawRecords:   int64(len(f.raw)),
		ChangeEvents: int64(len(f.events)),
	}, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) rawCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.raw)
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()

		Convey("When starting without a store", func() {
			svc := service.New()

			Convey("Then Start should fail", func() {
				So(errors.Is(svc.Start(ctx), service.ErrNoStore), ShouldBeTrue)
			})
		})

		Convey("When starting with a store", func() {
			store := &fakeStore{}
			svc := service.New(
				service.WithStore(store),
				service.WithWorkerCount(2),
				service.WithQueueSize(100),
				service.WithDedupeSize(100),
				service.WithMaxBatchSize(10),
			)

			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then MaxBatchSize reflects the option", func() {
				So(svc.MaxBatchSize(), ShouldEqual, 10)
			})
		})
	})
}

func TestServiceIngest(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := &fakeStore{}
		svc := service.New(
			service.WithStore(store),
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When ingesting a raw record synchronously", func() {
			id, err := svc.IngestRaw(ctx, model.RawRecord{
				Source:  "wb",
				Kind:    "ads_stats",
				Payload: json.RawMessage(`{"views":1}`),
			})

			Convey("Then the record is stored with a receive timestamp", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, 1)
				So(store.raw[0].ReceivedAtMS, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the sender supplies occurred_at_ms", func() {
			_, err := svc.IngestRaw(ctx, model.RawRecord{
				Source:       "wb",
				Kind:         "ads_stats",
				OccurredAtMS: 1700000000000,
			})

			Convey("Then the sender timestamp is preserved", func() {
				So(err, ShouldBeNil)
				So(store.raw[0].OccurredAtMS, ShouldEqual, 1700000000000)
			})
		})

		Convey("When ingesting a change event", func() {
			id, err := svc.IngestChangeEvent(ctx, model.ChangeEvent{
				CampaignID:   "123456",
				Action:       model.ActionEnable,
				Actor:        "n8n",
				OccurredAtMS: 1700000000000,
			})

			Convey("Then the event is stored with the caller's timestamp", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, 1)
				So(store.events[0].OccurredAtMS, ShouldEqual, 1700000000000)
			})
		})

		Convey("When the store fails", func() {
			store.insErr = errors.New("connection reset")

			_, rawErr := svc.IngestRaw(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"})
			_, evErr := svc.IngestChangeEvent(ctx, model.ChangeEvent{CampaignID: "1", Action: model.ActionDisable, Actor: "ui"})

			Convey("Then errors propagate", func() {
				So(rawErr, ShouldNotBeNil)
				So(evErr, ShouldNotBeNil)
			})
		})

		Convey("When enqueueing records for async persistence", func() {
			ok := svc.EnqueueRaw(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"})

			Convey("Then the record is eventually persisted by a worker", func() {
				So(ok, ShouldBeTrue)
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && store.rawCount() == 0 {
					time.Sleep(10 * time.Millisecond)
				}
				So(store.rawCount(), ShouldEqual, 1)
			})
		})

		Convey("When the start context is canceled before Stop", func() {
			runCtx, cancelRun := context.WithCancel(context.Background())
			drainStore := &fakeStore{}
			drainSvc := service.New(
				service.WithStore(drainStore),
				service.WithWorkerCount(2),
				service.WithQueueSize(100),
			)
			So(drainSvc.Start(runCtx), ShouldBeNil)

			for i := 0; i < 20; i++ {
				So(drainSvc.EnqueueRaw(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"}), ShouldBeTrue)
			}
			cancelRun()
			drainSvc.Stop()

			Convey("Then Stop still drains every accepted record", func() {
				So(drainStore.rawCount(), ShouldEqual, 20)
			})
		})

		Convey("When recording batch record ids", func() {
			So(svc.SeenAndRecord(ctx, "rec-1"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "rec-1"), ShouldBeTrue)

			svc.Unrecord(ctx, "rec-1")
			So(svc.SeenAndRecord(ctx, "rec-1"), ShouldBeFalse)
			So(svc.Size(), ShouldEqual, 1)
		})
	})
}

func TestServiceStats(t *testing.T) {
	Convey("Given a started service with stored rows", t, func() {
		ctx := context.Background()
		store := &fakeStore{}
		svc := service.New(service.WithStore(store), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, _ = svc.IngestRaw(ctx, model.RawRecord{Source: "wb", Kind: "ads_stats"})
		_, _ = svc.IngestChangeEvent(ctx, model.ChangeEvent{CampaignID: "1", Action: model.ActionEnable, Actor: "ui"})

		Convey("When fetching stats", func() {
			stats := svc.GetStats()

			Convey("Then totals and configuration are reported", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["rawStored"], ShouldEqual, int64(1))
				So(stats["eventsStored"], ShouldEqual, int64(1))
				So(stats["rawRecordsTotal"], ShouldEqual, int64(1))
				So(stats["changeEventsTotal"], ShouldEqual, int64(1))
				So(stats["queueLength"], ShouldEqual, 0)
			})
		})
	})
}

func TestServicePingDB(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := &fakeStore{}
		svc := service.New(service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the database is reachable", func() {
			So(svc.PingDB(ctx), ShouldBeNil)
		})

		Convey("When the database is down", func() {
			store.pingErr = errors.New("dial tcp: connection refused")
			So(svc.PingDB(ctx), ShouldNotBeNil)
		})
	})
}
