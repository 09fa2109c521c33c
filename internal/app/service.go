// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	ingestqueue "github.com/srvwb/core/internal/adapters/mq/queue"
	workerpool "github.com/srvwb/core/internal/adapters/mq/worker"
	"github.com/srvwb/core/internal/adapters/repository"
	"github.com/srvwb/core/internal/domain/dedupe"
	"github.com/srvwb/core/internal/domain/model"
	"github.com/srvwb/core/pkg/logger"
	"github.com/srvwb/core/pkg/metrics"
)

// countingInserter routes worker inserts through the store while keeping the
// service's running totals in sync with the asynchronous path.
type countingInserter struct {
	svc *Service
}

func (c *countingInserter) InsertRaw(ctx context.Context, rec model.RawRecord) (int64, error) {
	id, err := c.svc.store.InsertRaw(ctx, rec)
	if err != nil {
		return 0, err
	}
	c.svc.rawStored.Add(1)
	return id, nil
}

// Service implements the API dependencies for the ingestion system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	deduper     dedupe.Deduper
	recordQueue ingestqueue.Queue
	workerPool  *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxBatchSize int

	// Running totals since process start
	rawStored    atomic.Int64
	eventsStored atomic.Int64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Required before Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of ingest worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the batch ingest queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the batch idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxBatchSize caps the number of items accepted per batch request.
func WithMaxBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    100_000,
		dedupeSize:   50_000,
		maxBatchSize: 1_000,
		logger:       nil, // resolved on Start
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ingestion service...")

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.recordQueue = ingestqueue.NewInMemoryQueue(
		ingestqueue.WithCapacity(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.recordQueue, &countingInserter{svc: s})
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ingestion service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxBatchSize", s.maxBatchSize),
	)

	return nil
}

// Stop gracefully shuts down the service, draining buffered records first.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ingestion service...")

	// Closing the queue stops new enqueues; the pool drains what is left.
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "ingestion service stopped")
}

// IngestRaw synchronously persists a raw record and returns its row id.
// A zero ReceivedAtMS defaults to the current time; OccurredAtMS is stored
// verbatim because only the transport layer can tell an absent timestamp
// apart from an explicit zero.
func (s *Service) IngestRaw(ctx context.Context, rec model.RawRecord) (int64, error) {
	if rec.ReceivedAtMS == 0 {
		rec.ReceivedAtMS = time.Now().UnixMilli()
	}

	id, err := s.store.InsertRaw(ctx, rec)
	if err != nil {
		metrics.RecordIngestError()
		return 0, err
	}
	s.rawStored.Add(1)
	return id, nil
}

// IngestChangeEvent synchronously persists an ad change event and returns
// its row id. OccurredAtMS is stored verbatim; callers resolve defaults.
func (s *Service) IngestChangeEvent(ctx context.Context, ev model.ChangeEvent) (int64, error) {
	id, err := s.store.InsertChangeEvent(ctx, ev)
	if err != nil {
		metrics.RecordIngestError()
		return 0, err
	}
	s.eventsStored.Add(1)
	return id, nil
}

// EnqueueRaw submits a raw record for asynchronous persistence.
// Returns false on backpressure.
func (s *Service) EnqueueRaw(ctx context.Context, rec model.RawRecord) bool {
	if rec.ReceivedAtMS == 0 {
		rec.ReceivedAtMS = time.Now().UnixMilli()
	}

	ok := s.recordQueue.Enqueue(ctx, rec)
	if ok {
		metrics.UpdateQueueSize(s.recordQueue.Len(ctx))
	}
	return ok
}

// SeenAndRecord atomically checks if a batch record id was seen and records
// it if not. Returns true if the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateRecord()
	}
	return seen
}

// Unrecord removes a record id from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// PingDB verifies database connectivity for the health endpoint.
func (s *Service) PingDB(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// MaxBatchSize returns the configured per-request batch cap.
func (s *Service) MaxBatchSize() int {
	return s.maxBatchSize
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"maxBatchSize": s.maxBatchSize,
		"rawStored":    s.rawStored.Load(),
		"eventsStored": s.eventsStored.Load(),
	}

	if s.started {
		queueLen := s.recordQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)

		if counts, err := s.store.Counts(ctx); err == nil {
			stats["rawRecordsTotal"] = counts.RawRecords
			stats["changeEventsTotal"] = counts.ChangeEvents
		}
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
