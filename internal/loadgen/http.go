package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTP status code constants.
const (
	statusOK              = 200
	statusAccepted        = 202
	statusTooManyRequests = 429
)

// Submission tuning constants.
const (
	workerChannelMultiplier = 2
	throttleBackoff         = 500 * time.Millisecond
	maxBatchRetries         = 5
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitBatches submits raw records in batches, backing off on 429.
func submitBatches(ctx context.Context, config *Config, records []Record, stats *Stats) error {
	batches := chunkRecords(records, config.BatchSize)
	log.Printf("submitting %d records in %d batches", len(records), len(batches))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/ingest/raw/batch"

	var (
		accepted   int64
		duplicates int64
		rejected   int64
		throttled  int64
		submitted  int64
	)

	batchChan := make(chan []Record, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for batch := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				ack, retries, err := submitSingleBatch(ctx, client, url, batch)
				atomic.AddInt64(&throttled, int64(retries))
				if err != nil {
					atomic.AddInt64(&rejected, int64(len(batch)))
					continue
				}

				atomic.AddInt64(&submitted, 1)
				atomic.AddInt64(&accepted, int64(ack.Accepted))
				atomic.AddInt64(&duplicates, int64(ack.Duplicates))
				atomic.AddInt64(&rejected, int64(ack.Rejected))

				if config.Verbose {
					log.Printf("batch done: accepted=%d duplicates=%d rejected=%d",
						ack.Accepted, ack.Duplicates, ack.Rejected)
				}
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- batch:
			}
		}
	}()

	wg.Wait()

	stats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RecordsAccepted = int(atomic.LoadInt64(&accepted))
	stats.RecordsDuplicate = int(atomic.LoadInt64(&duplicates))
	stats.RecordsRejected = int(atomic.LoadInt64(&rejected))
	stats.BatchesThrottled = int(atomic.LoadInt64(&throttled))

	log.Printf("batch submission completed: accepted=%d duplicates=%d rejected=%d throttled=%d",
		stats.RecordsAccepted, stats.RecordsDuplicate, stats.RecordsRejected, stats.BatchesThrottled)

	return nil
}

// submitSingleBatch posts one batch, retrying on backpressure. Returns the
// parsed ack and the number of throttled attempts.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, batch []Record) (BatchAck, int, error) {
	payload := map[string]any{"records": batch}

	retries := 0
	for {
		resp, err := client.Post(ctx, url, payload)
		if err != nil {
			return BatchAck{}, retries, err
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return BatchAck{}, retries, err
		}

		switch resp.StatusCode {
		case statusAccepted:
			var ack BatchAck
			if err := json.Unmarshal(body, &ack); err != nil {
				return BatchAck{}, retries, fmt.Errorf("failed to parse batch ack: %w", err)
			}
			return ack, retries, nil
		case statusTooManyRequests:
			retries++
			if retries > maxBatchRetries {
				return BatchAck{}, retries, fmt.Errorf("batch rejected after %d retries", retries)
			}
			select {
			case <-ctx.Done():
				return BatchAck{}, retries, ctx.Err()
			case <-time.After(throttleBackoff):
			}
		default:
			return BatchAck{}, retries, fmt.Errorf("batch submission failed with status %d", resp.StatusCode)
		}
	}
}

// submitChangeEvents submits change events concurrently using worker pools.
func submitChangeEvents(ctx context.Context, config *Config, events []ChangeEvent, stats *Stats) error {
	log.Printf("submitting %d change events with %d workers", len(events), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/ads/change_event"

	var (
		successful int64
		failed     int64
		submitted  int64
	)

	eventChan := make(chan ChangeEvent, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for event := range eventChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&submitted, 1)
				if submitSingleChangeEvent(ctx, client, url, event) {
					atomic.AddInt64(&successful, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful = int(atomic.LoadInt64(&successful))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	log.Printf("change event submission completed: successful=%d failed=%d",
		stats.EventsSuccessful, stats.EventsFailed)

	return nil
}

// submitSingleChangeEvent submits a single change event.
func submitSingleChangeEvent(ctx context.Context, client *HTTPClient, url string, event ChangeEvent) bool {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return false
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return false
	}

	if resp.StatusCode != statusOK {
		return false
	}

	var ack ChangeEventAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return false
	}
	return ack.ID > 0
}
