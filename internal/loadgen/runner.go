package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/srvwb/core/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Runner configuration constants.
const (
	drainDelay           = 5 * time.Second
	percentageMultiplier = 100
)

// Run executes the complete ingestion load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting ingestion load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("records", config.NumRecords),
		logger.Int("events", config.NumEvents),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate raw records
	records, err := generateRecords(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("record generation failed: %w", err)
	}

	// Step 3: Submit records in batches
	if err := submitBatches(ctx, config, records, stats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	// Step 4: Generate and submit change events
	events, err := generateChangeEvents(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}
	if err := submitChangeEvents(ctx, config, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 5: Wait for the queue to drain
	logger.Get().Info(ctx, "waiting for queued records to drain")
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while draining: %w", ctx.Err())
	case <-time.After(drainDelay):
	}

	// Step 6: Verify totals against the stats endpoint
	if err := verifyStats(ctx, config, stats); err != nil {
		return fmt.Errorf("stats verification failed: %w", err)
	}

	// Step 7: Save records to file
	if err := saveRecordsToFile(ctx, config, records); err != nil {
		logger.Get().Warn(ctx, "failed to save records to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running and the database is up.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/health"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	var health HealthStatus
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}
	if health.DB != "ok" {
		return fmt.Errorf("database is not healthy: %s", health.DB)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyStats fetches /stats and checks the totals moved by at least the
// accepted amounts. Other writers may push the totals higher.
func verifyStats(ctx context.Context, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "verifying stored totals")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/stats"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read stats response: %w", err)
	}

	if resp.StatusCode != statusOK {
		return fmt.Errorf("stats request failed with status: %d", resp.StatusCode)
	}

	var serviceStats map[string]any
	if err := json.Unmarshal(body, &serviceStats); err != nil {
		return fmt.Errorf("failed to parse stats response: %w", err)
	}

	rawTotal, _ := serviceStats["rawRecordsTotal"].(float64)
	eventTotal, _ := serviceStats["changeEventsTotal"].(float64)

	if int(rawTotal) < stats.RecordsAccepted {
		return fmt.Errorf("raw record total %d is below accepted count %d", int(rawTotal), stats.RecordsAccepted)
	}
	if int(eventTotal) < stats.EventsSuccessful {
		return fmt.Errorf("change event total %d is below successful count %d", int(eventTotal), stats.EventsSuccessful)
	}

	logger.Get().Info(ctx, "stored totals verified",
		logger.Int64("rawRecordsTotal", int64(rawTotal)),
		logger.Int64("changeEventsTotal", int64(eventTotal)))

	return nil
}

// saveRecordsToFile saves the generated records to a JSON file.
func saveRecordsToFile(ctx context.Context, config *Config, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_records_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	logger.Get().Info(ctx, "records saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, recordsPerSecond float64

	if stats.RecordsGenerated > 0 {
		acceptRate = float64(stats.RecordsAccepted) / float64(stats.RecordsGenerated) * percentageMultiplier
	}

	if stats.Duration > 0 {
		recordsPerSecond = float64(stats.RecordsAccepted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("recordsGenerated", stats.RecordsGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("recordsAccepted", stats.RecordsAccepted),
		logger.Int("recordsDuplicate", stats.RecordsDuplicate),
		logger.Int("recordsRejected", stats.RecordsRejected),
		logger.Int("batchesThrottled", stats.BatchesThrottled),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("recordsPerSecond", recordsPerSecond))
}
