package loadgen

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/srvwb/core/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	shopCount          = 20
	campaignCount      = 200
)

// Source and kind catalogs mirror what the ingestion pipelines send.
var (
	sources = []string{"wb", "ozon", "ym"}
	kinds   = []string{"ads_stats", "sales_funnel", "stock_snapshot", "price_snapshot"}
	actions = []string{"enable", "disable", "bid_set", "kw_add", "kw_remove"}
	actors  = []string{"n8n", "ui", "optimizer"}
)

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	return float64(getRandomInt(randomFloatDivisor)) / float64(randomFloatDivisor)
}

// generateRecords creates the specified number of raw records with unique
// record IDs so retried batches stay idempotent.
func generateRecords(ctx context.Context, config *Config, stats *Stats) ([]Record, error) {
	logger.Get().Info(ctx, "generating raw records", logger.Int("numRecords", config.NumRecords))

	records := make([]Record, config.NumRecords)

	type recordResult struct {
		index  int
		record Record
		err    error
	}

	resultChan := make(chan recordResult, config.NumRecords)

	workerCount := minInt(config.Workers, config.NumRecords)
	recordsPerWorker := config.NumRecords / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * recordsPerWorker
		end := start + recordsPerWorker
		if worker == workerCount-1 {
			end = config.NumRecords
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- recordResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- recordResult{index: i, record: generateSingleRecord()}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumRecords; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during record generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate record %d: %w", result.index, result.err)
			}
			records[result.index] = result.record
		}
	}

	stats.RecordsGenerated = len(records)
	logger.Get().Info(ctx, "generated raw records", logger.Int("count", len(records)))

	return records, nil
}

// generateSingleRecord creates one raw record with a randomized payload.
func generateSingleRecord() Record {
	source := sources[getRandomInt(int64(len(sources)))]
	kind := kinds[getRandomInt(int64(len(kinds)))]
	shopID := "shop-" + strconv.FormatInt(getRandomInt(shopCount), 10)

	payload, _ := json.Marshal(map[string]any{
		"views":  getRandomInt(100000),
		"clicks": getRandomInt(5000),
		"spend":  getRandomFloat() * 10000,
	})

	return Record{
		RecordID:     uuid.New().String(),
		Source:       source,
		Kind:         kind,
		ShopID:       shopID,
		OccurredAtMS: time.Now().UnixMilli(),
		Payload:      payload,
	}
}

// generateChangeEvents creates the specified number of campaign mutations.
func generateChangeEvents(ctx context.Context, config *Config, stats *Stats) ([]ChangeEvent, error) {
	logger.Get().Info(ctx, "generating change events", logger.Int("numEvents", config.NumEvents))

	events := make([]ChangeEvent, config.NumEvents)
	for i := range events {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		default:
		}

		action := actions[getRandomInt(int64(len(actions)))]
		meta, _ := json.Marshal(map[string]any{
			"bid": getRandomInt(500),
		})

		events[i] = ChangeEvent{
			ShopID:       "shop-" + strconv.FormatInt(getRandomInt(shopCount), 10),
			CampaignID:   strconv.FormatInt(100000+getRandomInt(campaignCount), 10),
			Action:       action,
			Actor:        actors[getRandomInt(int64(len(actors)))],
			OccurredAtMS: time.Now().UnixMilli(),
			Meta:         meta,
		}
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated change events", logger.Int("count", len(events)))

	return events, nil
}

// chunkRecords splits records into batches of at most size.
func chunkRecords(records []Record, size int) [][]Record {
	if size <= 0 {
		size = len(records)
	}
	var batches [][]Record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
