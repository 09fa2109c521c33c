package loadgen

import (
	"encoding/json"
	"time"
)

// Config holds configuration for the ingestion load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumRecords int           // Number of raw records to generate
	NumEvents  int           // Number of change events to generate
	BatchSize  int           // Records per batch request
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated records
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Record represents a raw record to be submitted
type Record struct {
	RecordID     string          `json:"record_id,omitempty"`
	Source       string          `json:"source"`
	Kind         string          `json:"kind"`
	ShopID       string          `json:"shop_id,omitempty"`
	OccurredAtMS int64           `json:"occurred_at_ms,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// ChangeEvent represents a campaign mutation to be submitted
type ChangeEvent struct {
	ShopID       string          `json:"shop_id,omitempty"`
	CampaignID   string          `json:"campaign_id"`
	Action       string          `json:"action"`
	Actor        string          `json:"actor"`
	OccurredAtMS int64           `json:"occurred_at_ms,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
}

// BatchAck represents the response from a batch submission
type BatchAck struct {
	Status     string `json:"status"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected"`
}

// ChangeEventAck represents the response from a change event submission
type ChangeEventAck struct {
	ID           int64 `json:"id"`
	OccurredAtMS int64 `json:"occurred_at_ms"`
}

// HealthStatus represents the service health response
type HealthStatus struct {
	OK   bool   `json:"ok"`
	TSMS int64  `json:"ts_ms"`
	DB   string `json:"db"`
}

// Stats holds test statistics
type Stats struct {
	RecordsGenerated int
	BatchesSubmitted int
	RecordsAccepted  int
	RecordsDuplicate int
	RecordsRejected  int
	BatchesThrottled int
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsFailed     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
