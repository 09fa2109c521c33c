// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/srvwb/core/internal/domain/dedupe"
	"github.com/srvwb/core/internal/domain/model"
	"github.com/srvwb/core/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// IngestRaw persists a raw record and returns its row id.
	IngestRaw(ctx context.Context, rec model.RawRecord) (int64, error)

	// IngestChangeEvent persists an ad change event and returns its row id.
	IngestChangeEvent(ctx context.Context, ev model.ChangeEvent) (int64, error)

	// EnqueueRaw pushes a record for async processing. Returns false on backpressure.
	EnqueueRaw(ctx context.Context, rec model.RawRecord) bool

	// PingDB verifies database connectivity.
	PingDB(ctx context.Context) error

	// MaxBatchSize caps the number of items accepted per batch request.
	MaxBatchSize() int
}

// Server wires HTTP routes for the ingestion API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	ingestHandler      *IngestHandler
	batchHandler       *BatchHandler
	changeEventHandler *ChangeEventHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		ingestHandler:      NewIngestHandler(deps),
		batchHandler:       NewBatchHandler(deps),
		changeEventHandler: NewChangeEventHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ingest/raw", MetricsMiddleware(s.ingestHandler.HandleIngestRaw, "ingest_raw"))
	mux.HandleFunc("/ingest/raw/batch", MetricsMiddleware(s.batchHandler.HandleIngestBatch, "ingest_raw_batch"))
	mux.HandleFunc("/ads/change_event", MetricsMiddleware(s.changeEventHandler.HandleChangeEvent, "ads_change_event"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// rawIngestRequest mirrors the OpenAPI schema for POST /ingest/raw.
// RecordID is only meaningful inside batch submissions, where it enables
// idempotent retries. OccurredAtMS is a pointer so an explicit zero can be
// told apart from an absent field and stored as sent.
type rawIngestRequest struct {
	RecordID     string          `json:"record_id,omitempty"`
	Source       string          `json:"source"`
	Kind         string          `json:"kind"`
	ShopID       string          `json:"shop_id,omitempty"`
	OccurredAtMS *int64          `json:"occurred_at_ms,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func (r rawIngestRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Source) == "":
		return errors.New("missing source")
	case strings.TrimSpace(r.Kind) == "":
		return errors.New("missing kind")
	case r.OccurredAtMS != nil && *r.OccurredAtMS < 0:
		return errors.New("occurred_at_ms must not be negative")
	case len(r.Payload) == 0 || string(r.Payload) == "null":
		return errors.New("missing payload")
	}
	return nil
}

// toRecord builds the record stamped with receivedAtMS. An absent
// occurred_at_ms falls back to the receive time.
func (r rawIngestRequest) toRecord(receivedAtMS int64) model.RawRecord {
	occurredAtMS := receivedAtMS
	if r.OccurredAtMS != nil {
		occurredAtMS = *r.OccurredAtMS
	}
	return model.RawRecord{
		RecordID:     r.RecordID,
		Source:       r.Source,
		Kind:         r.Kind,
		ShopID:       r.ShopID,
		ReceivedAtMS: receivedAtMS,
		OccurredAtMS: occurredAtMS,
		Payload:      r.Payload,
	}
}

// changeEventRequest mirrors the OpenAPI schema for POST /ads/change_event.
type changeEventRequest struct {
	ShopID       string          `json:"shop_id,omitempty"`
	CampaignID   string          `json:"campaign_id"`
	Action       string          `json:"action"`
	Actor        string          `json:"actor"`
	OccurredAtMS *int64          `json:"occurred_at_ms,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
}

func (r changeEventRequest) validate() error {
	switch {
	case strings.TrimSpace(r.CampaignID) == "":
		return errors.New("missing campaign_id")
	case strings.TrimSpace(r.Actor) == "":
		return errors.New("missing actor")
	case !model.IsValidAction(r.Action):
		return errors.New("invalid action")
	case r.OccurredAtMS != nil && *r.OccurredAtMS < 0:
		return errors.New("occurred_at_ms must not be negative")
	}
	return nil
}

type rawIngestResponse struct {
	ID           int64 `json:"id"`
	ReceivedAtMS int64 `json:"received_at_ms"`
}

type changeEventResponse struct {
	ID           int64 `json:"id"`
	OccurredAtMS int64 `json:"occurred_at_ms"`
}

type batchResponse struct {
	Status     string `json:"status"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected"`
}

type healthResponse struct {
	OK   bool   `json:"ok"`
	TSMS int64  `json:"ts_ms"`
	DB   string `json:"db"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
