// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/srvwb/core/pkg/metrics"
)

// batchRequest mirrors the OpenAPI schema for POST /ingest/raw/batch.
type batchRequest struct {
	Records []rawIngestRequest `json:"records"`
}

// BatchHandler handles bulk raw record submissions.
type BatchHandler struct {
	deps Dependencies
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps Dependencies) *BatchHandler {
	return &BatchHandler{deps: deps}
}

// HandleIngestBatch handles POST /ingest/raw/batch requests. Records are
// enqueued for async persistence; a record_id makes an item idempotent
// across retries. The whole request is rejected with 429 once the queue
// stops accepting, so callers can back off and resend.
func (h *BatchHandler) HandleIngestBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("empty records")))
		return
	}
	if maxItems := h.deps.MaxBatchSize(); len(req.Records) > maxItems {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("too many records; limit is %d", maxItems)))
		return
	}

	var accepted, duplicates, rejected int
	for _, item := range req.Records {
		if err := item.validate(); err != nil {
			rejected++
			metrics.RecordBatchItemRejected()
			continue
		}

		// Idempotency check; mark the id as seen first.
		if item.RecordID != "" && h.deps.SeenAndRecord(r.Context(), item.RecordID) {
			duplicates++
			continue
		}

		if ok := h.deps.EnqueueRaw(r.Context(), item.toRecord(time.Now().UnixMilli())); !ok {
			// Roll back the seen status so a retry is not treated as a duplicate.
			if item.RecordID != "" {
				h.deps.Unrecord(r.Context(), item.RecordID)
			}
			writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
			return
		}
		accepted++
	}

	writeJSON(w, http.StatusAccepted, batchResponse{
		Status:     "accepted",
		Accepted:   accepted,
		Duplicates: duplicates,
		Rejected:   rejected,
	})
}
