// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// IngestHandler handles single raw record submissions.
type IngestHandler struct {
	deps Dependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps Dependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// HandleIngestRaw handles POST /ingest/raw requests. The record is persisted
// synchronously so the caller gets the row id back.
func (h *IngestHandler) HandleIngestRaw(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_raw"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req rawIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rec := req.toRecord(time.Now().UnixMilli())

	id, err := h.deps.IngestRaw(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_failed", NewKind(op, ErrStoreFailed))
		return
	}

	writeJSON(w, http.StatusOK, rawIngestResponse{ID: id, ReceivedAtMS: rec.ReceivedAtMS})
}
