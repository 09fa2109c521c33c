// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/srvwb/core/internal/domain/model"
)

// ChangeEventHandler handles ad change event submissions.
type ChangeEventHandler struct {
	deps Dependencies
}

// NewChangeEventHandler creates a new change event handler.
func NewChangeEventHandler(deps Dependencies) *ChangeEventHandler {
	return &ChangeEventHandler{deps: deps}
}

// HandleChangeEvent handles POST /ads/change_event requests. The action must
// be one of the known campaign actions; anything else is a 400.
func (h *ChangeEventHandler) HandleChangeEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.change_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req changeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// An absent occurred_at_ms defaults to now; an explicit zero is kept.
	occurredAtMS := time.Now().UnixMilli()
	if req.OccurredAtMS != nil {
		occurredAtMS = *req.OccurredAtMS
	}

	ev := model.ChangeEvent{
		ShopID:       req.ShopID,
		CampaignID:   req.CampaignID,
		Action:       req.Action,
		Actor:        req.Actor,
		OccurredAtMS: occurredAtMS,
		Meta:         req.Meta,
	}

	id, err := h.deps.IngestChangeEvent(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_failed", NewKind(op, ErrStoreFailed))
		return
	}

	writeJSON(w, http.StatusOK, changeEventResponse{ID: id, OccurredAtMS: ev.OccurredAtMS})
}
