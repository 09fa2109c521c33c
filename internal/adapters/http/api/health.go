// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Pinger reports database connectivity.
type Pinger interface {
	PingDB(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// HandleHealth handles GET /health requests.
// The response is always 200; database trouble is reported in the body so
// that uptime probes keep passing while the db field flags degradation.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	db := "ok"
	if err := h.pinger.PingDB(r.Context()); err != nil {
		db = "error: " + errClass(err)
	}

	writeJSON(w, http.StatusOK, healthResponse{
		OK:   db == "ok",
		TSMS: time.Now().UnixMilli(),
		DB:   db,
	})
}

// errClass collapses a ping failure into a short class name so the health
// body never leaks connection strings.
func errClass(err error) string {
	switch {
	case err == nil:
		return ""
	case isTimeout(err):
		return "timeout"
	default:
		return "unavailable"
	}
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var te timeout
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
