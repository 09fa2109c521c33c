// Package repository persists ingested records in PostgreSQL.
package repository

import (
	"context"

	"github.com/srvwb/core/internal/domain/model"
)

// Counts summarizes stored row totals for the stats endpoint.
type Counts struct {
	RawRecords   int64
	ChangeEvents int64
}

// Store provides write access to the ingestion tables.
type Store interface {
	// InsertRaw writes a raw record and returns the generated row id.
	InsertRaw(ctx context.Context, rec model.RawRecord) (int64, error)

	// InsertChangeEvent writes an ad change event and returns the generated row id.
	InsertChangeEvent(ctx context.Context, ev model.ChangeEvent) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Counts returns the stored row totals.
	Counts(ctx context.Context) (Counts, error)

	// Close releases the underlying connection pool.
	Close() error
}
