// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults, Load(ctx) to layer
//   defaults, an optional YAML file, and environment variables on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address. The default binds all
	// interfaces on port 8000, matching the documented run instructions.
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres connection string. It is read from the
	// conventional DATABASE_URL environment variable and accepts the
	// SQLAlchemy-style postgresql+asyncpg:// form.
	DatabaseURL string `koanf:"database_url"`

	// QueueSize bounds the in-memory batch ingest queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers draining the queue.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the batch idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBatchSize caps the number of items accepted by POST /ingest/raw/batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// DBMaxOpenConns and DBMaxIdleConns bound the connection pool.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`
	DBMaxIdleConns int `koanf:"db_max_idle_conns"`

	// DBConnMaxLifetimeMin recycles pooled connections after this many minutes.
	DBConnMaxLifetimeMin int `koanf:"db_conn_max_lifetime_min"`

	// DBPingTimeoutMS bounds the startup and health-check pings.
	DBPingTimeoutMS int `koanf:"db_ping_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:             "info",
		Addr:                 ":8000",
		DatabaseURL:          "",
		QueueSize:            100_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           50_000,
		MaxBatchSize:         1_000,
		DBMaxOpenConns:       16,
		DBMaxIdleConns:       8,
		DBConnMaxLifetimeMin: 30,
		DBPingTimeoutMS:      5_000,
	}
	return c
}

// DBConnMaxLifetime returns the pooled connection lifetime as a Duration.
func (c *Config) DBConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMin) * time.Minute
}

// DBPingTimeout returns the database ping timeout as a Duration.
func (c *Config) DBPingTimeout() time.Duration {
	return time.Duration(c.DBPingTimeoutMS) * time.Millisecond
}
