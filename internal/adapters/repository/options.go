package repository

import (
	"time"

	"github.com/srvwb/core/pkg/logger"
)

// StoreOption applies a configuration option to the PostgresStore.
type StoreOption func(*PostgresStore)

// WithMaxOpenConns bounds the number of open connections in the pool.
func WithMaxOpenConns(n int) StoreOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns bounds the number of idle connections kept in the pool.
func WithMaxIdleConns(n int) StoreOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime recycles pooled connections after the given duration.
func WithConnMaxLifetime(d time.Duration) StoreOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithPingTimeout bounds connectivity checks.
func WithPingTimeout(d time.Duration) StoreOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.pingTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) StoreOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}
