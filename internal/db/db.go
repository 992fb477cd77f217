// Package db holds the storage contracts shared by the SQL and key-value backends.
package db

import (
	"context"
	"time"
)

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache is the key-value store behind classification memoization and
// classifier call counters.
type Cache interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// IncrWithTTL increments a counter and returns its new value. The ttl
	// is applied only when the key has none yet.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close()
}
