// Package cache provides the key-value store backing token revocation.
// Reads fail open so a lost redis does not take the API down; writes
// propagate errors so a revocation that was never stored is never
// reported as successful.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get returns nil with no error on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
