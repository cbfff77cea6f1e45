// Package cache provides the TTL key/value stores backing the rate provider
package cache

import (
	"context"
	"time"
)

// Store is a concurrent key/value store with per-entry expiry.
// Expired entries are reported as misses. There is no explicit invalidation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
