// Package cache provides the key/value cache wrapper and its health checker.
// The wrapper degrades gracefully: backend failures are logged and swallowed
// so a cache outage never fails a request.
package cache

import (
	"context"
	"time"
)

// Store is the minimal backend interface the cache service wraps. Values are
// opaque serialized bytes; a zero ttl means no explicit expiry beyond the
// backend default.
type Store interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key with the given expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del removes a single key.
	Del(ctx context.Context, key string) error
	// Clear removes every key in the store's namespace.
	Clear(ctx context.Context) error
}
