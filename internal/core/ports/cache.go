package ports

import (
	"context"
	"time"
)

// Cache defines a minimal key-value cache contract.
// Implementations return errors instead of hiding them; callers degrade to the
// durable store on any failure, so a cache outage never fails a catalog call.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL. Values are whole snapshots, never patched.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}
