// Package kvstore abstracts the TTL key-value cache the chat engine keeps
// its conversation state in. Any backend with get/put/forget and per-key
// expiry can host it; redis is the production backend, the in-memory store
// backs tests.
package kvstore

import (
	"context"
	"time"
)

// Store is the backing-store contract. Get returns (nil, nil) for a missing
// or expired key; only infrastructure failures surface as errors.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}
