// Package cache persists size memory across engine restarts.
//
// A [Cache] is a byte store with per-entry expiry. The dispatcher stores
// the last applied layout tree of every output under a key produced by a
// [Keyer], and seeds an output's previous tree from it the first time the
// output is laid out.
//
// Backends:
//   - [NullCache]: stores nothing (size memory lives only in process)
//   - [FileCache]: one JSON file per key under a directory, for single-user sessions
//   - [RedisCache]: shared memory across compositor instances
//   - [MongoCache]: a document per key, for deployments already running MongoDB
//
// Network backends report unreachable servers with the UNAVAILABLE error
// code, which [Retry] retries.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss
	// (hit false, err nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// TreeKey returns the key of the size memory of an output.
	TreeKey(output string) string
}
