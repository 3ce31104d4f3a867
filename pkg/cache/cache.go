// Package cache provides pluggable byte caches for registry lookups.
//
// Keys are namespaced strings like "npm:left-pad"; the part before the
// first colon is reported to the observability hooks as the key type.
// Three backends are provided:
//
//   - [FileCache] stores entries as JSON files under a local directory
//   - [RedisCache] stores entries in a Redis instance with native TTLs
//   - [NullCache] caches nothing, for --no-cache runs
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores opaque byte values under string keys with a TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	// An expired or missing entry returns ok=false with a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores the value. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Hash returns the hex SHA-256 of the key, used by backends that need
// filesystem-safe names.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// keyType extracts the namespace prefix for hook reporting.
// "npm:left-pad" yields "npm"; an unprefixed key yields "default".
func keyType(key string) string {
	if ns, _, ok := strings.Cut(key, ":"); ok && ns != "" {
		return ns
	}
	return "default"
}
