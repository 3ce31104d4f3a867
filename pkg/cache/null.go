package cache

import (
	"context"
	"time"

	"github.com/matzehuels/cascade/pkg/observability"
)

// NullCache discards every write and misses every read. It backs
// --no-cache runs so callers never need a nil check.
type NullCache struct{}

func (NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	observability.Cache().OnCacheMiss(ctx, keyType(key))
	return nil, false, nil
}

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
