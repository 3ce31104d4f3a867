// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about workspace discovery, change
// classification, planning, and apply progress.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This avoids import cycles (hooks are registered by main, not by
// libraries) and keeps the engine free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEngineHooks(&myEngineHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Engine().OnPlanStart(ctx, changesetCount)
//	// ... plan ...
//	observability.Engine().OnPlanComplete(ctx, entryCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// EngineHooks receives events from the planning engine.
type EngineHooks interface {
	// Discovery events
	OnDiscoverStart(ctx context.Context, root string)
	OnDiscoverComplete(ctx context.Context, root string, packageCount int, err error)

	// Classification events
	OnClassify(ctx context.Context, pkg string, fileCount int, significance string)

	// Planning events
	OnPlanStart(ctx context.Context, changesetCount int)
	OnPlanComplete(ctx context.Context, entryCount int, duration time.Duration, err error)

	// Apply events, one pair per plan entry
	OnApplyEntry(ctx context.Context, pkg, from, to string)
	OnApplyComplete(ctx context.Context, applied int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnDiscoverStart(context.Context, string)                       {}
func (NoopEngineHooks) OnDiscoverComplete(context.Context, string, int, error)        {}
func (NoopEngineHooks) OnClassify(context.Context, string, int, string)               {}
func (NoopEngineHooks) OnPlanStart(context.Context, int)                              {}
func (NoopEngineHooks) OnPlanComplete(context.Context, int, time.Duration, error)     {}
func (NoopEngineHooks) OnApplyEntry(context.Context, string, string, string)          {}
func (NoopEngineHooks) OnApplyComplete(context.Context, int, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup before any engine work.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
}
