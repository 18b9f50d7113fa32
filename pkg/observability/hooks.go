// Package observability carries layout, size memory and connection events
// from the engine to whoever wants to count or trace them.
//
// Libraries emit events to the installed hooks, which default to no-ops.
// The serve command installs [Counters] and the inspect API reports them.
//
//	counters := observability.NewCounters()
//	counters.Install()
//
// Emitting an event:
//
//	observability.Layout().OnRequest(ctx, output, requestID, windows)
//	// ... response arrives ...
//	observability.Layout().OnApplied(ctx, output, requestID, placed, elapsed)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout request dispatcher.
type LayoutHooks interface {
	// OnRequest records a prompt sent to the layout client.
	OnRequest(ctx context.Context, output string, requestID uint64, windows int)

	// OnApplied records a response that produced new geometry.
	OnApplied(ctx context.Context, output string, requestID uint64, placed int, elapsed time.Duration)

	// OnStale records a response discarded because a newer request exists.
	OnStale(ctx context.Context, output string, requestID, current uint64)

	// OnRejected records a response whose tree failed validation.
	OnRejected(ctx context.Context, output string, requestID uint64, err error)

	// OnTimeout records a request abandoned for lack of a response.
	OnTimeout(ctx context.Context, output string, requestID uint64)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Transport Hooks
// =============================================================================

// TransportHooks receives events about the layout client connection.
type TransportHooks interface {
	// OnConnect records a newly attached channel.
	OnConnect(ctx context.Context, session string)

	// OnDisconnect records a lost channel. err is nil on orderly close.
	OnDisconnect(ctx context.Context, session string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnRequest(context.Context, string, uint64, int)                {}
func (NoopLayoutHooks) OnApplied(context.Context, string, uint64, int, time.Duration) {}
func (NoopLayoutHooks) OnStale(context.Context, string, uint64, uint64)               {}
func (NoopLayoutHooks) OnRejected(context.Context, string, uint64, error)             {}
func (NoopLayoutHooks) OnTimeout(context.Context, string, uint64)                     {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopTransportHooks is a no-op implementation of TransportHooks.
type NoopTransportHooks struct{}

func (NoopTransportHooks) OnConnect(context.Context, string)           {}
func (NoopTransportHooks) OnDisconnect(context.Context, string, error) {}

// =============================================================================
// Registry
// =============================================================================

// registry holds the installed hooks. Reads vastly outnumber writes, which
// only happen at startup and in tests.
type registry struct {
	mu        sync.RWMutex
	layout    LayoutHooks
	cache     CacheHooks
	transport TransportHooks
}

var hooks = newRegistry()

func newRegistry() *registry {
	return &registry{
		layout:    NoopLayoutHooks{},
		cache:     NoopCacheHooks{},
		transport: NoopTransportHooks{},
	}
}

// set runs fn with the registry locked for writing.
func (r *registry) set(fn func(*registry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// SetLayoutHooks installs layout hooks. Nil is ignored. Call it before the
// engine runs.
func SetLayoutHooks(h LayoutHooks) {
	if h != nil {
		hooks.set(func(r *registry) { r.layout = h })
	}
}

// SetCacheHooks installs cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		hooks.set(func(r *registry) { r.cache = h })
	}
}

// SetTransportHooks installs transport hooks. Nil is ignored.
func SetTransportHooks(h TransportHooks) {
	if h != nil {
		hooks.set(func(r *registry) { r.transport = h })
	}
}

// Layout returns the installed layout hooks.
func Layout() LayoutHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.layout
}

// Cache returns the installed cache hooks.
func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

// Transport returns the installed transport hooks.
func Transport() TransportHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.transport
}

// Reset restores the no-op hooks.
func Reset() {
	fresh := newRegistry()
	hooks.set(func(r *registry) {
		r.layout, r.cache, r.transport = fresh.layout, fresh.cache, fresh.transport
	})
}
