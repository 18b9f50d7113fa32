package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters tallies hook events. It implements all hook interfaces and is
// safe for concurrent use. Install it once at startup:
//
//	counters := observability.NewCounters()
//	counters.Install()
type Counters struct {
	requests, applied, stale, rejected, timeouts atomic.Uint64
	latency                                      atomic.Int64

	hits, misses, sets atomic.Uint64
	setBytes           atomic.Int64

	connects, disconnects, failures atomic.Uint64
}

// NewCounters creates zeroed counters.
func NewCounters() *Counters { return &Counters{} }

// Install registers c for layout, cache and transport events.
func (c *Counters) Install() {
	SetLayoutHooks(c)
	SetCacheHooks(c)
	SetTransportHooks(c)
}

func (c *Counters) OnRequest(context.Context, string, uint64, int) { c.requests.Add(1) }

func (c *Counters) OnApplied(_ context.Context, _ string, _ uint64, _ int, elapsed time.Duration) {
	c.applied.Add(1)
	c.latency.Add(int64(elapsed))
}

func (c *Counters) OnStale(context.Context, string, uint64, uint64)   { c.stale.Add(1) }
func (c *Counters) OnRejected(context.Context, string, uint64, error) { c.rejected.Add(1) }
func (c *Counters) OnTimeout(context.Context, string, uint64)         { c.timeouts.Add(1) }

func (c *Counters) OnCacheHit(context.Context, string)  { c.hits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string) { c.misses.Add(1) }

func (c *Counters) OnCacheSet(_ context.Context, _ string, size int) {
	c.sets.Add(1)
	c.setBytes.Add(int64(size))
}

func (c *Counters) OnConnect(context.Context, string) { c.connects.Add(1) }

func (c *Counters) OnDisconnect(_ context.Context, _ string, err error) {
	c.disconnects.Add(1)
	if err != nil {
		c.failures.Add(1)
	}
}

// Stats is a point-in-time copy of [Counters].
type Stats struct {
	Layout    LayoutStats    `json:"layout"`
	Memory    MemoryStats    `json:"memory"`
	Transport TransportStats `json:"transport"`
}

type LayoutStats struct {
	Requests uint64 `json:"requests"`
	Applied  uint64 `json:"applied"`
	Stale    uint64 `json:"stale"`
	Rejected uint64 `json:"rejected"`
	Timeouts uint64 `json:"timeouts"`
	// MeanLatency is the mean time from prompt to applied layout.
	MeanLatency time.Duration `json:"mean_latency_ns"`
}

type MemoryStats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Writes   uint64 `json:"writes"`
	BytesOut int64  `json:"bytes_written"`
}

type TransportStats struct {
	Connects    uint64 `json:"connects"`
	Disconnects uint64 `json:"disconnects"`
	Failures    uint64 `json:"failures"`
}

// Stats returns the current counts.
func (c *Counters) Stats() Stats {
	s := Stats{
		Layout: LayoutStats{
			Requests: c.requests.Load(),
			Applied:  c.applied.Load(),
			Stale:    c.stale.Load(),
			Rejected: c.rejected.Load(),
			Timeouts: c.timeouts.Load(),
		},
		Memory: MemoryStats{
			Hits:     c.hits.Load(),
			Misses:   c.misses.Load(),
			Writes:   c.sets.Load(),
			BytesOut: c.setBytes.Load(),
		},
		Transport: TransportStats{
			Connects:    c.connects.Load(),
			Disconnects: c.disconnects.Load(),
			Failures:    c.failures.Load(),
		},
	}
	if s.Layout.Applied > 0 {
		s.Layout.MeanLatency = time.Duration(c.latency.Load() / int64(s.Layout.Applied))
	}
	return s
}

var (
	_ LayoutHooks    = (*Counters)(nil)
	_ CacheHooks     = (*Counters)(nil)
	_ TransportHooks = (*Counters)(nil)
)
