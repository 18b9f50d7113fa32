package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistryDefaultsAndReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Errorf("Layout() = %T, want NoopLayoutHooks", Layout())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := Transport().(NoopTransportHooks); !ok {
		t.Errorf("Transport() = %T, want NoopTransportHooks", Transport())
	}

	c := NewCounters()
	c.Install()
	if Layout() != LayoutHooks(c) || Cache() != CacheHooks(c) || Transport() != TransportHooks(c) {
		t.Fatal("Install() did not register the counters for every category")
	}

	SetLayoutHooks(nil)
	if Layout() != LayoutHooks(c) {
		t.Error("SetLayoutHooks(nil) replaced the installed hooks")
	}

	Reset()
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Reset() kept the counters")
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	c := NewCounters()

	c.OnRequest(ctx, "DP-1", 1, 3)
	c.OnRequest(ctx, "DP-1", 2, 3)
	c.OnStale(ctx, "DP-1", 1, 2)
	c.OnApplied(ctx, "DP-1", 2, 3, 10*time.Millisecond)
	c.OnRequest(ctx, "DP-1", 3, 3)
	c.OnApplied(ctx, "DP-1", 3, 3, 30*time.Millisecond)
	c.OnRejected(ctx, "HDMI-1", 1, errors.New("proportion -1"))
	c.OnTimeout(ctx, "HDMI-1", 2)

	c.OnCacheMiss(ctx, "tree")
	c.OnCacheSet(ctx, "tree", 120)
	c.OnCacheHit(ctx, "tree")

	c.OnConnect(ctx, "a")
	c.OnDisconnect(ctx, "a", errors.New("broken pipe"))
	c.OnConnect(ctx, "b")
	c.OnDisconnect(ctx, "b", nil)

	got := c.Stats()
	want := Stats{
		Layout:    LayoutStats{Requests: 3, Applied: 2, Stale: 1, Rejected: 1, Timeouts: 1, MeanLatency: 20 * time.Millisecond},
		Memory:    MemoryStats{Hits: 1, Misses: 1, Writes: 1, BytesOut: 120},
		Transport: TransportStats{Connects: 2, Disconnects: 2, Failures: 1},
	}
	if got != want {
		t.Errorf("Stats() = %+v\nwant %+v", got, want)
	}
}

func TestCountersConcurrent(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.OnRequest(context.Background(), "DP-1", uint64(j), 1)
			}
		}()
	}
	wg.Wait()
	if got := c.Stats().Layout.Requests; got != 800 {
		t.Errorf("requests = %d, want 800", got)
	}
}

func TestNoopHooks(t *testing.T) {
	ctx := context.Background()
	NoopLayoutHooks{}.OnRejected(ctx, "DP-1", 2, errors.New("bad tree"))
	NoopCacheHooks{}.OnCacheSet(ctx, "tree", 1024)
	NoopTransportHooks{}.OnDisconnect(ctx, "session", nil)
}
