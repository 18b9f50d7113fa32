package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/tilelayout/pkg/cache"
	"github.com/matzehuels/tilelayout/pkg/diff"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/observability"
	"github.com/matzehuels/tilelayout/pkg/transport"
	"github.com/matzehuels/tilelayout/pkg/tree"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

const waitTimeout = 2 * time.Second

// =============================================================================
// Fakes
// =============================================================================

type fakeWindows struct {
	mu      sync.Mutex
	windows map[string][]WindowID
	tags    map[string][]uint32
}

func (f *fakeWindows) ActiveTags(output string) []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[output]
}

func (f *fakeWindows) Windows(output string, _ []uint32) []WindowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows[output]
}

func (f *fakeWindows) set(output string, ids ...WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[output] = ids
}

type fakeOutputs map[string]geometry.Rect

func (f fakeOutputs) WorkingArea(output string) (geometry.Rect, bool) {
	r, ok := f[output]
	return r, ok
}

type applied struct {
	output     string
	assignment Assignment
}

type recordingSink struct{ ch chan applied }

func (s *recordingSink) Apply(output string, a Assignment) {
	s.ch <- applied{output: output, assignment: a}
}

type harness struct {
	engine  *Engine
	windows *fakeWindows
	sink    *recordingSink
	client  transport.ClientChannel
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		windows: &fakeWindows{
			windows: map[string][]WindowID{"DP-1": {1, 2}},
			tags:    map[string][]uint32{"DP-1": {1}},
		},
		sink: &recordingSink{ch: make(chan applied, 16)},
	}
	outputs := fakeOutputs{
		"DP-1":   geometry.NewRect(0, 0, 300, 100),
		"HDMI-1": geometry.NewRect(300, 0, 200, 100),
		"HDMI-2": geometry.NewRect(500, 0, 200, 100),
	}
	h.engine = New(h.windows, outputs, h.sink, opts)
	startEngine(t, h.engine)
	return h
}

func startEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (h *harness) attach(t *testing.T) string {
	t.Helper()
	ch, client := transport.Pipe(16)
	h.client = client
	return h.engine.Attach(ch)
}

func (h *harness) prompt(t *testing.T) *wire.Prompt {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	p, err := h.client.Recv(ctx)
	if err != nil {
		t.Fatalf("waiting for prompt: %v", err)
	}
	return p
}

func (h *harness) answer(t *testing.T, p *wire.Prompt, root tree.Node) {
	t.Helper()
	a := &wire.Answer{Tree: &wire.TreeResponse{RequestID: p.RequestID, Output: p.Output, Root: root}}
	if err := h.client.Send(context.Background(), a); err != nil {
		t.Fatalf("send answer: %v", err)
	}
}

func (h *harness) applied(t *testing.T) applied {
	t.Helper()
	select {
	case a := <-h.sink.ch:
		return a
	case <-time.After(waitTimeout):
		t.Fatal("no layout applied")
		return applied{}
	}
}

func (h *harness) noApply(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case a := <-h.sink.ch:
		t.Fatalf("unexpected layout applied to %s: %v", a.output, a.assignment)
	case <-time.After(d):
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func columns(n int) tree.Node {
	children := make([]tree.Node, n)
	for i := range children {
		children[i] = tree.NewLeaf()
	}
	return tree.NewSplit(tree.Row, children...)
}

func checkAssignment(t *testing.T, got, want Assignment) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("assignment = %v, want %v", got, want)
	}
	for w, r := range want {
		if got[w] != r {
			t.Errorf("window %d: got %v, want %v", w, got[w], r)
		}
	}
}

type layoutEvents struct {
	observability.NoopLayoutHooks
	rejected chan uint64
	timeouts chan uint64
}

func (l *layoutEvents) OnRejected(_ context.Context, _ string, id uint64, _ error) { l.rejected <- id }
func (l *layoutEvents) OnTimeout(_ context.Context, _ string, id uint64)           { l.timeouts <- id }

func recordLayoutEvents(t *testing.T) *layoutEvents {
	t.Helper()
	l := &layoutEvents{rejected: make(chan uint64, 4), timeouts: make(chan uint64, 4)}
	observability.SetLayoutHooks(l)
	t.Cleanup(observability.Reset)
	return l
}

func receive(t *testing.T, ch <-chan uint64, what string) uint64 {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(waitTimeout):
		t.Fatalf("no %s", what)
		return 0
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestEngineAppliesLayout(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)

	if err := h.engine.RequestLayout("DP-1"); err != nil {
		t.Fatal(err)
	}
	p := h.prompt(t)
	if p.RequestID != 1 || p.Output != "DP-1" || p.WindowCount != 2 {
		t.Fatalf("prompt = %+v", p)
	}
	if len(p.Tags) != 1 || p.Tags[0] != 1 {
		t.Errorf("tags = %v, want [1]", p.Tags)
	}

	h.answer(t, p, columns(2))
	got := h.applied(t)
	if got.output != "DP-1" {
		t.Errorf("output = %q", got.output)
	}
	checkAssignment(t, got.assignment, Assignment{
		1: geometry.NewRect(0, 0, 150, 100),
		2: geometry.NewRect(150, 0, 150, 100),
	})

	eventually(t, "snapshot", func() bool {
		o, ok := h.engine.Output("DP-1")
		return ok && o.Tree != nil && o.PendingRequestID == 0
	})
	o, _ := h.engine.Output("DP-1")
	if o.LastRequestID != 1 || o.Unplaced != 0 || len(o.Assignment) != 2 {
		t.Errorf("snapshot = %+v", o)
	}
	if st := h.engine.Snapshot(); !st.Connected || len(st.Outputs) != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestEngineInvalidOutputName(t *testing.T) {
	h := newHarness(t, Options{})
	if err := h.engine.RequestLayout(""); err == nil {
		t.Error("expected error for empty output name")
	}
}

func TestEngineDiscardsStaleAnswer(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	first := h.prompt(t)
	_ = h.engine.RequestLayout("DP-1")
	second := h.prompt(t)
	if second.RequestID <= first.RequestID {
		t.Fatalf("request ids not increasing: %d then %d", first.RequestID, second.RequestID)
	}

	h.answer(t, first, columns(3))
	h.answer(t, second, columns(2))

	got := h.applied(t)
	checkAssignment(t, got.assignment, Assignment{
		1: geometry.NewRect(0, 0, 150, 100),
		2: geometry.NewRect(150, 0, 150, 100),
	})
	h.noApply(t, 50*time.Millisecond)
}

func TestEngineAppliesLateAnswerToLatestRequest(t *testing.T) {
	events := recordLayoutEvents(t)
	h := newHarness(t, Options{RequestTimeout: 20 * time.Millisecond})
	h.attach(t)

	for round := 0; round < 3; round++ {
		_ = h.engine.RequestLayout("DP-1")
		p := h.prompt(t)
		if id := receive(t, events.timeouts, "timeout"); id != p.RequestID {
			t.Fatalf("round %d: timed out request %d, want %d", round, id, p.RequestID)
		}
		o, _ := h.engine.Output("DP-1")
		if o.PendingRequestID != p.RequestID {
			t.Fatalf("round %d: pending request = %d, want %d", round, o.PendingRequestID, p.RequestID)
		}

		h.answer(t, p, columns(2))
		got := h.applied(t)
		checkAssignment(t, got.assignment, Assignment{
			1: geometry.NewRect(0, 0, 150, 100),
			2: geometry.NewRect(150, 0, 150, 100),
		})
	}
}

func TestEngineDiscardsLateAnswerToSupersededRequest(t *testing.T) {
	events := recordLayoutEvents(t)
	h := newHarness(t, Options{RequestTimeout: 20 * time.Millisecond})
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	first := h.prompt(t)
	receive(t, events.timeouts, "timeout")

	_ = h.engine.RequestLayout("DP-1")
	second := h.prompt(t)

	h.answer(t, first, columns(3))
	h.noApply(t, 50*time.Millisecond)

	h.answer(t, second, columns(2))
	got := h.applied(t)
	checkAssignment(t, got.assignment, Assignment{
		1: geometry.NewRect(0, 0, 150, 100),
		2: geometry.NewRect(150, 0, 150, 100),
	})
}

func TestEngineRejectedTreeKeepsGeometry(t *testing.T) {
	events := recordLayoutEvents(t)
	h := newHarness(t, Options{})
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	h.answer(t, h.prompt(t), columns(2))
	before := h.applied(t).assignment

	_ = h.engine.RequestLayout("DP-1")
	p := h.prompt(t)
	bad := tree.NewSplit(tree.Row, tree.NewLeaf(), tree.NewLeaf().WithProportion(-1))
	h.answer(t, p, bad)

	if id := receive(t, events.rejected, "rejection"); id != p.RequestID {
		t.Fatalf("rejected request %d, want %d", id, p.RequestID)
	}
	h.noApply(t, 20*time.Millisecond)

	o, _ := h.engine.Output("DP-1")
	checkAssignment(t, o.Assignment, before)
	if o.PendingRequestID != 0 {
		t.Errorf("rejected request still pending")
	}
}

func TestEngineUnplacedWindows(t *testing.T) {
	h := newHarness(t, Options{})
	h.windows.set("DP-1", 10, 11, 12)
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	h.answer(t, h.prompt(t), columns(2))
	got := h.applied(t)
	if _, ok := got.assignment[12]; ok || len(got.assignment) != 2 {
		t.Errorf("assignment = %v, want windows 10 and 11 only", got.assignment)
	}
	eventually(t, "snapshot", func() bool {
		o, _ := h.engine.Output("DP-1")
		return o.Unplaced == 1
	})
}

func TestEngineDefersUntilAttached(t *testing.T) {
	h := newHarness(t, Options{})

	_ = h.engine.RequestLayout("DP-1")
	_ = h.engine.RequestLayout("HDMI-1")
	h.noApply(t, 20*time.Millisecond)
	if h.engine.Snapshot().Connected {
		t.Fatal("connected without a channel")
	}

	h.attach(t)
	a, b := h.prompt(t), h.prompt(t)
	if a.Output != "DP-1" || b.Output != "HDMI-1" {
		t.Errorf("prompts for %s, %s; want DP-1, HDMI-1", a.Output, b.Output)
	}
}

func TestEngineReconnectRerequests(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	first := h.prompt(t)
	_ = h.client.Close()
	eventually(t, "disconnect", func() bool { return !h.engine.Snapshot().Connected })

	h.attach(t)
	p := h.prompt(t)
	if p.Output != "DP-1" || p.RequestID <= first.RequestID {
		t.Fatalf("prompt after reconnect = %+v", p)
	}
	h.answer(t, p, columns(2))
	h.applied(t)
}

func TestEngineReplacesChannel(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)
	old := h.client

	_ = h.engine.RequestLayout("DP-1")
	stale := h.prompt(t)

	second := h.attach(t)
	p := h.prompt(t)
	if p.RequestID <= stale.RequestID {
		t.Fatalf("request %d not newer than %d", p.RequestID, stale.RequestID)
	}
	eventually(t, "session", func() bool { return h.engine.Snapshot().Session == second })

	// The old channel is closed; its answer can never arrive.
	if err := old.Send(context.Background(), &wire.Answer{Tree: &wire.TreeResponse{
		RequestID: stale.RequestID, Output: "DP-1", Root: columns(2),
	}}); err == nil {
		t.Error("send on replaced channel succeeded")
	}
	h.answer(t, p, columns(2))
	h.applied(t)
}

func TestEngineForceLayout(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)

	err := h.client.Send(context.Background(), &wire.Answer{Force: &wire.ForceLayout{Output: "DP-1"}})
	if err != nil {
		t.Fatal(err)
	}
	p := h.prompt(t)
	if p.Output != "DP-1" || p.RequestID != 1 {
		t.Errorf("prompt = %+v", p)
	}
}

func TestEngineResizeTile(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	h.answer(t, h.prompt(t), columns(2))
	h.applied(t)

	h.engine.ResizeTile(1, diff.Edges{Right: 10})
	got := h.applied(t)
	checkAssignment(t, got.assignment, Assignment{
		1: geometry.NewRect(0, 0, 160, 100),
		2: geometry.NewRect(160, 0, 140, 100),
	})

	// The next layout of the same structure keeps the resized proportions.
	_ = h.engine.RequestLayout("DP-1")
	h.answer(t, h.prompt(t), columns(2))
	checkAssignment(t, h.applied(t).assignment, got.assignment)
}

func TestEngineResizeUnknownWindow(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.ResizeTile(99, diff.Edges{Left: 5})
	h.engine.ResizeTile(1, diff.Edges{})
	h.noApply(t, 20*time.Millisecond)
}

func TestEngineRemoveOutput(t *testing.T) {
	h := newHarness(t, Options{})
	h.attach(t)

	_ = h.engine.RequestLayout("DP-1")
	p := h.prompt(t)
	h.engine.RemoveOutput("DP-1")
	eventually(t, "removal", func() bool {
		_, ok := h.engine.Output("DP-1")
		return !ok
	})
	h.answer(t, p, columns(2))
	h.noApply(t, 50*time.Millisecond)
}

func TestEngineFullOutboxAbandonsRequest(t *testing.T) {
	h := newHarness(t, Options{OutboxSize: 1, RequestTimeout: time.Minute})
	ch, client := transport.Pipe(0)
	h.client = client
	h.engine.Attach(ch)

	// Nobody reads: one prompt blocks in the writer, one waits in the
	// outbox, the rest cannot be queued.
	for _, name := range []string{"DP-1", "HDMI-1", "HDMI-2"} {
		_ = h.engine.RequestLayout(name)
	}
	eventually(t, "requests", func() bool {
		st := h.engine.Snapshot()
		if len(st.Outputs) != 3 {
			return false
		}
		for _, o := range st.Outputs {
			if o.LastRequestID != 1 {
				return false
			}
		}
		return true
	})

	abandoned := 0
	for _, o := range h.engine.Snapshot().Outputs {
		if o.PendingRequestID == 0 {
			abandoned++
		}
	}
	if abandoned == 0 {
		t.Error("no request abandoned with a full outbox")
	}
}

func TestEngineCoalescesTriggers(t *testing.T) {
	e := New(&fakeWindows{}, fakeOutputs{}, &recordingSink{}, Options{})

	for range 3 {
		_ = e.RequestLayout("DP-1")
	}
	_ = e.RequestLayout("HDMI-1")
	if q := e.drain(); len(q) != 2 {
		t.Fatalf("queued %d events, want 2", len(q))
	}

	_ = e.RequestLayout("DP-1")
	if q := e.drain(); len(q) != 1 {
		t.Fatalf("queued %d events after drain, want 1", len(q))
	}
}

func TestEngineSizeMemory(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	labelled := func(p1, p2 float32) tree.Node {
		return tree.NewSplit(tree.Row,
			tree.NewLeaf().WithLabel("main").WithProportion(p1),
			tree.NewLeaf().WithLabel("side").WithProportion(p2),
		).WithLabel("root")
	}

	t.Run("persist", func(t *testing.T) {
		h := newHarness(t, Options{Memory: fc})
		h.attach(t)
		_ = h.engine.RequestLayout("DP-1")
		h.answer(t, h.prompt(t), labelled(2, 1))
		h.applied(t)
	})

	t.Run("restore", func(t *testing.T) {
		h := newHarness(t, Options{Memory: fc})
		h.attach(t)
		_ = h.engine.RequestLayout("DP-1")
		h.answer(t, h.prompt(t), labelled(1, 1))
		checkAssignment(t, h.applied(t).assignment, Assignment{
			1: geometry.NewRect(0, 0, 200, 100),
			2: geometry.NewRect(200, 0, 100, 100),
		})
	})
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	if o.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v", o.RequestTimeout)
	}
	if o.MinProportion != diff.DefaultMinProportion {
		t.Errorf("MinProportion = %v", o.MinProportion)
	}
	if o.OutboxSize != DefaultOutboxSize || o.Keyer == nil || o.Logger == nil {
		t.Errorf("defaults not applied: %+v", o)
	}
}
