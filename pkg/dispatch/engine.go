package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/tilelayout/pkg/cache"
	"github.com/matzehuels/tilelayout/pkg/diff"
	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/transport"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

// =============================================================================
// Options
// =============================================================================

// Default option values.
const (
	DefaultRequestTimeout    = 2 * time.Second
	DefaultOutboxSize        = 64
	DefaultMemoryLoadTimeout = 250 * time.Millisecond
	DefaultMemoryTTL         = 720 * time.Hour
)

// Options configures an [Engine]. Zero values select defaults.
type Options struct {
	// RequestTimeout reports a request that has no answer after this long.
	RequestTimeout time.Duration
	// MinProportion is the floor for proportions shrunk by ResizeTile.
	MinProportion float32
	// OutboxSize bounds the prompts waiting to be written to the channel.
	// A request that does not fit is abandoned.
	OutboxSize int

	// Memory persists applied trees. Nil disables persistence.
	Memory cache.Cache
	// Keyer derives memory keys; defaults to cache.NewDefaultKeyer().
	Keyer cache.Keyer
	// MemoryTTL is the expiry of persisted trees.
	MemoryTTL time.Duration
	// MemoryLoadTimeout bounds the load of an output's persisted tree.
	MemoryLoadTimeout time.Duration

	// Logger receives engine logs. Nil discards them.
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MinProportion <= 0 {
		o.MinProportion = diff.DefaultMinProportion
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = DefaultOutboxSize
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.MemoryTTL <= 0 {
		o.MemoryTTL = DefaultMemoryTTL
	}
	if o.MemoryLoadTimeout <= 0 {
		o.MemoryLoadTimeout = DefaultMemoryLoadTimeout
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// =============================================================================
// Engine
// =============================================================================

// Engine is the layout request dispatcher. Create it with [New], start
// [Engine.Run] on its own goroutine and [Engine.Attach] a channel to the
// layout client.
type Engine struct {
	windows WindowRegistry
	outputs OutputRegistry
	sink    Sink
	opts    Options
	logger  *log.Logger

	// Intake, shared with callers.
	mu       sync.Mutex
	queue    []event
	triggers map[string]bool
	wake     chan struct{}

	// Owned by the Run goroutine.
	states  map[string]*outputState
	session *session
	dirty   map[string]bool
	persist sync.WaitGroup
	writer  memoryWriter

	snapMu sync.RWMutex
	snap   snapshot

	now func() time.Time
}

// New creates an engine. The registries and the sink are required.
func New(windows WindowRegistry, outputs OutputRegistry, sink Sink, opts Options) *Engine {
	opts.setDefaults()
	return &Engine{
		windows:  windows,
		outputs:  outputs,
		sink:     sink,
		opts:     opts,
		logger:   opts.Logger,
		triggers: make(map[string]bool),
		wake:     make(chan struct{}, 1),
		states:   make(map[string]*outputState),
		dirty:    make(map[string]bool),
		snap:     snapshot{outputs: make(map[string]OutputSnapshot)},
		now:      time.Now,
	}
}

// =============================================================================
// Intake
// =============================================================================

type eventKind int

const (
	evTrigger eventKind = iota
	evAnswer
	evResize
	evTimeout
	evRemove
	evAttach
	evDetached
	evMemory
)

type event struct {
	kind    eventKind
	output  string
	id      uint64
	session string
	answer  *wire.Answer
	resize  resizeEvent
	channel transport.Channel
	err     error
	memory  *memoryEvent
}

type resizeEvent struct {
	window WindowID
	edges  diff.Edges
}

func (e *Engine) post(ev event) {
	e.mu.Lock()
	e.queue = append(e.queue, ev)
	e.mu.Unlock()
	e.signal()
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) drain() []event {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.queue
	e.queue = nil
	for _, ev := range q {
		if ev.kind == evTrigger {
			delete(e.triggers, ev.output)
		}
	}
	return q
}

// RequestLayout asks for a new layout of output. Requests for an output
// that are still queued are coalesced into one.
func (e *Engine) RequestLayout(output string) error {
	if err := tlerrors.ValidateOutputName(output); err != nil {
		return err
	}
	e.mu.Lock()
	if e.triggers[output] {
		e.mu.Unlock()
		return nil
	}
	e.triggers[output] = true
	e.queue = append(e.queue, event{kind: evTrigger, output: output})
	e.mu.Unlock()
	e.signal()
	return nil
}

// ResizeTile moves the edges of the tile holding window by the given pixel
// deltas and lays its output out again. Positive deltas grow the tile.
func (e *Engine) ResizeTile(window WindowID, d diff.Edges) {
	if d.IsZero() {
		return
	}
	e.post(event{kind: evResize, resize: resizeEvent{window: window, edges: d}})
}

// RemoveOutput forgets an output, including its in-memory size memory.
func (e *Engine) RemoveOutput(output string) {
	e.post(event{kind: evRemove, output: output})
}

// Attach binds the engine to a layout client channel, replacing any
// previous one. Outputs that wanted a layout while no client was connected
// are requested again. Attach returns the new session id.
func (e *Engine) Attach(ch transport.Channel) string {
	id := uuid.NewString()
	e.post(event{kind: evAttach, session: id, channel: ch})
	return id
}

// =============================================================================
// Event Loop
// =============================================================================

// Run processes events until ctx is done. It must be called exactly once.
// On return the channel is closed and pending persistence has finished.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Debug("layout engine started")
	for {
		for _, ev := range e.drain() {
			e.handle(ctx, ev)
		}
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-e.wake:
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evTrigger:
		e.request(ctx, ev.output)
	case evAnswer:
		e.onAnswer(ctx, ev.session, ev.answer)
	case evResize:
		e.onResize(ctx, ev.resize)
	case evTimeout:
		e.onTimeout(ctx, ev.output, ev.id)
	case evRemove:
		e.onRemove(ev.output)
	case evAttach:
		e.onAttach(ctx, ev.session, ev.channel)
	case evDetached:
		e.onDetached(ctx, ev.session, ev.err)
	case evMemory:
		e.onMemory(ctx, ev.output, ev.memory)
	}
}

func (e *Engine) shutdown() {
	if e.session != nil {
		e.session.close()
		e.session = nil
	}
	for _, st := range e.states {
		st.abandon()
	}
	e.setConnected("", false)
	e.persist.Wait()
	e.logger.Debug("layout engine stopped")
}
