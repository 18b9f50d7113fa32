package dispatch

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/tilelayout/pkg/assign"
	"github.com/matzehuels/tilelayout/pkg/diff"
	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/observability"
	"github.com/matzehuels/tilelayout/pkg/tree"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

// outputState is the per-output context record. It is only touched by the
// Run goroutine.
type outputState struct {
	name string

	// lastID is the newest request id issued for the output.
	lastID  uint64
	pending *request

	// Size memory and last good geometry.
	prev       *tree.Tree
	area       geometry.Rect
	resolved   *geometry.Resolved
	assignment Assignment
	leafOf     map[WindowID]tree.Path
	unplaced   int
	appliedAt  time.Time

	// memoryLoading is set until the persisted tree has been looked up.
	// A layout wanted in the meantime is deferred until then.
	memoryLoading bool
	deferred      bool
}

// request is an in-flight prompt. Its inputs are snapshotted when the
// prompt is issued so the answer is applied to what the client saw.
type request struct {
	id      uint64
	windows []WindowID
	tags    []uint32
	area    geometry.Rect
	sentAt  time.Time
	timer   *time.Timer

	// timedOut is set once the timeout has been reported. The request
	// stays pending so a late answer to it is still applied.
	timedOut bool
}

func (st *outputState) abandon() {
	if st.pending == nil {
		return
	}
	st.pending.timer.Stop()
	st.pending = nil
}

func (e *Engine) state(ctx context.Context, name string) *outputState {
	st, ok := e.states[name]
	if !ok {
		st = &outputState{name: name}
		e.states[name] = st
		e.loadMemory(ctx, st)
	}
	return st
}

// request issues a prompt for output.
func (e *Engine) request(ctx context.Context, output string) {
	st := e.state(ctx, output)

	if st.memoryLoading {
		st.deferred = true
		return
	}
	if e.session == nil {
		e.logger.Debug("no layout client, deferring layout", "output", output)
		e.dirty[output] = true
		return
	}
	area, ok := e.outputs.WorkingArea(output)
	if !ok {
		e.logger.Warn("layout requested for unknown output", "output", output,
			"err", tlerrors.New(tlerrors.ErrCodeUnknownOutput, "no working area for %s", output))
		return
	}

	tags := slices.Clone(e.windows.ActiveTags(output))
	windows := slices.Clone(e.windows.Windows(output, tags))

	st.abandon()
	st.lastID++
	id := st.lastID
	req := &request{
		id:      id,
		windows: windows,
		tags:    tags,
		area:    area,
		sentAt:  e.now(),
	}
	req.timer = time.AfterFunc(e.opts.RequestTimeout, func() {
		e.post(event{kind: evTimeout, output: output, id: id})
	})
	st.pending = req

	prompt := &wire.Prompt{
		RequestID:   id,
		Output:      output,
		WindowCount: uint32(len(windows)),
		Tags:        tags,
	}
	if !e.session.enqueue(prompt) {
		st.abandon()
		e.logger.Warn("layout client is not keeping up, dropping request",
			"output", output, "request", id, "outbox", e.opts.OutboxSize)
		e.updateSnapshot(st)
		return
	}

	e.logger.Debug("requested layout", "output", output, "request", id, "windows", len(windows))
	observability.Layout().OnRequest(ctx, output, id, len(windows))
	e.updateSnapshot(st)
}

func (e *Engine) onAnswer(ctx context.Context, sessionID string, a *wire.Answer) {
	if e.session == nil || e.session.id != sessionID {
		e.logger.Debug("discarding answer from detached session", "session", sessionID)
		return
	}

	if a.Force != nil {
		output := a.Force.Output
		if err := tlerrors.ValidateOutputName(output); err != nil {
			e.logger.Warn("ignoring forced layout", "output", output, "err", err)
			return
		}
		e.logger.Debug("layout client forced a layout", "output", output)
		e.request(ctx, output)
		return
	}

	resp := a.Tree
	st, ok := e.states[resp.Output]
	if !ok {
		e.logger.Warn("discarding layout for unknown output", "output", resp.Output, "request", resp.RequestID)
		return
	}
	if st.pending == nil || st.pending.id != resp.RequestID {
		e.logger.Debug("discarding stale layout", "output", st.name, "request", resp.RequestID, "latest", st.lastID)
		observability.Layout().OnStale(ctx, st.name, resp.RequestID, st.lastID)
		return
	}

	req := st.pending
	st.abandon()
	e.apply(ctx, st, req, resp.Tree())
}

// apply runs one layout round for an answered request.
func (e *Engine) apply(ctx context.Context, st *outputState, req *request, t tree.Tree) {
	if err := tree.ValidateTree(&t); err != nil {
		e.logger.Warn("rejected layout tree, keeping previous geometry",
			"output", st.name, "request", req.id, "err", err)
		observability.Layout().OnRejected(ctx, st.name, req.id, err)
		return
	}

	var prevRoot *tree.Node
	if st.prev != nil {
		prevRoot = &st.prev.Root
	}
	root, matching := diff.Reconcile(prevRoot, &t.Root)
	resolved := geometry.Resolve(&root, req.area)
	if len(resolved.Degenerate) > 0 {
		e.logger.Warn("layout tree has nodes without usable proportions",
			"output", st.name, "request", req.id, "nodes", len(resolved.Degenerate),
			"err", tlerrors.New(tlerrors.ErrCodeZeroProportionSum, "equal shares used at %s", resolved.Degenerate[0]))
	}

	slots := assign.Assign(&root, len(req.windows))
	assignment := make(Assignment, len(slots))
	leafOf := make(map[WindowID]tree.Path, len(slots))
	for i, p := range slots {
		w := req.windows[i]
		rect, _ := resolved.LeafRect(p)
		assignment[w] = rect
		leafOf[w] = p
	}

	st.prev = &tree.Tree{Root: root, ID: t.ID}
	st.area = req.area
	st.resolved = resolved
	st.assignment = assignment
	st.leafOf = leafOf
	st.unplaced = len(req.windows) - len(slots)
	st.appliedAt = e.now()

	if st.unplaced > 0 {
		e.logger.Debug("layout tree has fewer tiles than windows",
			"output", st.name, "request", req.id, "unplaced", st.unplaced)
	}
	e.logger.Debug("applied layout", "output", st.name, "request", req.id,
		"placed", len(slots), "matched", matching.Len())

	e.sink.Apply(st.name, assignment)
	observability.Layout().OnApplied(ctx, st.name, req.id, len(slots), e.now().Sub(req.sentAt))
	e.storeMemory(ctx, st)
	e.updateSnapshot(st)
}

func (e *Engine) onResize(ctx context.Context, r resizeEvent) {
	var st *outputState
	var leaf tree.Path
	for _, s := range e.states {
		if p, ok := s.leafOf[r.window]; ok {
			st, leaf = s, p
			break
		}
	}
	if st == nil {
		e.logger.Warn("resize of untiled window", "window", r.window,
			"err", tlerrors.New(tlerrors.ErrCodeUnknownWindow, "window %d has no tile", r.window))
		return
	}

	root, err := diff.ResizeTile(&st.prev.Root, st.resolved, leaf, r.edges, e.opts.MinProportion)
	if err != nil {
		e.logger.Error("resize failed", "output", st.name, "window", r.window, "err", err)
		return
	}

	resolved := geometry.Resolve(&root, st.area)
	assignment := make(Assignment, len(st.leafOf))
	for w, p := range st.leafOf {
		rect, _ := resolved.LeafRect(p)
		assignment[w] = rect
	}
	st.prev = &tree.Tree{Root: root, ID: st.prev.ID}
	st.resolved = resolved
	st.assignment = assignment
	st.appliedAt = e.now()

	e.logger.Debug("resized tile", "output", st.name, "window", r.window, "leaf", leaf.String())
	e.sink.Apply(st.name, assignment)
	e.storeMemory(ctx, st)
	e.updateSnapshot(st)
}

func (e *Engine) onTimeout(ctx context.Context, output string, id uint64) {
	st, ok := e.states[output]
	if !ok || st.pending == nil || st.pending.id != id || st.pending.timedOut {
		return
	}
	st.pending.timedOut = true
	e.logger.Warn("layout request timed out, keeping previous geometry",
		"output", output, "request", id, "timeout", e.opts.RequestTimeout)
	observability.Layout().OnTimeout(ctx, output, id)
	e.updateSnapshot(st)
}

func (e *Engine) onRemove(output string) {
	st, ok := e.states[output]
	if !ok {
		return
	}
	st.abandon()
	delete(e.states, output)
	delete(e.dirty, output)
	e.removeSnapshot(output)
	e.logger.Debug("removed output", "output", output)
}
