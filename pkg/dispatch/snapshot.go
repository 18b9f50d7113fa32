package dispatch

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// OutputSnapshot is a copy of the state of one output.
type OutputSnapshot struct {
	Name          string `json:"name"`
	LastRequestID uint64 `json:"last_request_id"`
	// PendingRequestID is zero when no request is in flight.
	PendingRequestID uint64        `json:"pending_request_id,omitempty"`
	Area             geometry.Rect `json:"area"`
	Tree             *tree.Tree    `json:"tree,omitempty"`
	Assignment       Assignment    `json:"assignment"`
	// Leaves maps each placed window to the path of its tile.
	Leaves    map[WindowID]tree.Path `json:"leaves,omitempty"`
	Unplaced  int                    `json:"unplaced"`
	AppliedAt time.Time              `json:"applied_at,omitzero"`
}

// Status is a copy of the engine state.
type Status struct {
	Connected bool             `json:"connected"`
	Session   string           `json:"session,omitempty"`
	Outputs   []OutputSnapshot `json:"outputs"`
}

type snapshot struct {
	connected bool
	session   string
	outputs   map[string]OutputSnapshot
}

// Snapshot returns the current state of all outputs, sorted by name.
// It is safe to call from any goroutine.
func (e *Engine) Snapshot() Status {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	st := Status{
		Connected: e.snap.connected,
		Session:   e.snap.session,
		Outputs:   make([]OutputSnapshot, 0, len(e.snap.outputs)),
	}
	for _, o := range e.snap.outputs {
		st.Outputs = append(st.Outputs, o)
	}
	slices.SortFunc(st.Outputs, func(a, b OutputSnapshot) int { return strings.Compare(a.Name, b.Name) })
	return st
}

// Output returns the state of one output.
func (e *Engine) Output(name string) (OutputSnapshot, bool) {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	o, ok := e.snap.outputs[name]
	return o, ok
}

func (e *Engine) updateSnapshot(st *outputState) {
	o := OutputSnapshot{
		Name:          st.name,
		LastRequestID: st.lastID,
		Area:          st.area,
		Assignment:    maps.Clone(st.assignment),
		Leaves:        make(map[WindowID]tree.Path, len(st.leafOf)),
		Unplaced:      st.unplaced,
		AppliedAt:     st.appliedAt,
	}
	for w, p := range st.leafOf {
		o.Leaves[w] = slices.Clone(p)
	}
	if st.pending != nil {
		o.PendingRequestID = st.pending.id
	}
	if st.prev != nil {
		t := st.prev.Clone()
		o.Tree = &t
	}
	if o.Assignment == nil {
		o.Assignment = Assignment{}
	}

	e.snapMu.Lock()
	e.snap.outputs[st.name] = o
	e.snapMu.Unlock()
}

func (e *Engine) removeSnapshot(name string) {
	e.snapMu.Lock()
	delete(e.snap.outputs, name)
	e.snapMu.Unlock()
}

func (e *Engine) setConnected(session string, connected bool) {
	e.snapMu.Lock()
	e.snap.connected = connected
	e.snap.session = session
	e.snapMu.Unlock()
}
