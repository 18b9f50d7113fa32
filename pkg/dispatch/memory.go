package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/matzehuels/tilelayout/pkg/cache"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// persistTimeout bounds one write of an output's size memory.
const persistTimeout = 5 * time.Second

type memoryEvent struct {
	tree *tree.Tree
	err  error
}

// memoryWriter persists trees one at a time. A newer tree for the same key
// replaces one that has not been written yet, so only the latest size
// memory of an output reaches the cache.
type memoryWriter struct {
	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	running bool
}

func (e *Engine) loadMemory(ctx context.Context, st *outputState) {
	if e.opts.Memory == nil {
		return
	}
	st.memoryLoading = true
	name := st.name
	key := e.opts.Keyer.TreeKey(name)

	e.persist.Add(1)
	go func() {
		defer e.persist.Done()
		lctx, cancel := context.WithTimeout(ctx, e.opts.MemoryLoadTimeout)
		defer cancel()

		ev := &memoryEvent{}
		data, hit, err := e.opts.Memory.Get(lctx, key)
		switch {
		case err != nil:
			ev.err = err
		case hit:
			t, err := tree.Read(bytes.NewReader(data))
			if err == nil {
				err = tree.ValidateTree(&t)
			}
			if err != nil {
				ev.err = err
			} else {
				ev.tree = &t
			}
		}
		e.post(event{kind: evMemory, output: name, memory: ev})
	}()
}

func (e *Engine) onMemory(ctx context.Context, output string, ev *memoryEvent) {
	st, ok := e.states[output]
	if !ok {
		return
	}
	st.memoryLoading = false
	switch {
	case ev.err != nil:
		e.logger.Warn("could not load size memory", "output", output, "err", ev.err)
	case ev.tree == nil:
	case st.prev != nil:
		e.logger.Debug("layout applied before size memory loaded", "output", output)
	default:
		st.prev = ev.tree
		e.logger.Debug("restored size memory", "output", output, "nodes", ev.tree.Root.NodeCount())
		e.updateSnapshot(st)
	}
	if st.deferred {
		st.deferred = false
		e.request(ctx, output)
	}
}

func (e *Engine) storeMemory(ctx context.Context, st *outputState) {
	if e.opts.Memory == nil || st.prev == nil {
		return
	}
	data, err := json.Marshal(st.prev)
	if err != nil {
		e.logger.Error("could not encode size memory", "output", st.name, "err", err)
		return
	}
	key := e.opts.Keyer.TreeKey(st.name)

	w := &e.writer
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		w.pending = make(map[string][]byte)
	}
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = data
	if w.running {
		return
	}
	w.running = true
	e.persist.Add(1)
	go e.drainMemory(context.WithoutCancel(ctx))
}

func (e *Engine) drainMemory(ctx context.Context) {
	defer e.persist.Done()
	w := &e.writer
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.running = false
			w.mu.Unlock()
			return
		}
		key := w.order[0]
		w.order = w.order[1:]
		data := w.pending[key]
		delete(w.pending, key)
		w.mu.Unlock()

		wctx, cancel := context.WithTimeout(ctx, persistTimeout)
		err := cache.RetryWithBackoff(wctx, func() error {
			return e.opts.Memory.Set(wctx, key, data, e.opts.MemoryTTL)
		})
		cancel()
		if err != nil {
			e.logger.Warn("could not persist size memory", "key", key, "err", err)
		}
	}
}
