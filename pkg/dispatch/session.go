package dispatch

import (
	"context"
	"errors"
	"slices"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/observability"
	"github.com/matzehuels/tilelayout/pkg/transport"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

// session is one attached layout client channel.
type session struct {
	id     string
	ch     transport.Channel
	outbox chan *wire.Prompt
	cancel context.CancelFunc
}

func (s *session) close() {
	s.cancel()
	_ = s.ch.Close()
}

// enqueue hands a prompt to the writer without blocking.
func (s *session) enqueue(p *wire.Prompt) bool {
	select {
	case s.outbox <- p:
		return true
	default:
		return false
	}
}

func (e *Engine) onAttach(ctx context.Context, id string, ch transport.Channel) {
	if old := e.session; old != nil {
		e.logger.Info("replacing layout client", "old", old.id, "new", id)
		old.close()
		observability.Transport().OnDisconnect(ctx, old.id, nil)
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		id:     id,
		ch:     ch,
		outbox: make(chan *wire.Prompt, e.opts.OutboxSize),
		cancel: cancel,
	}
	e.session = s
	go e.writeLoop(sctx, s)
	go e.readLoop(sctx, s)

	e.logger.Info("layout client attached", "session", id)
	e.setConnected(id, true)
	observability.Transport().OnConnect(ctx, id)

	// Requests sent on a previous channel will never be answered here.
	for name, st := range e.states {
		if st.pending != nil {
			st.abandon()
			e.dirty[name] = true
		}
	}
	e.flushDirty(ctx)
}

func (e *Engine) onDetached(ctx context.Context, id string, err error) {
	s := e.session
	if s == nil || s.id != id {
		return
	}
	s.close()
	e.session = nil

	for name, st := range e.states {
		if st.pending != nil {
			st.abandon()
			e.dirty[name] = true
		}
	}
	if err == nil || errors.Is(err, transport.ErrClosed) {
		e.logger.Info("layout client disconnected", "session", id)
	} else {
		e.logger.Warn("layout client connection failed", "session", id, "err", err)
	}
	e.setConnected("", false)
	observability.Transport().OnDisconnect(ctx, id, err)
}

// flushDirty re-requests outputs that wanted a layout while disconnected.
func (e *Engine) flushDirty(ctx context.Context) {
	names := make([]string, 0, len(e.dirty))
	for name := range e.dirty {
		names = append(names, name)
	}
	slices.Sort(names)
	clear(e.dirty)
	for _, name := range names {
		e.request(ctx, name)
	}
}

func (e *Engine) writeLoop(ctx context.Context, s *session) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-s.outbox:
			if err := s.ch.Send(ctx, p); err != nil {
				if ctx.Err() == nil {
					e.post(event{kind: evDetached, session: s.id, err: err})
				}
				return
			}
		}
	}
}

func (e *Engine) readLoop(ctx context.Context, s *session) {
	for {
		a, err := s.ch.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// A malformed message on an intact channel is the client's
			// problem; keep listening.
			if tlerrors.Is(err, tlerrors.ErrCodeInvalidMessage) && !errors.Is(err, transport.ErrClosed) {
				e.logger.Warn("discarding malformed layout answer", "session", s.id, "err", err)
				continue
			}
			e.post(event{kind: evDetached, session: s.id, err: err})
			return
		}
		e.post(event{kind: evAnswer, session: s.id, answer: a})
	}
}
