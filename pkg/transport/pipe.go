package transport

import (
	"context"
	"sync"

	"github.com/matzehuels/tilelayout/pkg/wire"
)

// pipe is the shared state of both pipe ends.
type pipe struct {
	prompts chan []byte
	answers chan []byte
	done    chan struct{}
	once    sync.Once
}

func (p *pipe) close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// Pipe returns connected in-memory endpoints with room for buffer
// messages in each direction. Closing either end closes both.
func Pipe(buffer int) (Channel, ClientChannel) {
	p := &pipe{
		prompts: make(chan []byte, buffer),
		answers: make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
	return &pipeEnd{p}, &pipeClient{p}
}

type pipeEnd struct{ p *pipe }

func (e *pipeEnd) Send(ctx context.Context, msg *wire.Prompt) error {
	return send(ctx, e.p, e.p.prompts, wire.MarshalPrompt(msg))
}

func (e *pipeEnd) Recv(ctx context.Context) (*wire.Answer, error) {
	b, err := recv(ctx, e.p, e.p.answers)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalAnswer(b)
}

func (e *pipeEnd) Close() error { return e.p.close() }

type pipeClient struct{ p *pipe }

func (c *pipeClient) Send(ctx context.Context, msg *wire.Answer) error {
	return send(ctx, c.p, c.p.answers, wire.MarshalAnswer(msg))
}

func (c *pipeClient) Recv(ctx context.Context) (*wire.Prompt, error) {
	b, err := recv(ctx, c.p, c.p.prompts)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalPrompt(b)
}

func (c *pipeClient) Close() error { return c.p.close() }

func send(ctx context.Context, p *pipe, ch chan<- []byte, b []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case ch <- b:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv(ctx context.Context, p *pipe, ch <-chan []byte) ([]byte, error) {
	select {
	case b := <-ch:
		return b, nil
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
