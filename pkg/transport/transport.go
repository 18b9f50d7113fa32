// Package transport carries layout protocol messages between the
// compositor and the layout client.
//
// [Channel] is the compositor's end: it sends prompts and receives answers.
// [ClientChannel] is the layout client's end. [Pipe] connects the two in
// memory; [NewStream] and [NewClientStream] frame messages over any byte
// stream, typically a unix socket.
//
// Messages always cross a channel in wire encoding, so both
// implementations reject the same malformed input.
package transport

import (
	"context"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

// ErrClosed is returned by operations on a closed channel, and by Recv
// after the peer went away.
var ErrClosed = tlerrors.New(tlerrors.ErrCodeChannelClosed, "layout channel closed")

// Channel is the compositor side of a layout connection.
//
// Send and Recv may be called concurrently with each other, but each from
// a single goroutine at a time.
type Channel interface {
	Send(ctx context.Context, p *wire.Prompt) error
	Recv(ctx context.Context) (*wire.Answer, error)
	Close() error
}

// ClientChannel is the layout client side of a layout connection.
type ClientChannel interface {
	Send(ctx context.Context, a *wire.Answer) error
	Recv(ctx context.Context) (*wire.Prompt, error)
	Close() error
}
