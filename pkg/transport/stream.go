package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

// DefaultMaxFrameSize bounds a single message.
const DefaultMaxFrameSize = 1 << 20

// framer reads and writes uvarint length-prefixed frames. A reader
// goroutine decouples blocking reads from Recv so Recv can honour its
// context.
type framer struct {
	rwc      io.ReadWriteCloser
	maxFrame int

	writeMu sync.Mutex
	w       *bufio.Writer

	frames chan []byte
	done   chan struct{}
	once   sync.Once

	errMu   sync.Mutex
	readErr error
}

func newFramer(rwc io.ReadWriteCloser, maxFrame int) *framer {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	f := &framer{
		rwc:      rwc,
		maxFrame: maxFrame,
		w:        bufio.NewWriter(rwc),
		frames:   make(chan []byte),
		done:     make(chan struct{}),
	}
	go f.readLoop(bufio.NewReader(rwc))
	return f
}

func (f *framer) readLoop(r *bufio.Reader) {
	for {
		n, err := binary.ReadUvarint(r)
		if err != nil {
			f.fail(err)
			return
		}
		if n > uint64(f.maxFrame) {
			f.fail(tlerrors.New(tlerrors.ErrCodeInvalidMessage, "frame of %d bytes exceeds limit of %d", n, f.maxFrame))
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			f.fail(err)
			return
		}
		select {
		case f.frames <- buf:
		case <-f.done:
			return
		}
	}
}

func (f *framer) fail(err error) {
	f.errMu.Lock()
	if f.readErr == nil {
		f.readErr = err
	}
	f.errMu.Unlock()
	f.close()
}

func (f *framer) err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	if f.readErr == nil || errors.Is(f.readErr, io.EOF) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %w", ErrClosed, f.readErr)
}

func (f *framer) write(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-f.done:
		return f.err()
	default:
	}
	if len(b) > f.maxFrame {
		return tlerrors.New(tlerrors.ErrCodeInvalidMessage, "message of %d bytes exceeds limit of %d", len(b), f.maxFrame)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(b)))
	if _, err := f.w.Write(hdr[:n]); err != nil {
		f.fail(err)
		return f.err()
	}
	if _, err := f.w.Write(b); err != nil {
		f.fail(err)
		return f.err()
	}
	if err := f.w.Flush(); err != nil {
		f.fail(err)
		return f.err()
	}
	return nil
}

func (f *framer) read(ctx context.Context) ([]byte, error) {
	select {
	case b := <-f.frames:
		return b, nil
	case <-f.done:
		return nil, f.err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *framer) close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.rwc.Close()
	})
	return err
}

// Stream is a [Channel] over a byte stream.
type Stream struct{ f *framer }

// NewStream wraps rwc. maxFrame bounds a single message; zero selects
// [DefaultMaxFrameSize]. The stream owns rwc and closes it.
func NewStream(rwc io.ReadWriteCloser, maxFrame int) *Stream {
	return &Stream{f: newFramer(rwc, maxFrame)}
}

// Send writes a prompt.
func (s *Stream) Send(ctx context.Context, p *wire.Prompt) error {
	return s.f.write(ctx, wire.MarshalPrompt(p))
}

// Recv reads the next answer.
func (s *Stream) Recv(ctx context.Context) (*wire.Answer, error) {
	b, err := s.f.read(ctx)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalAnswer(b)
}

// Close closes the underlying stream.
func (s *Stream) Close() error { return s.f.close() }

// ClientStream is a [ClientChannel] over a byte stream.
type ClientStream struct{ f *framer }

// NewClientStream wraps rwc for the layout client side.
func NewClientStream(rwc io.ReadWriteCloser, maxFrame int) *ClientStream {
	return &ClientStream{f: newFramer(rwc, maxFrame)}
}

// Send writes an answer.
func (s *ClientStream) Send(ctx context.Context, a *wire.Answer) error {
	return s.f.write(ctx, wire.MarshalAnswer(a))
}

// Recv reads the next prompt.
func (s *ClientStream) Recv(ctx context.Context) (*wire.Prompt, error) {
	b, err := s.f.read(ctx)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalPrompt(b)
}

// Close closes the underlying stream.
func (s *ClientStream) Close() error { return s.f.close() }

var (
	_ Channel       = (*Stream)(nil)
	_ ClientChannel = (*ClientStream)(nil)
)
