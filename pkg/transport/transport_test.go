package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/tree"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

type endpoints struct {
	name string
	open func(t *testing.T) (Channel, ClientChannel)
}

func allEndpoints() []endpoints {
	return []endpoints{
		{"pipe", func(t *testing.T) (Channel, ClientChannel) { return Pipe(4) }},
		{"stream", func(t *testing.T) (Channel, ClientChannel) {
			a, b := net.Pipe()
			return NewStream(a, 0), NewClientStream(b, 0)
		}},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, ep := range allEndpoints() {
		t.Run(ep.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server, client := ep.open(t)
			defer server.Close()
			defer client.Close()

			prompt := &wire.Prompt{RequestID: 3, Output: "DP-1", WindowCount: 2, Tags: []uint32{1}}
			go server.Send(ctx, prompt)

			got, err := client.Recv(ctx)
			if err != nil {
				t.Fatalf("client Recv() error: %v", err)
			}
			if got.RequestID != 3 || got.Output != "DP-1" || got.WindowCount != 2 {
				t.Errorf("prompt = %+v", got)
			}

			root := tree.NewSplit(tree.Row, tree.NewLeaf(), tree.NewLeaf())
			answer := &wire.Answer{Tree: &wire.TreeResponse{RequestID: 3, Root: root, Output: "DP-1"}}
			go client.Send(ctx, answer)

			a, err := server.Recv(ctx)
			if err != nil {
				t.Fatalf("server Recv() error: %v", err)
			}
			if a.Tree == nil || a.Tree.RequestID != 3 || len(a.Tree.Root.Children) != 2 {
				t.Errorf("answer = %+v", a)
			}
		})
	}
}

func TestCloseUnblocksRecv(t *testing.T) {
	for _, ep := range allEndpoints() {
		t.Run(ep.name, func(t *testing.T) {
			server, client := ep.open(t)

			errc := make(chan error, 1)
			go func() {
				_, err := server.Recv(context.Background())
				errc <- err
			}()
			client.Close()

			select {
			case err := <-errc:
				if !errors.Is(err, ErrClosed) {
					t.Errorf("Recv() error = %v, want ErrClosed", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Recv() did not return after peer closed")
			}
			server.Close()
		})
	}
}

func TestSendAfterClose(t *testing.T) {
	server, _ := Pipe(1)
	server.Close()
	err := server.Send(context.Background(), &wire.Prompt{Output: "DP-1"})
	if !tlerrors.Is(err, tlerrors.ErrCodeChannelClosed) {
		t.Errorf("Send() error = %v, want CHANNEL_CLOSED", err)
	}
}

func TestRecvHonoursContext(t *testing.T) {
	server, _ := Pipe(1)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := server.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Recv() error = %v, want deadline exceeded", err)
	}
}

func TestStreamRejectsOversizedFrame(t *testing.T) {
	a, b := net.Pipe()
	s := NewStream(a, 16)
	defer s.Close()
	defer b.Close()

	go func() {
		var hdr [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(hdr[:], 1000)
		b.Write(hdr[:n])
	}()

	_, err := s.Recv(context.Background())
	if !tlerrors.Is(err, tlerrors.ErrCodeInvalidMessage) {
		t.Errorf("Recv() error = %v, want INVALID_MESSAGE", err)
	}
}

func TestStreamRejectsGarbage(t *testing.T) {
	a, b := net.Pipe()
	s := NewStream(a, 0)
	defer s.Close()
	defer b.Close()

	go func() {
		b.Write([]byte{3, 0xff, 0xff, 0xff})
	}()

	_, err := s.Recv(context.Background())
	if !tlerrors.Is(err, tlerrors.ErrCodeInvalidMessage) {
		t.Errorf("Recv() error = %v, want INVALID_MESSAGE", err)
	}
}
