package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/tilelayout/pkg/config"
	"github.com/matzehuels/tilelayout/pkg/dispatch"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/transport"
	"github.com/matzehuels/tilelayout/pkg/tree"
	"github.com/matzehuels/tilelayout/pkg/wire"
)

func TestStaticOutputs(t *testing.T) {
	s := newStaticOutputs([]config.Output{
		{Name: "DP-1", X: 0, Y: 0, Width: 1920, Height: 1080, Windows: 2, Tags: []uint32{1}},
		{Name: "HDMI-1", X: 1920, Width: 1280, Height: 1024, Windows: 1},
	})

	if r, ok := s.WorkingArea("HDMI-1"); !ok || r != geometry.NewRect(1920, 0, 1280, 1024) {
		t.Errorf("WorkingArea(HDMI-1) = %v, %v", r, ok)
	}
	if _, ok := s.WorkingArea("DP-9"); ok {
		t.Error("WorkingArea of unknown output succeeded")
	}
	if got := s.Windows("DP-1", nil); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Windows(DP-1) = %v", got)
	}
	if got := s.Windows("HDMI-1", nil); len(got) != 1 || got[0] != dispatch.WindowID(1001) {
		t.Errorf("Windows(HDMI-1) = %v", got)
	}
	if got := s.ActiveTags("DP-1"); len(got) != 1 || got[0] != 1 {
		t.Errorf("ActiveTags(DP-1) = %v", got)
	}
}

func TestSocketPath(t *testing.T) {
	if got := socketPath("/run/custom.sock"); got != "/run/custom.sock" {
		t.Errorf("socketPath(configured) = %q", got)
	}
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := socketPath(""); got != "/run/user/1000/tilelayout.sock" {
		t.Errorf("socketPath() = %q", got)
	}
}

func TestServeRequiresOutputs(t *testing.T) {
	c := New(&syncBuffer{}, LogInfo)
	if err := c.runServe(context.Background(), status{w: io.Discard}, config.Default()); err == nil {
		t.Error("serve without outputs succeeded")
	}
}

func TestServeLayoutRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.BackendNone
	cfg.Client.Socket = filepath.Join(t.TempDir(), "tl.sock")
	cfg.Outputs = []config.Output{{Name: "DP-1", Width: 300, Height: 100, Windows: 2}}

	var logs syncBuffer
	c := New(&logs, LogInfo)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.runServe(ctx, status{w: io.Discard}, cfg) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("runServe() = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("runServe() did not return")
		}
	}()

	conn := dialRetry(t, cfg.Client.Socket)
	client := transport.NewClientStream(conn, cfg.Client.MaxFrameSize)
	defer client.Close()

	rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rcancel()
	p, err := client.Recv(rctx)
	if err != nil {
		t.Fatalf("recv prompt: %v", err)
	}
	if p.Output != "DP-1" || p.WindowCount != 2 {
		t.Fatalf("prompt = %+v", p)
	}

	root := tree.NewSplit(tree.Row, tree.NewLeaf(), tree.NewLeaf())
	if err := client.Send(rctx, &wire.Answer{Tree: &wire.TreeResponse{RequestID: p.RequestID, Output: p.Output, Root: root}}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(logs.String(), "applied layout") {
		if time.Now().After(deadline) {
			t.Fatalf("layout not applied, logs:\n%s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dialRetry(t *testing.T, path string) net.Conn {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatal(fmt.Errorf("dial %s: %w", path, err))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
