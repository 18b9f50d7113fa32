package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilelayout/pkg/config"
	"github.com/matzehuels/tilelayout/pkg/dispatch"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/inspect"
	"github.com/matzehuels/tilelayout/pkg/observability"
	"github.com/matzehuels/tilelayout/pkg/transport"
)

// serveCommand creates the serve command, which runs the engine headless
// against the outputs listed in the config file.
func (c *CLI) serveCommand() *cobra.Command {
	var socket, inspectAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout engine headless with static outputs",
		Long: `Run the layout engine against the [[outputs]] of the config file.

A layout client connects to the unix socket and answers layout prompts. A
newer connection replaces the current one. With inspect.addr set, the
engine state is served over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if socket != "" {
				cfg.Client.Socket = socket
			}
			if inspectAddr != "" {
				cfg.Inspect.Addr = inspectAddr
			}
			return c.runServe(cmd.Context(), statusOf(cmd), cfg)
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "layout client socket path (overrides client.socket)")
	cmd.Flags().StringVar(&inspectAddr, "inspect", "", "inspect API address (overrides inspect.addr)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, st status, cfg config.Config) error {
	if len(cfg.Outputs) == 0 {
		return fmt.Errorf("no [[outputs]] configured")
	}

	sp := startSpinner(ctx, "Opening "+cfg.Cache.Backend+" size memory...")
	mem, err := c.openMemory(ctx, cfg)
	sp.Stop()
	if err != nil {
		return fmt.Errorf("open size memory: %w", err)
	}
	defer mem.Close()

	counters := observability.NewCounters()
	counters.Install()
	defer observability.Reset()

	outputs := newStaticOutputs(cfg.Outputs)
	engine := dispatch.New(outputs, outputs, &logSink{logger: c.Logger}, dispatch.Options{
		RequestTimeout:    cfg.Engine.RequestTimeout.Duration,
		MinProportion:     cfg.Engine.MinProportion,
		OutboxSize:        cfg.Engine.OutboxSize,
		Memory:            mem,
		Keyer:             memoryKeyer(cfg),
		MemoryTTL:         cfg.Cache.TTL.Duration,
		MemoryLoadTimeout: cfg.Engine.MemoryLoadTimeout.Duration,
		Logger:            c.Logger,
	})

	path := socketPath(cfg.Client.Socket)
	ln, err := listenUnix(path)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errc <- engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errc <- c.acceptClients(ctx, ln, engine, cfg.Client.MaxFrameSize)
	}()
	if cfg.Inspect.Addr != "" {
		srv := inspect.NewServer(engine, c.Logger, inspect.WithStats(counters.Stats))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Inspect.Addr); err != nil {
				c.Logger.Error("inspect API failed", "addr", cfg.Inspect.Addr, "err", err)
			}
		}()
	}

	st.ok("Serving %d outputs", len(cfg.Outputs))
	st.keyValue("Socket", path)
	if cfg.Inspect.Addr != "" {
		st.next("Inspect engine state", "curl http://"+cfg.Inspect.Addr+"/outputs")
	}
	for _, o := range cfg.Outputs {
		if err := engine.RequestLayout(o.Name); err != nil {
			c.Logger.Warn("could not request layout", "output", o.Name, "err", err)
		}
	}

	err = <-errc
	cancel()
	wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// acceptClients attaches every accepted connection to engine until ctx is
// done.
func (c *CLI) acceptClients(ctx context.Context, ln net.Listener, engine *dispatch.Engine, maxFrame int) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept layout client: %w", err)
		}
		id := engine.Attach(transport.NewStream(conn, maxFrame))
		c.Logger.Info("layout client connected", "session", id)
	}
}

// socketPath returns configured, or tilelayout.sock in $XDG_RUNTIME_DIR.
func socketPath(configured string) string {
	if configured != "" {
		return configured
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appName+".sock")
}

// listenUnix listens on path, replacing a stale socket file.
func listenUnix(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return ln, nil
}

// =============================================================================
// Static Collaborators
// =============================================================================

// staticOutputs serves the configured outputs as both the output and the
// window registry. Output i holds windows i*1000+1 ... i*1000+n.
type staticOutputs struct {
	outputs map[string]config.Output
	base    map[string]dispatch.WindowID
}

func newStaticOutputs(list []config.Output) *staticOutputs {
	s := &staticOutputs{
		outputs: make(map[string]config.Output, len(list)),
		base:    make(map[string]dispatch.WindowID, len(list)),
	}
	for i, o := range list {
		s.outputs[o.Name] = o
		s.base[o.Name] = dispatch.WindowID(i * 1000)
	}
	return s
}

func (s *staticOutputs) WorkingArea(output string) (geometry.Rect, bool) {
	o, ok := s.outputs[output]
	if !ok {
		return geometry.Rect{}, false
	}
	return geometry.NewRect(o.X, o.Y, o.Width, o.Height), true
}

func (s *staticOutputs) ActiveTags(output string) []uint32 {
	return s.outputs[output].Tags
}

func (s *staticOutputs) Windows(output string, _ []uint32) []dispatch.WindowID {
	o, ok := s.outputs[output]
	if !ok {
		return nil
	}
	ids := make([]dispatch.WindowID, o.Windows)
	for i := range ids {
		ids[i] = s.base[output] + dispatch.WindowID(i+1)
	}
	return ids
}

// logSink logs applied assignments instead of moving real windows.
type logSink struct {
	logger *log.Logger
}

func (s *logSink) Apply(output string, a dispatch.Assignment) {
	s.logger.Info("applied layout", "output", output, "windows", len(a))
	ids := make([]dispatch.WindowID, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.logger.Debug("window geometry", "output", output, "window", id, "rect", a[id].String())
	}
}
