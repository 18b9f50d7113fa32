// Package inspect serves a read-mostly HTTP view of a layout engine for
// debugging: per-output state as JSON, the current tree as Graphviz DOT,
// and a trigger for a fresh layout.
package inspect

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tilelayout/pkg/dispatch"
	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/observability"
	"github.com/matzehuels/tilelayout/pkg/render"
)

const shutdownTimeout = 5 * time.Second

// Engine is the part of [dispatch.Engine] the server needs.
type Engine interface {
	Snapshot() dispatch.Status
	Output(name string) (dispatch.OutputSnapshot, bool)
	RequestLayout(output string) error
}

// Server is the inspect HTTP API.
type Server struct {
	engine Engine
	logger *log.Logger
	router chi.Router
	stats  func() observability.Stats
}

// Option configures a [Server].
type Option func(*Server)

// WithStats serves the event counts returned by stats at GET /stats.
func WithStats(stats func() observability.Stats) Option {
	return func(s *Server) { s.stats = stats }
}

// NewServer creates a server for engine. A nil logger discards logs.
func NewServer(engine Engine, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Route("/outputs", func(r chi.Router) {
		r.Get("/", s.handleOutputs)
		r.Get("/{name}", s.handleOutput)
		r.Get("/{name}/tree.dot", s.handleTreeDOT)
		r.Post("/{name}/layout", s.handleLayout)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("inspect API listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("inspect request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "elapsed", time.Since(start))
	})
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Outputs   int    `json:"outputs"`
}

type errorResponse struct {
	Error string        `json:"error"`
	Code  tlerrors.Code `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Snapshot()
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Connected: st.Connected, Outputs: len(st.Outputs)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusNotFound, tlerrors.New(tlerrors.ErrCodeNotFound, "event counting is disabled"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.stats())
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	o, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleTreeDOT(w http.ResponseWriter, r *http.Request) {
	o, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if o.Tree == nil {
		s.writeError(w, http.StatusNotFound,
			tlerrors.New(tlerrors.ErrCodeNotFound, "output %s has no layout yet", o.Name))
		return
	}

	windows := make([]render.Window, 0, len(o.Leaves))
	for id, leaf := range o.Leaves {
		windows = append(windows, render.Window{ID: uint64(id), Leaf: leaf})
	}
	slices.SortFunc(windows, func(a, b render.Window) int { return cmp.Compare(a.ID, b.ID) })

	// A tree restored from size memory has no working area until it is applied.
	var resolved *geometry.Resolved
	if !o.AppliedAt.IsZero() {
		resolved = geometry.Resolve(&o.Tree.Root, o.Area)
	}
	dot := render.ToDOT(&o.Tree.Root, resolved, windows, render.Options{Title: o.Name})
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, dot)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.engine.RequestLayout(name); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"output": name, "status": "requested"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (dispatch.OutputSnapshot, bool) {
	name := chi.URLParam(r, "name")
	o, ok := s.engine.Output(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, tlerrors.New(tlerrors.ErrCodeUnknownOutput, "unknown output %s", name))
	}
	return o, ok
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("could not write inspect response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: tlerrors.UserMessage(err), Code: tlerrors.GetCode(err)})
}
