// Package server is gradecal's HTTP surface: a per-user manual sync
// trigger, a websocket stream of pass reports, and per-user ICS feeds.
//
// Routes:
//
//	POST /users/{uid}/sync          run a manual pass, respond with a sync.Result
//	GET  /users/{uid}/calendar.ics  the user's cache as iCalendar
//	GET  /events                    websocket stream of Event (optional ?user=)
//	GET  /healthz                   liveness and subscriber count
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/sync"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	writeEventTimeout = 5 * time.Second
)

// PassRunner runs one user's pass. Satisfied by *sync.Runner.
type PassRunner interface {
	Run(ctx context.Context, userID string, trigger sync.Trigger) (*sync.PassReport, error)
}

// Store is the read side of the store the server needs. Satisfied by
// *store.Store.
type Store interface {
	HasUser(ctx context.Context, userID string) (bool, error)
	ReadCache(ctx context.Context, userID string) (cache.Cache, error)
	Courses(ctx context.Context, userID string) (cache.Courses, error)
}

// Config holds the options for New.
type Config struct {
	Runner        PassRunner
	Store         Store
	Hub           *Hub   // nil creates one
	SourceBaseURL string // course links in ICS feeds

	// OriginPatterns are the cross-origin hosts allowed to open the event
	// stream. Empty allows same-origin only.
	OriginPatterns []string

	Logger *slog.Logger
}

// Server serves the routes above. Create with New.
type Server struct {
	runner         PassRunner
	store          Store
	hub            *Hub
	baseURL        string
	originPatterns []string
	logger         *slog.Logger
	mux            *http.ServeMux
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(logger)
	}

	s := &Server{
		runner:         cfg.Runner,
		store:          cfg.Store,
		hub:            hub,
		baseURL:        cfg.SourceBaseURL,
		originPatterns: cfg.OriginPatterns,
		logger:         logger,
		mux:            http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /users/{uid}/sync", s.handleSync)
	s.mux.HandleFunc("GET /users/{uid}/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the hub events are published to.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))

	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serving: %w", err)
	}

	s.logger.Info("http server stopped")

	return nil
}
