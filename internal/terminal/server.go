package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/meridian-pos/meridian-pos/internal/protocol"
)

// Server accepts terminal connections and runs one session goroutine
// per socket. Lifecycle is STOPPED, RUNNING, STOPPED and is re-entrant:
// a cleanly stopped server can be started again.
type Server struct {
	addr     string
	deps     Deps
	logger   *slog.Logger
	registry *Registry

	mu       sync.Mutex
	running  bool
	listener net.Listener

	wg sync.WaitGroup
}

// NewServer builds a server listening on addr once started.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		deps:     deps,
		logger:   logger.With("component", "terminal"),
		registry: NewRegistry(),
	}
}

// Registry exposes the session registry, mainly for inspection.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the bound listen address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener and launches the accept loop. A bind
// failure is fatal to the caller; an already running server is an
// error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("terminal: server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("terminal: listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.running = true

	s.wg.Add(1)
	go s.acceptLoop(ctx, listener)

	s.logger.Info("terminal server listening", "addr", listener.Addr().String())
	return nil
}

// acceptLoop blocks on Accept until the listener is closed by
// Shutdown. Accept errors on a live listener are logged and the loop
// continues; they never reach other sessions.
func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.deps.Metrics.ConnectionAccepted()
		sess := NewSession(conn, s.deps, s.logger)
		if s.registry.Add(sess) {
			sess.Send(protocol.Build(protocol.PrefixCmd, "ALREADY_CONNECTED"))
		}
		s.logger.Info("terminal connected", "remote", conn.RemoteAddr().String(), "sessions", s.registry.Len())

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.deps.Metrics.ConnectionClosed()
			sess.Run(ctx)
		}()
	}
}

// Shutdown broadcasts the shutdown notice to every registered session
// exactly once, closes all sockets, stops the accept loop by closing
// the listener, and waits for the session goroutines to drain. A
// stopped server is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("listener close failed", "error", err)
	}

	notice := protocol.Build(protocol.PrefixCmd, "SHUTDOWN")
	for _, sess := range s.registry.Sessions() {
		if err := sess.Send(notice); err != nil {
			s.logger.Debug("shutdown notice failed", "session_id", sess.ID(), "error", err)
		}
		sess.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("terminal server stopped")
	return nil
}
