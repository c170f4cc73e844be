package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/helo/pkg/transport"
)

// Server wraps an http.Server around a transport.Stack and manages the full
// lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	stack      *transport.Stack
	listener   *Listener
	mux        *http.ServeMux
	config     ServerConfig
	logger     *slog.Logger
}

// ServerConfig holds configuration for the server.
type ServerConfig struct {
	Addr              string
	MaxBodySize       int64
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults. The
// write timeout is disabled so streamed responses are not cut off.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":8080",
		MaxBodySize:       10 << 20, // 10 MB
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		Logger:            slog.Default(),
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithMaxBodySize sets the maximum request body size.
func WithMaxBodySize(n int64) ServerOption {
	return func(s *Server) { s.config.MaxBodySize = n }
}

// WithTimeouts sets the read and write timeouts of the http.Server.
// Zero disables a timeout.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(s *Server) {
		s.config.ReadTimeout = read
		s.config.WriteTimeout = write
	}
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.config.Logger = l; s.logger = l }
}

// WithHandler serves h on pattern next to the stack, for example a
// metrics endpoint. Every other path goes to the stack.
func WithHandler(pattern string, h http.Handler) ServerOption {
	return func(s *Server) { s.mux.Handle(pattern, h) }
}

// NewServer creates a server that feeds every request to stack. The stack
// must be finalized.
func NewServer(stack *transport.Stack, opts ...ServerOption) (*Server, error) {
	s := &Server{
		stack:  stack,
		mux:    http.NewServeMux(),
		config: DefaultServerConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.listener = NewListener(s.config.MaxBodySize)
	if err := stack.Observe(s.listener); err != nil {
		return nil, err
	}
	s.mux.Handle("/", s.listener)

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	return s, nil
}

// Handler returns the root handler. Use it to test with httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received. It then shuts down gracefully.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for in-flight requests until
// ctx is done. Requests still in flight then are cancelled: those that have
// not written anything receive a 503, the rest are aborted.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		s.logger.Info("server stopped")
		return nil
	}

	n := s.stack.CancelAll()
	s.logger.Warn("grace period expired, cancelled in-flight requests",
		slog.Int("cancelled", n),
		slog.String("error", err.Error()),
	)

	drainCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if derr := s.httpServer.Shutdown(drainCtx); derr != nil {
		s.httpServer.Close()
	}
	return err
}
