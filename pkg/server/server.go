// Package server runs the relay HTTP server and its background workers.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultShutdownTimeout = 30 * time.Second

// Server drives the HTTP server, background workers and resource cleanup.
type Server struct {
	httpSrv         *http.Server
	logger          zerolog.Logger
	workers         []func(ctx context.Context) error
	closers         []namedCloser
	shutdownTimeout time.Duration
	handleSignals   bool
}

type namedCloser struct {
	name  string
	close func() error
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithWorker runs fn alongside the HTTP server. The ctx passed to fn is cancelled on shutdown.
func WithWorker(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.workers = append(s.workers, fn) }
}

// WithCloser registers a cleanup run after the HTTP server has stopped, in registration order.
func WithCloser(name string, fn func() error) Option {
	return func(s *Server) { s.closers = append(s.closers, namedCloser{name: name, close: fn}) }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithSignals toggles shutdown on SIGINT/SIGTERM. Enabled by default.
func WithSignals(enabled bool) Option {
	return func(s *Server) { s.handleSignals = enabled }
}

func New(addr string, handler http.Handler, opts ...Option) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server: handler is nil")
	}
	s := &Server{
		httpSrv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          zerolog.Nop(),
		shutdownTimeout: DefaultShutdownTimeout,
		handleSignals:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) HTTPServer() *http.Server { return s.httpSrv }

// Run listens on the configured address and serves until ctx is done or a signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.httpSrv.Addr)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	eg := errgroup.Group{}

	for _, w := range s.workers {
		eg.Go(func() error {
			if err := w(srvCtx); err != nil {
				srvCancel()
				return err
			}
			return nil
		})
	}

	eg.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("starting relay server")
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server listen error")
			srvCancel()
			return err
		}
		return nil
	})

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		if s.handleSignals {
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)
		}
		select {
		case <-sigChan:
			s.logger.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
		}
		srvCancel()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown error")
			return err
		}
		s.logger.Info().Msg("server shutdown complete")
		return nil
	})

	err := eg.Wait()
	for _, c := range s.closers {
		if cerr := c.close(); cerr != nil {
			s.logger.Error().Err(cerr).Str("resource", c.name).Msg("close error")
			if err == nil {
				err = errors.Wrapf(cerr, "close %s", c.name)
			}
		}
	}
	return err
}
