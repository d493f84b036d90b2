package relay

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ServerOption configures optional dependencies for a Server.
type ServerOption func(*Server) error

func WithHTTPClient(c *http.Client) ServerOption {
	return func(s *Server) error {
		if c == nil {
			return errors.New("http client is nil")
		}
		s.client = c
		return nil
	}
}

func WithReadiness(p ReadinessReporter) ServerOption {
	return func(s *Server) error {
		if p == nil {
			return errors.New("readiness reporter is nil")
		}
		s.readiness = p
		return nil
	}
}

func WithAddr(addr string) ServerOption {
	return func(s *Server) error {
		if addr == "" {
			return errors.New("listen address is empty")
		}
		s.addr = addr
		return nil
	}
}

// Server serves the chat and speech relay plus liveness endpoints.
type Server struct {
	cfg       Config
	addr      string
	client    *http.Client
	readiness ReadinessReporter
	httpSrv   *http.Server
}

func NewServer(cfg Config, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		addr:   cfg.Addr(),
		client: cleanhttp.DefaultPooledClient(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	chat := NewChatHandler(s.cfg, s.client)
	tts := NewTTSHandler(s.cfg, s.client)

	mux.HandleFunc("GET /{$}", healthHandler)
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /readyz", NewReadyHandler(s.readiness))
	mux.Handle("POST /chat", chat)
	mux.Handle("POST /api/chat", chat)
	mux.Handle("POST /tts", tts)
	mux.Handle("POST /api/tts", tts)

	return allowAllOrigins(mux)
}

func (s *Server) HTTPServer() *http.Server { return s.httpSrv }

// Run serves until ctx ends or the process receives SIGINT/SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	if s == nil || s.httpSrv == nil {
		return errors.New("server is not initialized")
	}
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-egCtx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		log.Info().Str("addr", s.httpSrv.Addr).Msg("starting relay server")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	return eg.Wait()
}
