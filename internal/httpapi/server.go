// Package httpapi serves the tables of a loaded binary over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/constants"
)

// Backend is the store the server queries.
type Backend interface {
	Query(ctx context.Context, sql string) (*catalog.Result, error)
	Tables(ctx context.Context) ([]catalog.TableCount, error)
	Info() catalog.Info
}

// Config contains dependencies for creating a server.
type Config struct {
	Host string
	Port int // 0 picks a free port

	// Token enables bearer-token authentication when non-empty.
	Token string

	// RateLimit limits requests per client, e.g. "100/minute".
	RateLimit string

	ReadTimeout  time.Duration
	QueryTimeout time.Duration

	Backend Backend
	Version string
	Logger  zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg        Config
	httpServer *http.Server
	handler    http.Handler
	limiter    *RateLimiter
	instanceID string
	started    time.Time
	logger     zerolog.Logger

	mu       sync.Mutex
	listener net.Listener

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New creates a server. It does not listen until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("httpapi: backend is required")
	}
	if cfg.Host == "" {
		cfg.Host = constants.DefaultServerHost
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = constants.DefaultQueryTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = constants.DefaultReadTimeout
	}

	limit, err := ParseRateLimit(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.With().Str("component", "httpapi").Logger()
	s := &Server{
		cfg:        cfg,
		instanceID: uuid.NewString(),
		started:    time.Now(),
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHelp)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)

	var auth, limiting middleware
	if cfg.Token != "" {
		auth = withBearerToken(cfg.Token, logger)
	}
	if limit != nil {
		s.limiter = NewRateLimiter()
		limiting = withRateLimit(s.limiter, limit, logger)
	}
	protected := wrap(mux, limiting, auth, withTimeout(cfg.QueryTimeout))

	// Health bypasses authentication and rate limiting.
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK\n"))
			return
		}
		protected.ServeHTTP(w, r)
	})
	s.handler = withAudit(logger)(root)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           h2c.NewHandler(s.handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler, without the h2c wrapper.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens and serves in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("auth", s.cfg.Token != "").
		Str("binary", s.cfg.Backend.Info().Path).
		Msg("Starting HTTP API server")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP API server error")
		}
	}()
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP API server")
	if s.limiter != nil {
		s.limiter.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// ShutdownRequested is closed when a client calls /shutdown.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// URL returns the server URL.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// InstanceID identifies this server process.
func (s *Server) InstanceID() string {
	return s.instanceID
}
