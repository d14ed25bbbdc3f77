// Package app wires the countdown runtime and HTTP lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hubdash/hubdash/internal/platform/config"
	"github.com/hubdash/hubdash/internal/platform/httpx"
	"github.com/hubdash/hubdash/internal/services/countdown"
	"github.com/hubdash/hubdash/internal/services/countdown/api/httpapi"
	"github.com/hubdash/hubdash/internal/services/countdown/auth"
	"github.com/hubdash/hubdash/internal/services/countdown/provider"
	"github.com/hubdash/hubdash/internal/services/countdown/refresh"
	"github.com/hubdash/hubdash/internal/services/countdown/resolver"
	countdownsqlite "github.com/hubdash/hubdash/internal/services/countdown/storage/sqlite"
)

const (
	defaultTimezone       = "Europe/Oslo"
	defaultFetchTimeout   = 15 * time.Second
	defaultServerShutdown = 10 * time.Second
)

type serverEnv struct {
	DBPath          string        `env:"HUBDASH_COUNTDOWN_DB_PATH"`
	Timezone        string        `env:"HUBDASH_COUNTDOWN_TIMEZONE"`
	JWTSecret       string        `env:"HUBDASH_COUNTDOWN_JWT_SECRET"`
	RefreshSchedule string        `env:"HUBDASH_COUNTDOWN_REFRESH_SCHEDULE"`
	FetchTimeout    time.Duration `env:"HUBDASH_COUNTDOWN_FETCH_TIMEOUT"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "countdown.db")
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = defaultTimezone
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return cfg
}

// Server hosts the countdown HTTP API, storage and refresh lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *countdownsqlite.Store
	refreshJob *refresh.Job
}

// New creates a configured countdown server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured countdown server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()

	verifier, err := auth.NewVerifier([]byte(env.JWTSecret))
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	zone, err := time.LoadLocation(env.Timezone)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("load timezone %q: %w", env.Timezone, err)
	}

	store, err := openCountdownStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	registry := provider.NewRegistry(&http.Client{Timeout: env.FetchTimeout}, zone)
	providerResolver := resolver.New(store, registry)
	service := countdown.NewService(store, providerResolver, zone)

	mux := http.NewServeMux()
	httpapi.NewHandler(service, store, providerResolver).Register(mux, verifier)

	var handler http.Handler = httpx.Chain(mux, httpx.RequestID(), httpx.RecoverPanic())
	handler = otelhttp.NewHandler(handler, "countdown")

	server := &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: handler},
		store:      store,
	}

	if schedule := strings.TrimSpace(env.RefreshSchedule); schedule != "" {
		job, err := refresh.NewJob(schedule, registry, providerResolver)
		if err != nil {
			server.Close()
			return nil, err
		}
		server.refreshJob = job
	}

	return server, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a countdown server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server and refresh job until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("countdown server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	jobCtx, stopJob := context.WithCancel(ctx)
	defer stopJob()
	if s.refreshJob != nil {
		go func() {
			if err := s.refreshJob.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("refresh job stopped: %v", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultServerShutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases countdown server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close countdown store: %v", err)
		}
	}
}

func openCountdownStore(path string) (*countdownsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := countdownsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open countdown sqlite store: %w", err)
	}
	return store, nil
}
