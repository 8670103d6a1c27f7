// Package app wires the numeral service runtime and HTTP lifecycle.
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

	"github.com/louisbranch/numeral.space/internal/platform/config"
	"github.com/louisbranch/numeral.space/internal/platform/telemetry/metrics"
	"github.com/louisbranch/numeral.space/internal/services/numeral/api/httpapi"
	"github.com/louisbranch/numeral.space/internal/services/numeral/service"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage/memory"
	numeralsqlite "github.com/louisbranch/numeral.space/internal/services/numeral/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

type serverEnv struct {
	Backend string `env:"NUMERAL_SPACE_STORAGE_BACKEND"`
	DBPath  string `env:"NUMERAL_SPACE_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = "memory"
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "numeral.db")
	}
	return cfg
}

// Server hosts the conversion HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	service    *service.Service
	store      storage.ConversionStore
	closeStore func() error
}

// New creates a configured server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured server for the provided address. The
// storage backend is selected by NUMERAL_SPACE_STORAGE_BACKEND: "memory"
// (default) or "sqlite".
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, closeStore, err := openConversionStore(env)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	svc := service.New(store)
	mux := http.NewServeMux()
	httpapi.New(svc, store).Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		service:    svc,
		store:      store,
		closeStore: closeStore,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("numeral server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources, draining pending cache writes first so
// computed conversions are not lost on shutdown.
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
	if s.service != nil {
		s.service.Drain()
	}
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			log.Printf("close conversion store: %v", err)
		}
	}
}

func openConversionStore(env serverEnv) (storage.ConversionStore, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(env.Backend)) {
	case "memory":
		return memory.NewStore(), nil, nil
	case "sqlite":
		if dir := filepath.Dir(env.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := numeralsqlite.Open(env.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite conversion store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", env.Backend)
	}
}
