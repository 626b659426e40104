// Package gateway serves the bot's HTTP surface: health, metrics and the
// Telegram webhook share one listener.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const shutdownTimeout = 5 * time.Second

// StatusFunc reports running state per channel name for /healthz.
type StatusFunc func() map[string]bool

// Server is the bot's HTTP listener.
type Server struct {
	addr    string
	version string
	status  StatusFunc

	mu     sync.Mutex
	routes map[string]http.Handler
	mux    *http.ServeMux

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server for addr. status may be nil.
func NewServer(addr, version string, status StatusFunc) *Server {
	return &Server{
		addr:    addr,
		version: version,
		status:  status,
		routes:  make(map[string]http.Handler),
	}
}

// Handle registers an extra route. Must be called before BuildMux.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[pattern] = h
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}

	s.mux = mux
	return mux
}

// Listen binds the address without serving, so callers learn about a busy
// port before Telegram is told to deliver there.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.httpServer = &http.Server{
		Handler:           s.BuildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http server starting", "addr", s.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version,omitempty"`
	Channels map[string]bool `json:"channels,omitempty"`
}

// handleHealth reports 200 while every channel runs, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.version}
	code := http.StatusOK
	if s.status != nil {
		resp.Channels = s.status()
		for _, running := range resp.Channels {
			if !running {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
