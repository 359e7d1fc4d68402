// Package ws provides the WebSocket transport: the HTTP listener, the
// per-connection protocol dispatcher, and the auxiliary read-only endpoints.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inspiredrishabh/plaza/internal/config"
	"github.com/inspiredrishabh/plaza/internal/hub"
	"github.com/inspiredrishabh/plaza/internal/session"
)

// outboxSize is the per-connection send queue capacity. A slow client that
// falls further behind than this loses frames rather than stalling dispatch.
const outboxSize = 256

// maxFrameBytes bounds a single inbound frame.
const maxFrameBytes = 4096

// writeTimeout bounds a single outbound write.
const writeTimeout = 10 * time.Second

// Server accepts WebSocket connections and runs one session per connection.
// It implements the lifecycle Service contract via ListenAndServe/Stop.
type Server struct {
	cfg      config.Config
	registry *session.Registry
	hub      *hub.Hub
	logger   *zap.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewServer creates a Server wired to the given registry and hub.
//
// Precondition: registry, h, and logger must be non-nil; cfg must be validated.
func NewServer(cfg config.Config, registry *session.Registry, h *hub.Hub, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		hub:      h,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins; access control
			// is a non-goal for this server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/room", s.handleRoom)
	s.httpSrv = &http.Server{Addr: cfg.Server.Addr(), Handler: mux}
	return s
}

// ListenAndServe starts the HTTP listener and blocks until Stop is called.
//
// Postcondition: Returns nil on graceful shutdown, or the listener error.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("websocket server listening",
		zap.String("addr", s.cfg.Server.Addr()),
	)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr(), err)
	}
	return nil
}

// Stop gracefully stops the server: the listener closes, every live session
// is torn down (emitting its left broadcast), and in-flight writers drain.
//
// Postcondition: All connections are closed and session goroutines have exited.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}

	for _, c := range s.hub.Clients() {
		c.Evict()
	}
	s.wg.Wait()
}

// handleWS upgrades the connection and runs the session to completion.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve(conn, r.RemoteAddr)
	}()
}

// handleHealthz is a side-effect-free liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleRoom reports the room dimensions.
func (s *Server) handleRoom(w http.ResponseWriter, _ *http.Request) {
	room := s.registry.Room()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}{Width: room.Width, Height: room.Height})
}
