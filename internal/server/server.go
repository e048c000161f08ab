// Package server streams solves to WebSocket clients and exposes stored
// solves and solver metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/wavecollapse/internal/config"
	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/logger"
	"github.com/lawnchairsociety/wavecollapse/internal/metrics"
	"github.com/lawnchairsociety/wavecollapse/internal/module"
	"github.com/lawnchairsociety/wavecollapse/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SolveStore is the part of the store the server needs.
type SolveStore interface {
	SaveSolveAs(ctx context.Context, id string, r *generator.Result) error
	GetSolve(ctx context.Context, id string) (*store.Solve, error)
	ListSolves(ctx context.Context, limit int) ([]*store.Summary, error)
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Store    SolveStore          // nil disables persistence and the /solves routes
	Recorder *metrics.Recorder   // nil records nothing
	Gatherer prometheus.Gatherer // nil uses prometheus.DefaultGatherer
}

// Server serves solve streams over one HTTP listener.
type Server struct {
	cfg         *config.Config
	table       *module.Table
	store       SolveStore
	recorder    *metrics.Recorder
	gatherer    prometheus.Gatherer
	limiter     *StreamLimiter
	upgrader    websocket.Upgrader

	httpServer *http.Server
	streams    sync.WaitGroup

	// Closed on Shutdown; running streams stop at their next step
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates a server that solves over table with the settings in cfg.
func NewServer(cfg *config.Config, table *module.Table, opts Options) *Server {
	s := &Server{
		cfg:         cfg,
		table:       table,
		store:       opts.Store,
		recorder:    opts.Recorder,
		gatherer:    opts.Gatherer,
		limiter:     NewStreamLimiter(cfg.Server.Connections, opts.Recorder),
		shutdown:    make(chan struct{}),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StdLogger(slog.LevelWarn),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Server.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocketUpgrade)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /solves", s.handleListSolves)
	mux.HandleFunc("GET /solves/{id}", s.handleGetSolve)
	return mux
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	logger.Info("Server listening", "address", listener.Addr().String())
	err := s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, cancels running streams and waits
// for them to finish or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		err = s.httpServer.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.streams.Wait()
			close(done)
		}()
		select {
		case <-done:
			logger.Info("Server stopped")
		case <-ctx.Done():
			logger.Warning("Server shutdown timed out with streams still running")
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

// handleWebSocketUpgrade upgrades the request and streams one solve.
// The optional seed query parameter overrides the configured seed.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	seed := s.cfg.Solver.Seed
	if raw := r.URL.Query().Get("seed"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "seed must be an integer", http.StatusBadRequest)
			return
		}
		seed = n
	}

	select {
	case <-s.shutdown:
		http.Error(w, "Server is shutting down.", http.StatusServiceUnavailable)
		return
	default:
	}

	// Get the real client IP (supports X-Forwarded-For from reverse proxies)
	clientIP := getRealIP(r)

	slot, err := s.limiter.Acquire(clientIP)
	if err != nil {
		logger.Warning("WebSocket stream rejected",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP,
			"error", err)
		http.Error(w, "Too many streams. Please try again later.", http.StatusTooManyRequests)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		slot.Release()
		return
	}

	s.streams.Add(1)
	go s.handleWebSocketConnection(wsConn, slot, clientIP, seed)
}

// handleWebSocketConnection runs the solve and releases the slot afterwards.
func (s *Server) handleWebSocketConnection(wsConn *websocket.Conn, slot *StreamSlot, clientIP string, seed int64) {
	defer s.streams.Done()
	defer slot.Release()

	client := NewWebSocketClient(wsConn, s.cfg.Server.WebSocket.MaxMessageSize)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client never sends anything we act on, but reading is what
	// notices a closed socket.
	go func() {
		client.Drain()
		cancel()
	}()
	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.recorder.StreamStarted()
	defer s.recorder.StreamFinished()

	s.stream(ctx, client, clientIP, seed)
}

// handleListSolves returns the newest stored solves.
func (s *Server) handleListSolves(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "persistence is disabled", http.StatusNotFound)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	solves, err := s.store.ListSolves(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list solves", "error", err)
		http.Error(w, "failed to list solves", http.StatusInternalServerError)
		return
	}
	if solves == nil {
		solves = []*store.Summary{}
	}
	writeJSON(w, solves)
}

// handleGetSolve returns one stored solve with its cells.
func (s *Server) handleGetSolve(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "persistence is disabled", http.StatusNotFound)
		return
	}

	solve, err := s.store.GetSolve(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrSolveNotFound) {
		http.Error(w, "solve not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("Failed to load solve", "id", r.PathValue("id"), "error", err)
		http.Error(w, "failed to load solve", http.StatusInternalServerError)
		return
	}
	writeJSON(w, solve)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warning("Failed to write response", "error", err)
	}
}
