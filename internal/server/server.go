package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vk/typedrpc/internal/config"
	"github.com/vk/typedrpc/internal/registry"
)

// Server exposes a registry of procedures as a JSON-RPC 2.0 endpoint over
// WebSocket. Incoming calls are queued and drained by a fixed pool of
// workers; the queue depth and worker count come from the configuration.
type Server struct {
	cfg      config.Server
	reg      *registry.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
	queue    chan task
	calls    atomic.Int64
}

// task is one parsed request waiting for a worker.
type task struct {
	conn *wsConn
	req  request
}

// wsConn serializes writes to one WebSocket connection; workers processing
// calls from the same connection reply concurrently.
type wsConn struct {
	id   string
	sock *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(v)
}

// New creates a server around an already-populated registry.
func New(cfg config.Server, reg *registry.Registry, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		reg:    reg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		queue: make(chan task, cfg.QueueDepth),
	}
}

// Run serves until the context is canceled or a configured run limit
// (max_calls, max_seconds) is reached.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.cfg.MaxSeconds > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, time.Duration(s.cfg.MaxSeconds*float64(time.Second)))
		defer cancelTimeout()
	}

	var wg sync.WaitGroup
	s.startWorkers(ctx, cancel, &wg)

	httpSrv := &http.Server{Addr: s.cfg.Listen, Handler: s.handler(ctx)}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 RPC server starting", "address", s.cfg.Listen, "procedures", s.reg.Count())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Server shutdown was not clean.", "error", err)
	}
	wg.Wait()

	if runErr != nil {
		return fmt.Errorf("rpc server failed: %w", runErr)
	}
	s.logger.Info("🏁 RPC server stopped.", "calls_processed", s.calls.Load())
	return nil
}

// startWorkers launches the call-processing pool.
func (s *Server) startWorkers(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, cancel, workerID)
		}(i)
	}
}

// handler builds the HTTP entry point for WebSocket upgrades.
func (s *Server) handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})
	return mux
}

// handleWS upgrades one HTTP request and pumps its frames into the call
// queue until the connection or the server goes away.
func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed.", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn := &wsConn{id: uuid.NewString(), sock: sock}
	logger := s.logger.With("conn", conn.id)
	logger.Debug("Connection established.", "remote_addr", r.RemoteAddr)
	defer func() {
		sock.Close()
		logger.Debug("Connection closed.")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := sock.ReadMessage()
		if err != nil {
			logger.Debug("Read loop finished.", "error", err)
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Debug("Unparseable frame.", "error", err)
			_ = conn.write(errorResponse(nil, codeParseError, "parse error"))
			continue
		}
		if req.Method == "" {
			_ = conn.write(errorResponse(req.ID, codeInvalidRequest, "missing method"))
			continue
		}

		select {
		case s.queue <- task{conn: conn, req: req}:
		case <-ctx.Done():
			return
		}
	}
}
