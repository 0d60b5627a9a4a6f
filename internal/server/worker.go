package server

import (
	"context"

	"github.com/vk/typedrpc/internal/call"
	"github.com/vk/typedrpc/internal/ctxlog"
)

// worker is the core processing loop for a single concurrent worker.
func (s *Server) worker(ctx context.Context, cancel context.CancelFunc, workerID int) {
	logger := s.logger.With("workerID", workerID)
	logger.Debug("Worker started.")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Worker finished.")
			return
		case t := <-s.queue:
			s.process(ctx, t)
			if n := s.calls.Add(1); s.cfg.MaxCalls > 0 && n >= s.cfg.MaxCalls {
				logger.Info("Configured call budget reached, stopping server.", "max_calls", s.cfg.MaxCalls)
				cancel()
			}
		}
	}
}

// process runs one queued call end to end: build the call context, dispatch
// through the registry, and write the success or error response. A failed
// call never takes the worker down.
func (s *Server) process(ctx context.Context, t task) {
	logger := s.logger.With("conn", t.conn.id, "method", t.req.Method)
	notification := len(t.req.ID) == 0

	c, err := call.NewJSON(t.req.Params, s.cfg.MaxResponseBytes)
	if err != nil {
		logger.Debug("Rejecting call with malformed params.", "error", err)
		if !notification {
			_ = t.conn.write(errorResponse(t.req.ID, codeInvalidParams, err.Error()))
		}
		return
	}

	ctx = ctxlog.WithLogger(ctx, logger)
	if err := s.reg.Dispatch(ctx, t.req.Method, c); err != nil {
		logger.Warn("Call failed.", "error", err)
		if !notification {
			_ = t.conn.write(errorResponse(t.req.ID, errorCode(err), err.Error()))
		}
		return
	}

	logger.Debug("Call succeeded.")
	if notification {
		return
	}
	result := c.Response()
	if len(result) == 0 {
		result = []byte("null")
	}
	if err := t.conn.write(response{JSONRPC: "2.0", ID: t.req.ID, Result: result}); err != nil {
		logger.Debug("Failed to write response.", "error", err)
	}
}
