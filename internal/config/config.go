package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/typedrpc/internal/call"
	"github.com/vk/typedrpc/internal/ctxlog"
)

// Server holds the transport and dispatch settings for one server instance.
type Server struct {
	// Listen is the host:port the WebSocket endpoint binds.
	Listen string `hcl:"listen,optional"`

	// QueueDepth bounds the number of calls waiting for a worker.
	QueueDepth int `hcl:"queue_depth,optional"`

	// Workers is the number of goroutines draining the call queue.
	Workers int `hcl:"workers,optional"`

	// MaxResponseBytes caps the serialized result of a single call.
	MaxResponseBytes int `hcl:"max_response_bytes,optional"`

	// MaxCalls stops the server after this many processed calls. Zero
	// means unlimited.
	MaxCalls int64 `hcl:"max_calls,optional"`

	// MaxSeconds stops the server after this much wall time. Zero means
	// unlimited.
	MaxSeconds float64 `hcl:"max_seconds,optional"`
}

// file is the top-level HCL layout of a config file.
type file struct {
	Server *Server `hcl:"server,block"`
}

// Default returns the settings used when no config file is given.
func Default() Server {
	return Server{
		Listen:           ":8545",
		QueueDepth:       64,
		Workers:          4,
		MaxResponseBytes: call.DefaultReplyLimit,
	}
}

// Load parses a `server` block from an HCL file and fills unset fields
// from Default.
func Load(ctx context.Context, path string) (Server, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading server configuration.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Server{}, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var f file
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return Server{}, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	cfg := Default()
	if f.Server != nil {
		merge(&cfg, f.Server)
	}
	if err := cfg.validate(); err != nil {
		return Server{}, fmt.Errorf("config file %s: %w", path, err)
	}

	logger.Debug("Server configuration loaded.", "listen", cfg.Listen, "workers", cfg.Workers, "queue_depth", cfg.QueueDepth)
	return cfg, nil
}

func merge(dst *Server, src *Server) {
	if src.Listen != "" {
		dst.Listen = src.Listen
	}
	if src.QueueDepth != 0 {
		dst.QueueDepth = src.QueueDepth
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.MaxResponseBytes != 0 {
		dst.MaxResponseBytes = src.MaxResponseBytes
	}
	dst.MaxCalls = src.MaxCalls
	dst.MaxSeconds = src.MaxSeconds
}

func (s Server) validate() error {
	if s.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be at least 1, got %d", s.QueueDepth)
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.MaxResponseBytes < 1 {
		return fmt.Errorf("max_response_bytes must be at least 1, got %d", s.MaxResponseBytes)
	}
	if s.MaxCalls < 0 {
		return fmt.Errorf("max_calls cannot be negative, got %d", s.MaxCalls)
	}
	if s.MaxSeconds < 0 {
		return fmt.Errorf("max_seconds cannot be negative, got %g", s.MaxSeconds)
	}
	return nil
}
