package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/typedrpc/internal/config"
	"github.com/vk/typedrpc/internal/ctxlog"
	"github.com/vk/typedrpc/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	registry  *registry.Registry
	serverCfg config.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	serverCfg := config.Default()
	if appConfig.ConfigPath != "" {
		var err error
		serverCfg, err = config.Load(ctx, appConfig.ConfigPath)
		if err != nil {
			// A failure to load config is a fatal startup error.
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
	}
	if appConfig.Listen != "" {
		serverCfg.Listen = appConfig.Listen
	}
	logger.Debug("Server configuration resolved.", "listen", serverCfg.Listen)

	// Create and populate the registry with Go handlers.
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All procedure modules registered.", "modules", len(modules), "procedures", reg.Count())

	return &App{
		outW:      outW,
		logger:    logger,
		registry:  reg,
		serverCfg: serverCfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// ServerConfig returns the resolved server configuration. This is primarily
// for testing.
func (a *App) ServerConfig() config.Server {
	return a.serverCfg
}
