package app

import (
	"context"

	"github.com/vk/typedrpc/internal/ctxlog"
	"github.com/vk/typedrpc/internal/server"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	a.logger.Info("Procedures registered:", "count", a.registry.Count(), "names", a.registry.Names())

	srv := server.New(a.serverCfg, a.registry, a.logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
