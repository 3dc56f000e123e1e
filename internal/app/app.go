// Package app provides the top-level application lifecycle for the trade API.
// It wires together the store, signal bus, settlement scheduler, HTTP server,
// WebSocket hub, and optional background workers, and supervises them until
// shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/config"
)

// shutdownTimeout bounds how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownTimeout = 5 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the server and background goroutines, and
// blocks until the context is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub: fans trade events out to connected clients.
	g.Go(func() error {
		return deps.Hub.Run(ctx)
	})

	// Settlement: reschedule trades that were live at the last shutdown, then
	// run the expiry loop.
	g.Go(func() error {
		recovered, err := deps.Scheduler.Recover(ctx)
		if err != nil {
			return fmt.Errorf("app: recover live trades: %w", err)
		}
		if recovered > 0 {
			a.logger.InfoContext(ctx, "rescheduled live trades from previous run",
				slog.Int("count", recovered),
			)
		}
		return deps.Scheduler.Run(ctx)
	})

	// Notification relay, when any channel is configured.
	if deps.Relay != nil {
		g.Go(func() error {
			return deps.Relay.Run(ctx)
		})
	}

	// Completed-trade archival, when enabled.
	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	// HTTP server plus a watcher that shuts it down on context cancellation.
	g.Go(func() error {
		return deps.Server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return deps.Server.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
