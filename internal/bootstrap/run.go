package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stagehand-app/stagehand/config"
)

const shutdownGrace = 15 * time.Second

// ServiceOrchestrationConfig bundles what RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service
// fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("orchestration config is incomplete")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probeDependencies(ctx, cfg, logger)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Config.IsEscalationEnabled() {
		g.Go(func() error {
			return cfg.Services.Escalation.Run(ctx)
		})
	}

	if cfg.Config.IsCompletionWorkerEnabled() {
		g.Go(func() error {
			// Close the queue on shutdown so the worker drains what is
			// already enqueued before exiting.
			go func() {
				<-ctx.Done()
				cfg.Services.Queue.Close()
			}()
			return cfg.Services.Worker.Run(ctx)
		})
	}

	if cfg.Config.IsDispatchHTTPEnabled() {
		srv := &http.Server{
			Addr:              cfg.Config.Dispatch.ListenAddr,
			Handler:           cfg.Services.Dispatch,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.InfoContext(ctx, "dispatch listener starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("all services stopped")
	return nil
}

// probeDependencies checks remote reachability at startup. Failures are
// logged, not fatal: the retrying client recovers once the remote is back,
// and the cache fails open.
func probeDependencies(ctx context.Context, cfg *ServiceOrchestrationConfig, logger *slog.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := cfg.Services.Store.Ping(probeCtx); err != nil {
		logger.WarnContext(ctx, "record store ping failed at startup", "error", err)
	} else {
		logger.InfoContext(ctx, "record store reachable")
	}

	if err := cfg.Services.Cache.Health(probeCtx); err != nil {
		logger.WarnContext(ctx, "cache health check failed at startup", "error", err)
	}
}
