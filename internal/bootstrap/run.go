package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/openlearn/adaptive-api/config"
)

// RunConfig contains dependencies for running the service until shutdown.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunWithShutdown starts the HTTP server and blocks until SIGINT or SIGTERM,
// then stops the server, waits for background worker tasks, and closes the
// metrics sink.
func RunWithShutdown(cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("run config with services is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit

	logger.Info("shutting down")
	return gracefulStop(cfg.Config, cfg.Services, server, logger)
}

func gracefulStop(
	appCfg *config.AppConfig,
	services *ServiceContainer,
	server *http.Server,
	logger *slog.Logger,
) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.HTTP.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := ShutdownHTTPServer(shutdownCtx, server, logger); err != nil {
		errs = append(errs, err)
	}

	// In-flight explanation tasks checkpoint their progress, so canceling
	// them loses at most the current unit of work.
	if services.Worker != nil {
		if err := services.Worker.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		logger.Info("worker runner stopped")
	}

	if sink := services.Observability.MetricsSink; sink != nil {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
