// Package cli provides the initialization shared by cmd/ledger and
// cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/settings"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger creates the process logger writing to out and installs it as
// the slog default.
func SetupLogger(out io.Writer, level string) (*log.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	cfg.Output = out

	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App holds the report service and the resources backing it.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Reports *services.ReportService

	backend *backend.BackendResult
	caches  *cache.Manager
}

// NewApp opens the configured ledger backend and builds the report service
// over it. Close releases the backend.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.ExternalPolicy()
	if err != nil {
		return nil, err
	}

	factory := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	parser := settings.NewParser(cfg.SettingsCacheSize, cfg.SettingsCacheTTL)
	caches := cache.NewManager()
	caches.Register(parser.Cache())
	if cfg.SettingsCacheTTL > 0 {
		caches.StartCleanup(cfg.SettingsCacheTTL)
	}

	reports := services.NewReportService(result.Source,
		services.WithLocation(loc),
		services.WithExternalPolicy(policy),
		services.WithConcurrency(cfg.WorkerConcurrency),
		services.WithParser(parser),
		services.WithLogger(logger),
	)

	logger.Info("Report service ready",
		"backend", backendCfg.Type,
		"timezone", loc.String(),
		"external_accounts", cfg.ExternalAccounts)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Reports: reports,
		backend: result,
		caches:  caches,
	}, nil
}

// Close stops the cache cleanup and releases the backend.
func (a *App) Close() error {
	a.caches.Stop()
	if err := a.backend.Close(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function restores default signal handling.
func GracefulShutdown(ctx context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
