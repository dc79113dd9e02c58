package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-auth/config"
	"github.com/target/mmk-auth/internal/domain/model"
	"github.com/target/mmk-auth/internal/observability/statsd"
	"github.com/target/mmk-auth/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth          *service.AuthService[*model.User]
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// Close releases observability resources.
func (o ObservabilityContainer) Close() error {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures the metrics sink. A sink that cannot be dialled is logged and skipped.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:       true,
			Address:       cfg.Metrics.StatsdAddress,
			Prefix:        cfg.Metrics.Prefix,
			GlobalTags:    cfg.Metrics.Tags,
			FlushInterval: cfg.Metrics.FlushInterval,
			Logger:        obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// NewServices initializes the auth service and its observability dependencies.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(logger, deps.Config.Observability)
	authCfg := AuthConfig{
		Auth:        deps.Config.Auth,
		Redis:       deps.Config.Redis,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	}
	// A nil *statsd.Client must not become a non-nil interface value.
	if obs.MetricsSink != nil {
		authCfg.Metrics = obs.MetricsSink
	}

	auth, err := BuildAuthService(ctx, authCfg)
	if err != nil {
		if cerr := obs.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close statsd client: %w", cerr))
		}
		return ServiceContainer{}, err
	}

	return ServiceContainer{Auth: auth, Observability: obs}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts the HTTP server and blocks until a shutdown signal is
// received or the server fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
		ErrCh:    errCh,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return waitForShutdown(shutdownConfig{
		ctx:        ctx,
		quit:       quit,
		errCh:      errCh,
		httpServer: server,
		http:       cfg.Config.HTTP,
		logger:     logger,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx        context.Context
	quit       <-chan os.Signal
	errCh      <-chan error
	httpServer *http.Server
	http       config.HTTPConfig
	logger     *slog.Logger
}

// waitForShutdown waits for a shutdown signal, context cancellation or a server error.
func waitForShutdown(cfg shutdownConfig) error {
	select {
	case <-cfg.quit:
		cfg.logger.Info("shutting down services...")
		return gracefulStop(cfg)
	case <-cfg.ctx.Done():
		cfg.logger.Info("context cancelled, shutting down services...")
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains the HTTP server within the configured shutdown timeout.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer == nil {
		return nil
	}
	// The parent context may already be cancelled; shutdown gets a fresh deadline.
	return ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(cfg.ctx),
		Server:  cfg.httpServer,
		Timeout: cfg.http.ShutdownTimeout,
		Logger:  cfg.logger,
	})
}
