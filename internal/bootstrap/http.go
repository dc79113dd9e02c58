package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-auth/config"
	httpx "github.com/target/mmk-auth/internal/http"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives the listener error when the server stops unexpectedly (optional).
	ErrCh chan<- error
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := BuildHTTPHandler(appCfg, cfg.Services, logger)
	return startServer(serverParams{
		logger:  logger,
		handler: handler,
		http:    appCfg.HTTP,
		errCh:   cfg.ErrCh,
	})
}

// BuildHTTPHandler assembles the auth router for the given configuration.
func BuildHTTPHandler(appCfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) http.Handler {
	routerServices := httpx.RouterServices{
		Auth: services.Auth,
		Cookies: httpx.CookieOptions{
			ShareSubdomains: appCfg.Auth.CookieShareSubdomains,
			TrustProxy:      appCfg.HTTP.TrustProxy,
		},
		IsDev:             appCfg.IsDev,
		PostLoginRedirect: appCfg.HTTP.PostLoginRedirect,
		Logger:            logger,
	}
	if appCfg.HTTP.CSRFEnabled {
		routerServices.CSRF = &httpx.CSRFConfig{}
		logger.Info("HTTP CSRF protection enabled")
	}

	h := httpx.NewRouter(routerServices)
	if appCfg.HTTP.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, appCfg.HTTP.RequestTimeout, `{"error":"timeout","message":"request timed out"}`)
	}
	return h
}

type serverParams struct {
	logger  *slog.Logger
	handler http.Handler
	http    config.HTTPConfig
	errCh   chan<- error
}

func startServer(p serverParams) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := p.http.Addr
	if addr == "" {
		addr = ":8080"
	}
	writeTimeout := 30 * time.Second
	if p.http.RequestTimeout > 0 {
		// Leave room for the timeout handler to write its response.
		writeTimeout = p.http.RequestTimeout + 5*time.Second
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		p.logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("HTTP server failed", "error", err)
			if p.errCh != nil {
				select {
				case p.errCh <- fmt.Errorf("http server: %w", err):
				default:
				}
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
