package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/mmk-auth/config"
)

// InitLogger initializes the structured logger. LOG_LEVEL selects debug, info, warn or error.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig rejects configurations the auth core cannot start with.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.Auth.Validate(); err != nil {
		return fmt.Errorf("invalid auth configuration: %w", err)
	}
	return nil
}

// EnabledMethods lists the authentication methods the configuration turns on.
func EnabledMethods(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	methods := make([]string, 0, 5)
	if cfg.Auth.PasswordEnabled {
		methods = append(methods, "password")
	}
	if cfg.Auth.CodeEnabled {
		methods = append(methods, "code")
	}
	if cfg.Auth.Google.Enabled {
		methods = append(methods, oidcProviderName)
	}
	if cfg.Auth.OAuth.Enabled {
		methods = append(methods, cfg.Auth.OAuth.Name)
	}
	if cfg.Auth.DevProvider.Enabled {
		methods = append(methods, cfg.Auth.DevProvider.Name)
	}
	return methods
}
