package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-auth/config"
	redisadapter "github.com/target/mmk-auth/internal/adapters/redis"
	"github.com/target/mmk-auth/internal/data"
	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/domain/model"
	"github.com/target/mmk-auth/internal/observability/statsd"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/service"
)

// AuthConfig contains dependencies for the auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	Redis       config.RedisConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: enables the session cache
	Metrics     statsd.Sink           // Optional
	Sender      ports.CodeSender      // Optional: defaults to BuildCodeSender
	Logger      *slog.Logger
}

// BuildAuthService wires the Postgres stores, the optional Redis session cache and the
// configured delegated providers into the orchestrator.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (*service.AuthService[*model.User], error) {
	if cfg.DB == nil {
		return nil, errors.New("database is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	providers, err := BuildProviders(ctx, ProvidersConfig{Auth: cfg.Auth, Logger: logger})
	if err != nil {
		return nil, err
	}
	state, err := BuildStateCodec(cfg.Auth)
	if err != nil {
		return nil, err
	}
	sender := cfg.Sender
	if sender == nil {
		sender = BuildCodeSender(logger)
	}

	stores := service.AuthStores{
		Grants:     data.NewGrantRepo(cfg.DB),
		Confirms:   data.NewConfirmationRepo(cfg.DB, domainauth.KindConfirm),
		Recoveries: data.NewConfirmationRepo(cfg.DB, domainauth.KindRecovery),
		Sessions:   data.NewSessionRepo(cfg.DB),
	}
	if cfg.RedisClient != nil {
		stores.SessionCache = redisadapter.NewSessionCacheWithPrefix(cfg.RedisClient, cfg.Redis.KeyPrefix)
	} else {
		logger.InfoContext(ctx, "session cache disabled; sessions resolve from postgres")
	}

	svc, err := service.NewAuthService(service.AuthServiceOptions[*model.User]{
		Users:  data.NewUserRepo(cfg.DB),
		Stores: stores,
		Collaborators: service.AuthCollaborators{
			Providers:  providers,
			StateCodec: state,
			Sender:     sender,
		},
		Config: cfg.Auth,
		Runtime: service.AuthRuntime{
			Logger:  logger,
			Metrics: cfg.Metrics,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	return svc, nil
}
