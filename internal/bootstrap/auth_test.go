package bootstrap

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-auth/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func delegatedAuthConfig() config.AuthConfig {
	cfg := config.DefaultAuthConfig()
	cfg.StateSecret = "state-secret"
	cfg.DevProvider = config.DevProviderConfig{
		Enabled: true,
		Name:    "dev",
		UserKey: "dev-user",
		Email:   "dev@example.com",
	}
	cfg.OAuth = config.OAuthProviderConfig{
		Enabled:      true,
		Name:         "github",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/oauth/github/callback",
		AuthURL:      "https://github.com/login/oauth/authorize",
		TokenURL:     "https://github.com/login/oauth/access_token",
		ProfileURL:   "https://api.github.com/user",
		KeyExpr:      "to_string(id)",
		EmailExpr:    "email",
	}
	return cfg
}

func TestBuildProviders(t *testing.T) {
	t.Run("none enabled", func(t *testing.T) {
		providers, err := BuildProviders(context.Background(), ProvidersConfig{
			Auth:   config.DefaultAuthConfig(),
			Logger: discardLogger(),
		})
		require.NoError(t, err)
		assert.Empty(t, providers)
	})

	t.Run("oauth and dev", func(t *testing.T) {
		providers, err := BuildProviders(context.Background(), ProvidersConfig{
			Auth:   delegatedAuthConfig(),
			Logger: discardLogger(),
		})
		require.NoError(t, err)
		require.Len(t, providers, 2)
		assert.Equal(t, "github", providers[0].Name())
		assert.Equal(t, "dev", providers[1].Name())
	})

	t.Run("invalid oauth expression fails startup", func(t *testing.T) {
		cfg := delegatedAuthConfig()
		cfg.OAuth.KeyExpr = "id[["
		_, err := BuildProviders(context.Background(), ProvidersConfig{Auth: cfg, Logger: discardLogger()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create oauth provider")
	})

	t.Run("unreachable oidc discovery fails startup", func(t *testing.T) {
		srv := httptest.NewServer(nil)
		url := srv.URL
		srv.Close()

		cfg := config.DefaultAuthConfig()
		cfg.StateSecret = "state-secret"
		cfg.Google = config.GoogleConfig{
			Enabled:      true,
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/auth/oauth/google/callback",
			Scope:        "openid email",
			DiscoveryURL: url,
		}
		_, err := BuildProviders(context.Background(), ProvidersConfig{Auth: cfg, Logger: discardLogger()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create oidc provider")
	})
}

func TestBuildStateCodec(t *testing.T) {
	codec, err := BuildStateCodec(config.DefaultAuthConfig())
	require.NoError(t, err)
	assert.Nil(t, codec)

	codec, err = BuildStateCodec(delegatedAuthConfig())
	require.NoError(t, err)
	require.NotNil(t, codec)

	state, nonce, err := codec.Issue("dev")
	require.NoError(t, err)
	got, err := codec.Verify("dev", state)
	require.NoError(t, err)
	assert.Equal(t, nonce, got)

	cfg := delegatedAuthConfig()
	cfg.StateSecret = ""
	_, err = BuildStateCodec(cfg)
	assert.Error(t, err)
}

func TestBuildCodeSender(t *testing.T) {
	sender := BuildCodeSender(discardLogger())
	assert.True(t, sender.Enabled())
}

func TestBuildAuthService(t *testing.T) {
	t.Run("requires database", func(t *testing.T) {
		_, err := BuildAuthService(context.Background(), AuthConfig{Auth: config.DefaultAuthConfig()})
		require.Error(t, err)
	})

	// sql.Open does not dial, so the wiring can be checked without a server.
	db, err := sql.Open("pgx", PostgresDSN(config.DBConfig{Host: "127.0.0.1", Port: 1, Name: "unused"}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	t.Run("wires delegated methods", func(t *testing.T) {
		svc, err := BuildAuthService(context.Background(), AuthConfig{
			Auth:   delegatedAuthConfig(),
			DB:     db,
			Logger: discardLogger(),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"password", "code", "dev", "github"}, svc.SupportedMethods())
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		cfg := config.DefaultAuthConfig()
		cfg.CodeLength = 0
		_, err := BuildAuthService(context.Background(), AuthConfig{Auth: cfg, DB: db, Logger: discardLogger()})
		require.Error(t, err)
	})
}
