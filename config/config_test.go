package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

func parseFrom(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := parseFrom(t, map[string]string{})

	got := cfg.Auth
	got.Google = GoogleConfig{}
	got.OAuth = OAuthProviderConfig{}
	got.DevProvider = DevProviderConfig{}
	assert.Equal(t, DefaultAuthConfig(), got)

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.True(t, cfg.Postgres.RunMigrationsOnStart)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "auth_session:", cfg.Redis.KeyPrefix)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "https://accounts.google.com", cfg.Auth.Google.DiscoveryURL)
	assert.Equal(t, "to_string(id)", cfg.Auth.OAuth.KeyExpr)
	assert.NoError(t, cfg.Auth.Validate())
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	cfg := parseFrom(t, map[string]string{
		"AUTH_PASSWORD_ENABLED":        "false",
		"AUTH_CODE_LENGTH":             "8",
		"AUTH_SESSION_ALIVE_SECONDS":   "3600",
		"AUTH_COOKIE_NAME":             "sid",
		"AUTH_COOKIE_SHARE_SUBDOMAINS": "true",
		"AUTH_STATE_SECRET":            "s3cret",
		"AUTH_GOOGLE_ENABLED":          "true",
		"AUTH_GOOGLE_CLIENT_ID":        "client",
		"AUTH_GOOGLE_CLIENT_SECRET":    "secret",
		"AUTH_OAUTH_NAME":              "gitlab",
		"AUTH_DEV_PROVIDER_EMAIL":      "me@example.com",
		"DB_NAME":                      "auth_test",
		"REDIS_CLUSTER_NODES":          "a:1,b:2",
	})

	assert.False(t, cfg.Auth.PasswordEnabled)
	assert.True(t, cfg.Auth.CodeEnabled)
	assert.Equal(t, 8, cfg.Auth.CodeLength)
	assert.Equal(t, time.Hour, cfg.Auth.SessionLifetime())
	assert.Equal(t, 15*time.Minute, cfg.Auth.CodeLifetime())
	assert.Equal(t, "sid", cfg.Auth.CookieName)
	assert.True(t, cfg.Auth.CookieShareSubdomains)
	assert.True(t, cfg.Auth.Google.Enabled)
	assert.Equal(t, "client", cfg.Auth.Google.ClientID)
	assert.Equal(t, "gitlab", cfg.Auth.OAuth.Name)
	assert.Equal(t, "me@example.com", cfg.Auth.DevProvider.Email)
	assert.True(t, cfg.Auth.DelegatedEnabled())
	assert.Equal(t, "auth_test", cfg.Postgres.Name)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Redis.ClusterNodes)
	assert.NoError(t, cfg.Auth.Validate())
}

func TestAuthConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AuthConfig)
		field  string
	}{
		{name: "defaults are valid", mutate: func(*AuthConfig) {}},
		{name: "zero code length", mutate: func(c *AuthConfig) { c.CodeLength = 0 }, field: "code_length"},
		{name: "negative code lifetime", mutate: func(c *AuthConfig) { c.CodeAliveSeconds = -1 }, field: "code_alive_seconds"},
		{name: "zero token length", mutate: func(c *AuthConfig) { c.SessionTokenLength = 0 }, field: "session_token_length"},
		{name: "zero session lifetime", mutate: func(c *AuthConfig) { c.SessionAliveSeconds = 0 }, field: "session_alive_seconds"},
		{name: "zero tries", mutate: func(c *AuthConfig) { c.TokenGenerateMaxTries = 0 }, field: "token_generate_max_tries"},
		{name: "min above max", mutate: func(c *AuthConfig) { c.PasswordMinLength = 40 }, field: "password_max_length"},
		{name: "max beyond bcrypt limit", mutate: func(c *AuthConfig) { c.PasswordMaxLength = 73 }, field: "password_max_length"},
		{name: "max at bcrypt limit", mutate: func(c *AuthConfig) { c.PasswordMaxLength = 72 }},
		{name: "bcrypt cost too high", mutate: func(c *AuthConfig) { c.BcryptCost = 99 }, field: "bcrypt_cost"},
		{name: "empty cookie name", mutate: func(c *AuthConfig) { c.CookieName = "" }, field: "cookie_name"},
		{
			name: "no methods",
			mutate: func(c *AuthConfig) {
				c.PasswordEnabled = false
				c.CodeEnabled = false
			},
			field: "methods",
		},
		{
			name: "delegated only with secret",
			mutate: func(c *AuthConfig) {
				c.PasswordEnabled = false
				c.CodeEnabled = false
				c.DevProvider.Enabled = true
				c.StateSecret = "x"
			},
		},
		{name: "delegated without secret", mutate: func(c *AuthConfig) { c.Google.Enabled = true }, field: "state_secret"},
		{
			name: "oauth without key expression",
			mutate: func(c *AuthConfig) {
				c.OAuth.Enabled = true
				c.OAuth.Name = "gitlab"
				c.StateSecret = "x"
			},
			field: "oauth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultAuthConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigurationInvalid))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestAppConfig_SanitizeDisablesDevProviderOutsideDev(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	cfg := AppConfig{}
	cfg.Auth = DefaultAuthConfig()
	cfg.Auth.DevProvider.Enabled = true
	cfg.Auth.CookiePath = "  "
	cfg.Auth.OAuth.Name = " GitHub "

	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.False(t, cfg.Auth.DevProvider.Enabled)
	assert.Equal(t, "/", cfg.Auth.CookiePath)
	assert.Equal(t, "github", cfg.Auth.OAuth.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "auth_session:", cfg.Redis.KeyPrefix)
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Auth.DevProvider.Enabled = true

	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
	assert.True(t, cfg.Auth.DevProvider.Enabled)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{Addr: "  ", PostLoginRedirect: " /home ", RequestTimeout: -time.Second}
	cfg.Sanitize()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/home", cfg.PostLoginRedirect)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestAppConfig_ParseHTTPAndMetricsEnv(t *testing.T) {
	cfg := parseFrom(t, map[string]string{
		"HTTP_TRUST_PROXY":                     "true",
		"HTTP_CSRF_ENABLED":                    "true",
		"HTTP_REQUEST_TIMEOUT":                 "5s",
		"OBSERVABILITY_METRICS_ENABLED":        "true",
		"OBSERVABILITY_METRICS_FLUSH_INTERVAL": "250ms",
		"OBSERVABILITY_METRICS_TAGS":           "env:prod,region:us",
	})

	assert.True(t, cfg.HTTP.TrustProxy)
	assert.True(t, cfg.HTTP.CSRFEnabled)
	assert.Equal(t, 5*time.Second, cfg.HTTP.RequestTimeout)
	assert.True(t, cfg.Observability.Metrics.IsEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.Observability.Metrics.FlushInterval)
	assert.Equal(t, map[string]string{"env": "prod", "region": "us"}, cfg.Observability.Metrics.Tags)
}
