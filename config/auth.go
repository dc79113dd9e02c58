package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
)

// GoogleConfig configures the OIDC delegated provider.
type GoogleConfig struct {
	Enabled      bool   `env:"ENABLED"       envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/oauth/google/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid email profile"`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com"`
}

// OAuthProviderConfig configures a generic OAuth2 delegated provider whose profile
// endpoint returns JSON. Profile fields are extracted with JMESPath expressions.
type OAuthProviderConfig struct {
	Enabled       bool   `env:"ENABLED"         envDefault:"false"`
	Name          string `env:"NAME"            envDefault:"github"`
	ClientID      string `env:"CLIENT_ID"`
	ClientSecret  string `env:"CLIENT_SECRET"`
	RedirectURL   string `env:"REDIRECT_URL"    envDefault:"http://localhost:8080/auth/oauth/github/callback"`
	Scope         string `env:"SCOPE"           envDefault:"read:user user:email"`
	AuthURL       string `env:"AUTH_URL"        envDefault:"https://github.com/login/oauth/authorize"`
	TokenURL      string `env:"TOKEN_URL"       envDefault:"https://github.com/login/oauth/access_token"`
	ProfileURL    string `env:"PROFILE_URL"     envDefault:"https://api.github.com/user"`
	KeyExpr       string `env:"KEY_EXPR"        envDefault:"to_string(id)"`
	EmailExpr     string `env:"EMAIL_EXPR"      envDefault:"email"`
	FirstNameExpr string `env:"FIRST_NAME_EXPR" envDefault:"name"`
	LastNameExpr  string `env:"LAST_NAME_EXPR"`
}

// DevProviderConfig controls the development delegated provider, which skips the
// external round trip and always returns the configured identity.
type DevProviderConfig struct {
	Enabled   bool   `env:"ENABLED"    envDefault:"false"`
	Name      string `env:"NAME"       envDefault:"dev"`
	UserKey   string `env:"USER_KEY"   envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string `env:"LAST_NAME"  envDefault:"User"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	PasswordEnabled bool `env:"AUTH_PASSWORD_ENABLED" envDefault:"true"`
	CodeEnabled     bool `env:"AUTH_CODE_ENABLED"     envDefault:"true"`

	// CodeLength is the number of digits in confirmation and login codes.
	CodeLength       int `env:"AUTH_CODE_LENGTH"        envDefault:"6"`
	CodeAliveSeconds int `env:"AUTH_CODE_ALIVE_SECONDS" envDefault:"900"`

	SessionTokenLength  int `env:"AUTH_SESSION_TOKEN_LENGTH"  envDefault:"30"`
	SessionAliveSeconds int `env:"AUTH_SESSION_ALIVE_SECONDS" envDefault:"2592000"`

	// TokenGenerateMaxTries bounds the uniqueness retry loop for codes and session tokens.
	TokenGenerateMaxTries int `env:"AUTH_TOKEN_GENERATE_MAX_TRIES" envDefault:"20"`

	CookieName   string `env:"AUTH_COOKIE_NAME"   envDefault:"token"`
	CookiePath   string `env:"AUTH_COOKIE_PATH"   envDefault:"/"`
	CookieDomain string `env:"AUTH_COOKIE_DOMAIN" envDefault:""`
	// CookieShareSubdomains scopes the cookie to the registrable domain of the request host.
	CookieShareSubdomains bool `env:"AUTH_COOKIE_SHARE_SUBDOMAINS" envDefault:"false"`

	PasswordMinLength int `env:"AUTH_PASSWORD_MIN_LENGTH" envDefault:"6"`
	PasswordMaxLength int `env:"AUTH_PASSWORD_MAX_LENGTH" envDefault:"30"`
	BcryptCost        int `env:"AUTH_BCRYPT_COST"         envDefault:"10"`

	// StateSecret signs OAuth state values. Required when any delegated provider is enabled.
	StateSecret string `env:"AUTH_STATE_SECRET"`

	Google      GoogleConfig        `envPrefix:"AUTH_GOOGLE_"`
	OAuth       OAuthProviderConfig `envPrefix:"AUTH_OAUTH_"`
	DevProvider DevProviderConfig   `envPrefix:"AUTH_DEV_PROVIDER_"`
}

// DefaultAuthConfig returns the configuration the env defaults produce.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		PasswordEnabled:       true,
		CodeEnabled:           true,
		CodeLength:            6,
		CodeAliveSeconds:      900,
		SessionTokenLength:    30,
		SessionAliveSeconds:   2592000,
		TokenGenerateMaxTries: 20,
		CookieName:            "token",
		CookiePath:            "/",
		PasswordMinLength:     6,
		PasswordMaxLength:     30,
		BcryptCost:            bcrypt.DefaultCost,
	}
}

// CodeLifetime returns how long an issued code stays active.
func (c AuthConfig) CodeLifetime() time.Duration {
	return time.Duration(c.CodeAliveSeconds) * time.Second
}

// SessionLifetime returns the sliding session lifetime.
func (c AuthConfig) SessionLifetime() time.Duration {
	return time.Duration(c.SessionAliveSeconds) * time.Second
}

// DelegatedEnabled reports whether any delegated provider is configured on.
func (c AuthConfig) DelegatedEnabled() bool {
	return c.Google.Enabled || c.OAuth.Enabled || c.DevProvider.Enabled
}

// Sanitize trims string settings.
func (c *AuthConfig) Sanitize() {
	c.CookieName = strings.TrimSpace(c.CookieName)
	c.CookieDomain = strings.TrimSpace(c.CookieDomain)
	c.CookiePath = strings.TrimSpace(c.CookiePath)
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	c.OAuth.Name = strings.ToLower(strings.TrimSpace(c.OAuth.Name))
	c.DevProvider.Name = strings.ToLower(strings.TrimSpace(c.DevProvider.Name))
}

// Validate reports the first unusable setting as a configuration_invalid error.
func (c AuthConfig) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"code_length", c.CodeLength},
		{"code_alive_seconds", c.CodeAliveSeconds},
		{"session_token_length", c.SessionTokenLength},
		{"session_alive_seconds", c.SessionAliveSeconds},
		{"token_generate_max_tries", c.TokenGenerateMaxTries},
		{"password_min_length", c.PasswordMinLength},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return apperrors.ConfigurationInvalid(p.field, "must be positive")
		}
	}
	if c.PasswordMinLength > c.PasswordMaxLength {
		return apperrors.ConfigurationInvalid("password_max_length", "must not be below password_min_length")
	}
	if c.PasswordMaxLength > domainauth.MaxPasswordBytes {
		return apperrors.ConfigurationInvalid("password_max_length",
			fmt.Sprintf("must not exceed %d, the bcrypt input limit", domainauth.MaxPasswordBytes))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return apperrors.ConfigurationInvalid("bcrypt_cost", "out of range")
	}
	if c.CookieName == "" {
		return apperrors.ConfigurationInvalid("cookie_name", "must not be empty")
	}
	if !c.PasswordEnabled && !c.CodeEnabled && !c.DelegatedEnabled() {
		return apperrors.ConfigurationInvalid("methods", "at least one authentication method must be enabled")
	}
	if c.DelegatedEnabled() && c.StateSecret == "" {
		return apperrors.ConfigurationInvalid("state_secret", "required when a delegated provider is enabled")
	}
	if c.OAuth.Enabled && (c.OAuth.Name == "" || c.OAuth.KeyExpr == "") {
		return apperrors.ConfigurationInvalid("oauth", "name and key expression are required")
	}
	return nil
}
