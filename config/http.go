package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://auth.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// PostLoginRedirect is the local path the delegated callback redirects to.
	// Empty answers the callback with JSON instead.
	PostLoginRedirect string `env:"HTTP_POST_LOGIN_REDIRECT" envDefault:""`

	// TrustProxy honours X-Forwarded-For and X-Forwarded-Proto from a fronting proxy.
	TrustProxy bool `env:"HTTP_TRUST_PROXY" envDefault:"false"`

	// CSRFEnabled requires state-changing requests to echo the CSRF cookie in a header.
	CSRFEnabled bool `env:"HTTP_CSRF_ENABLED" envDefault:"false"`

	// RequestTimeout bounds each request, including provider round trips.
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.PostLoginRedirect = strings.TrimSpace(h.PostLoginRedirect)
	if h.RequestTimeout <= 0 {
		h.RequestTimeout = 30 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
