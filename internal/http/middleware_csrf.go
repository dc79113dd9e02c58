package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

const (
	// DefaultCSRFCookieName is the default name for the CSRF cookie.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the default name for the CSRF header (canonical form).
	DefaultCSRFHeaderName = "X-Csrf-Token"

	csrfTokenBytes = 32
	csrfMaxAge     = 12 * 3600
)

// CSRFConfig holds configuration for the double-submit CSRF check.
type CSRFConfig struct {
	CookieName string
	HeaderName string
	Cookies    CookieOptions
}

// CSRFProtection issues a readable token cookie and requires state-changing requests to echo it
// in the header (double-submit cookie pattern).
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				token = c.Value
			}

			if token == "" {
				var err error
				token, err = generateCSRFToken()
				if err != nil {
					WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal", Err: err})
					return
				}
				rc := NewRequestContext(w, r, cfg.Cookies)
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					Domain:   rc.cookieDomain(""),
					HttpOnly: false, // read by the client to echo in the header
					Secure:   isSecure(r),
					SameSite: http.SameSiteStrictMode,
					MaxAge:   csrfMaxAge,
				})
				if requiresCSRFValidation(r.Method) {
					// A fresh token cannot have been echoed yet.
					writeCSRFFailure(w)
					return
				}
			}

			if requiresCSRFValidation(r.Method) {
				header := r.Header.Get(cfg.HeaderName)
				if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(token)) != 1 {
					writeCSRFFailure(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeCSRFFailure(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: "csrf_failed",
		Err:     errors.New("CSRF token validation failed"),
	})
}

// requiresCSRFValidation returns true if the HTTP method requires CSRF validation.
// Safe methods (GET, HEAD, OPTIONS, TRACE) are exempt.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

// generateCSRFToken fails closed rather than falling back to a predictable token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
