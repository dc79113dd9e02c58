package httpx

import (
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
)

// CookieOptions controls how session cookies are scoped on the response.
type CookieOptions struct {
	// ShareSubdomains scopes cookies without an explicit domain to the registrable domain
	// of the request host, so a login on app.example.com is visible on api.example.com.
	ShareSubdomains bool
	// TrustProxy reads the client address from X-Forwarded-For.
	TrustProxy bool
}

// RequestContext adapts an HTTP exchange to ports.RequestContext.
type RequestContext struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions
}

// NewRequestContext wraps the response writer and request.
func NewRequestContext(w http.ResponseWriter, r *http.Request, opts CookieOptions) *RequestContext {
	return &RequestContext{w: w, r: r, opts: opts}
}

// ClientIP returns the remote address without port.
func (rc *RequestContext) ClientIP() string {
	if rc.opts.TrustProxy {
		if fwd := rc.r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(rc.r.RemoteAddr)
	if err != nil {
		return rc.r.RemoteAddr
	}
	return host
}

// UserAgent returns the raw User-Agent header.
func (rc *RequestContext) UserAgent() string {
	return rc.r.UserAgent()
}

// Cookie returns a request cookie value.
func (rc *RequestContext) Cookie(name string) (string, bool) {
	c, err := rc.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetCookie writes c to the response.
func (rc *RequestContext) SetCookie(c domainauth.Cookie) {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   rc.cookieDomain(c.Domain),
		HttpOnly: c.HTTPOnly,
		Secure:   isSecure(rc.r),
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case c.Expired(time.Now()):
		hc.MaxAge = -1
		hc.Expires = time.Unix(0, 0).UTC()
	case !c.Expires.IsZero():
		hc.Expires = c.Expires.UTC()
	}
	http.SetCookie(rc.w, hc)
}

func (rc *RequestContext) cookieDomain(configured string) string {
	if configured != "" || !rc.opts.ShareSubdomains {
		return configured
	}
	host := rc.r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// localhost and other single-label hosts have no registrable domain.
		return ""
	}
	return domain
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
