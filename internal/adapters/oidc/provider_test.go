package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

const (
	testClientID = "test-client"
	testKeyID    = "k1"
)

// fakeIdP serves discovery, token, userinfo and jwks endpoints with an RSA-signed id_token.
type fakeIdP struct {
	server   *httptest.Server
	key      *rsa.PrivateKey
	nonce    string
	idClaims jwt.MapClaims
	userinfo map[string]any
	omitID   bool
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIdP{
		key: key,
		userinfo: map[string]any{
			"sub":            "sub-1",
			"email":          "user@example.com",
			"email_verified": true,
			"given_name":     "Info",
			"family_name":    "User",
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, DiscoveryDocument{
			Issuer:                f.server.URL,
			AuthorizationEndpoint: f.server.URL + "/auth",
			TokenEndpoint:         f.server.URL + "/token",
			UserinfoEndpoint:      f.server.URL + "/userinfo",
			JwksURI:               f.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(f.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(f.key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"error": "invalid_grant"})
			return
		}
		resp := map[string]any{"access_token": "access-1", "token_type": "Bearer", "expires_in": 3600}
		if !f.omitID {
			resp["id_token"] = f.signIDToken(t)
		}
		writeJSON(w, resp)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, f.userinfo)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIdP) signIDToken(t *testing.T) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":            f.server.URL,
		"aud":            testClientID,
		"sub":            "sub-1",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"nonce":          f.nonce,
		"email":          "user@example.com",
		"email_verified": true,
		"given_name":     "Ada",
		"family_name":    "Lovelace",
	}
	for k, v := range f.idClaims {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKeyID
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T, f *fakeIdP, scope string) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/oauth/google/callback",
		Scope:        scope,
		DiscoveryURL: f.server.URL + "/.well-known/openid-configuration",
		HTTPClient:   f.server.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Success(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f, "openid email profile")

	assert.Equal(t, DefaultName, p.Name())
	assert.Equal(t, f.server.URL+"/auth", p.config.Endpoint.AuthURL)
	assert.Equal(t, f.server.URL+"/token", p.config.Endpoint.TokenURL)
	assert.True(t, p.hasOpenIDScope())
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name: "missing client ID",
			config: ProviderConfig{
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client ID is required",
		},
		{
			name: "missing client secret",
			config: ProviderConfig{
				ClientID:     "client",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret", DiscoveryURL: "http://example.com"},
			errMsg: "redirect URL is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret", RedirectURL: "http://localhost/callback"},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewProvider_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		DiscoveryURL: srv.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc new provider")
}

func TestProvider_AuthLink(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f, "openid email")

	link, err := p.AuthLink(context.Background(), ports.AuthLinkInput{State: "state-1", Nonce: "nonce-1"})
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "nonce-1", q.Get("nonce"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Equal(t, testClientID, q.Get("client_id"))

	_, err = p.AuthLink(context.Background(), ports.AuthLinkInput{})
	assert.Error(t, err)
}

func TestProvider_ExchangeAndProfile(t *testing.T) {
	f := newFakeIdP(t)
	f.nonce = "nonce-1"
	p := newTestProvider(t, f, "openid email profile")
	ctx := context.Background()

	access, err := p.Exchange(ctx, map[string]string{"code": "good-code", "nonce": "nonce-1"})
	require.NoError(t, err)
	assert.Equal(t, "access-1", access.AccessToken)
	assert.Equal(t, "nonce-1", access.Nonce)
	assert.False(t, access.Expiry.IsZero())

	profile, err := p.FetchProfile(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"id":         "sub-1",
		"email":      "user@example.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	}, profile.Attributes)
	assert.Equal(t, true, profile.Raw["email_verified"])

	key, err := p.ProviderUserKey(profile)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", key)
}

func TestProvider_ExchangeRejectsNonceMismatch(t *testing.T) {
	f := newFakeIdP(t)
	f.nonce = "issued-for-someone-else"
	p := newTestProvider(t, f, "openid email")

	_, err := p.Exchange(context.Background(), map[string]string{"code": "good-code", "nonce": "nonce-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid nonce")
}

func TestProvider_ExchangeFailures(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f, "openid email")
	ctx := context.Background()

	tests := []struct {
		name    string
		payload map[string]string
		errMsg  string
	}{
		{"provider error", map[string]string{"error": "access_denied"}, "authorization denied"},
		{"missing code", map[string]string{"nonce": "n"}, "authorization code is required"},
		{"missing nonce", map[string]string{"code": "good-code"}, "nonce is required"},
		{"rejected code", map[string]string{"code": "bad-code", "nonce": "n"}, "exchange code for token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Exchange(ctx, tt.payload)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	f.omitID = true
	_, err := p.Exchange(ctx, map[string]string{"code": "good-code", "nonce": "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id_token")
}

func TestProvider_ProfileFromUserInfo(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f, "email profile")
	ctx := context.Background()

	access, err := p.Exchange(ctx, map[string]string{"code": "good-code"})
	require.NoError(t, err)

	profile, err := p.FetchProfile(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.Attributes["id"])
	assert.Equal(t, "user@example.com", profile.Attributes["email"])
	assert.Equal(t, "Info", profile.Attributes["first_name"])

	_, err = p.FetchProfile(ctx, ports.AccessData{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeProviderResponseInvalid))
}

func TestClaims_Attributes(t *testing.T) {
	unverified := false
	c := Claims{Subject: "s", Email: "a@b.com", EmailVerified: &unverified, Name: "Grace Hopper"}

	attrs := c.attributes()
	assert.NotContains(t, attrs, "email", "unverified emails are not trusted")
	assert.Equal(t, "Grace", attrs["first_name"])
	assert.Equal(t, "Hopper", attrs["last_name"])

	p := &Provider{name: "google"}
	_, err := p.ProviderUserKey(ports.ProfileData{Attributes: map[string]string{}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeProviderResponseInvalid))
}

func TestGetIDTokenFromToken(t *testing.T) {
	_, err := getIDTokenFromToken(nil)
	require.Error(t, err)
}
