// Package oidc provides a delegated login provider for OpenID Connect identity providers such as Google.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// DefaultName is the grant source used when ProviderConfig.Name is empty.
const DefaultName = "google"

const claimsKey = "oidc_claims"

// Provider implements ports.DelegatedProvider over OIDC discovery, the authorization code flow,
// id_token verification and the userinfo endpoint.
type Provider struct {
	name       string
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider fetches the discovery document and creates a provider.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	name := strings.ToLower(strings.TrimSpace(config.Name))
	if name == "" {
		name = DefaultName
	}

	p := &Provider{name: name, httpClient: httpClient}

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(p.clientContext(ctx), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}
	return p, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Name returns the grant source this provider serves.
func (p *Provider) Name() string { return p.name }

// AuthLink builds the authorization URL carrying state and nonce.
func (p *Provider) AuthLink(_ context.Context, in ports.AuthLinkInput) (string, error) {
	if in.State == "" {
		return "", errors.New("state is required")
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	if in.Nonce != "" {
		opts = append(opts, oauth2.SetAuthURLParam("nonce", in.Nonce))
	}
	return p.config.AuthCodeURL(in.State, opts...), nil
}

// Exchange trades the callback code for tokens and verifies the id_token against the expected nonce.
func (p *Provider) Exchange(ctx context.Context, payload map[string]string) (ports.AccessData, error) {
	if errCode := payload["error"]; errCode != "" {
		return ports.AccessData{}, fmt.Errorf("authorization denied: %s", errCode)
	}
	code := payload["code"]
	if code == "" {
		return ports.AccessData{}, errors.New("authorization code is required")
	}
	nonce := payload["nonce"]
	if p.hasOpenIDScope() && nonce == "" {
		return ports.AccessData{}, errors.New("nonce is required")
	}

	token, err := p.config.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return ports.AccessData{}, fmt.Errorf("exchange code for token: %w", err)
	}

	claims, err := p.extractFromIDToken(ctx, token, nonce)
	if err != nil {
		return ports.AccessData{}, fmt.Errorf("extract id_token: %w", err)
	}

	return ports.AccessData{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
		Nonce:       nonce,
		Extra:       map[string]any{claimsKey: claims},
	}, nil
}

// FetchProfile maps the verified id_token claims to user fields, filling gaps from userinfo.
func (p *Provider) FetchProfile(ctx context.Context, access ports.AccessData) (ports.ProfileData, error) {
	claims, _ := access.Extra[claimsKey].(Claims)
	if claims.Subject == "" || claims.Email == "" {
		if access.AccessToken == "" {
			return ports.ProfileData{}, apperrors.ProviderResponseInvalid(p.name, "missing access token")
		}
		ui, err := p.getUserInfo(ctx, access.AccessToken)
		if err != nil {
			return ports.ProfileData{}, err
		}
		fillFromUserInfo(&claims, ui)
	}
	return ports.ProfileData{Attributes: claims.attributes(), Raw: claims.raw()}, nil
}

// ProviderUserKey returns the OIDC subject.
func (p *Provider) ProviderUserKey(profile ports.ProfileData) (string, error) {
	key := strings.TrimSpace(profile.Attributes["id"])
	if key == "" {
		return "", apperrors.ProviderResponseInvalid(p.name, "missing subject")
	}
	return key, nil
}

// Claims is the subset of standard OIDC claims mapped to user fields.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

// attributes maps claims onto user data keys. Unverified emails are left out.
func (c Claims) attributes() map[string]string {
	attrs := map[string]string{"id": c.Subject}
	if c.Email != "" && (c.EmailVerified == nil || *c.EmailVerified) {
		attrs["email"] = c.Email
	}
	first, last := c.GivenName, c.FamilyName
	if first == "" && last == "" && c.Name != "" {
		first, last, _ = strings.Cut(c.Name, " ")
	}
	if first != "" {
		attrs["first_name"] = first
	}
	if last != "" {
		attrs["last_name"] = last
	}
	return attrs
}

func (c Claims) raw() map[string]any {
	raw := map[string]any{
		"sub":         c.Subject,
		"email":       c.Email,
		"given_name":  c.GivenName,
		"family_name": c.FamilyName,
		"name":        c.Name,
	}
	if c.EmailVerified != nil {
		raw["email_verified"] = *c.EmailVerified
	}
	return raw
}

func (p *Provider) getUserInfo(ctx context.Context, accessToken string) (Claims, error) {
	ui, err := p.oidcProvider.UserInfo(p.clientContext(ctx),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return Claims{}, fmt.Errorf("fetch user info: %w", err)
	}
	var claims Claims
	if err := ui.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("decode user info: %w", err)
	}
	return claims, nil
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (Claims, error) {
	var c Claims
	if !p.hasOpenIDScope() {
		return c, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return c, err
	}
	idTok, err := p.verifier.Verify(p.clientContext(ctx), rawID)
	if err != nil {
		return c, fmt.Errorf("verify id_token: %w", err)
	}
	if err := idTok.Claims(&c); err != nil {
		return c, fmt.Errorf("parse id_token claims: %w", err)
	}
	if c.Nonce != expectedNonce {
		return c, errors.New("invalid nonce")
	}
	return c, nil
}

// fillFromUserInfo fills missing claims from a userinfo payload without overwriting verified values.
func fillFromUserInfo(c *Claims, ui Claims) {
	if c.Subject == "" {
		c.Subject = ui.Subject
	}
	if c.Email == "" {
		c.Email = ui.Email
		c.EmailVerified = ui.EmailVerified
	}
	if c.GivenName == "" {
		c.GivenName = ui.GivenName
	}
	if c.FamilyName == "" {
		c.FamilyName = ui.FamilyName
	}
	if c.Name == "" {
		c.Name = ui.Name
	}
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, "openid")
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
