// Package oauth provides a delegated login provider for plain OAuth2 services (GitHub and the like)
// whose profile endpoint returns JSON. Profile fields are pulled out with JMESPath expressions.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

const maxProfileBytes = 1 << 20

// ProviderConfig holds configuration for a generic OAuth2 provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	AuthURL      string
	TokenURL     string
	ProfileURL   string

	// Expressions evaluated against the profile JSON. KeyExpr is required.
	KeyExpr       string
	EmailExpr     string
	FirstNameExpr string
	LastNameExpr  string

	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
}

// Provider implements ports.DelegatedProvider for a generic OAuth2 service.
type Provider struct {
	name       string
	config     *oauth2.Config
	profileURL string
	fields     map[string]string // user data key -> JMESPath expression
	httpClient *http.Client
}

// NewProvider validates the configuration and compiles the profile expressions.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	switch {
	case name == "":
		return nil, errors.New("provider name is required")
	case cfg.ClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case cfg.AuthURL == "" || cfg.TokenURL == "":
		return nil, errors.New("auth and token URLs are required")
	case cfg.ProfileURL == "":
		return nil, errors.New("profile URL is required")
	case strings.TrimSpace(cfg.KeyExpr) == "":
		return nil, errors.New("key expression is required")
	}

	fields := map[string]string{
		"id":         cfg.KeyExpr,
		"email":      cfg.EmailExpr,
		"first_name": cfg.FirstNameExpr,
		"last_name":  cfg.LastNameExpr,
	}
	for key, expr := range fields {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			delete(fields, key)
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid %s expression: %w", key, err)
		}
		fields[key] = expr
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
		},
		profileURL: cfg.ProfileURL,
		fields:     fields,
		httpClient: httpClient,
	}, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Name returns the grant source this provider serves.
func (p *Provider) Name() string { return p.name }

// AuthLink builds the authorization URL. Plain OAuth2 has no nonce, so only state is sent.
func (p *Provider) AuthLink(_ context.Context, in ports.AuthLinkInput) (string, error) {
	if in.State == "" {
		return "", errors.New("state is required")
	}
	return p.config.AuthCodeURL(in.State), nil
}

// Exchange trades the callback code for an access token.
func (p *Provider) Exchange(ctx context.Context, payload map[string]string) (ports.AccessData, error) {
	if errCode := payload["error"]; errCode != "" {
		return ports.AccessData{}, fmt.Errorf("authorization denied: %s", errCode)
	}
	code := payload["code"]
	if code == "" {
		return ports.AccessData{}, errors.New("authorization code is required")
	}
	token, err := p.config.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return ports.AccessData{}, fmt.Errorf("exchange code for token: %w", err)
	}
	return ports.AccessData{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
		Nonce:       payload["nonce"],
	}, nil
}

// FetchProfile loads the profile JSON and maps it to user data keys.
func (p *Provider) FetchProfile(ctx context.Context, access ports.AccessData) (ports.ProfileData, error) {
	if access.AccessToken == "" {
		return ports.ProfileData{}, apperrors.ProviderResponseInvalid(p.name, "missing access token")
	}
	doc, err := p.getProfile(ctx, access.AccessToken)
	if err != nil {
		return ports.ProfileData{}, err
	}

	attrs := make(map[string]string, len(p.fields))
	for key, expr := range p.fields {
		v, err := jmespath.Search(expr, doc)
		if err != nil {
			return ports.ProfileData{}, apperrors.ProviderResponseInvalid(p.name, fmt.Sprintf("evaluate %s: %v", key, err))
		}
		if s := stringify(v); s != "" {
			attrs[key] = s
		}
	}

	raw, _ := doc.(map[string]any)
	return ports.ProfileData{Attributes: attrs, Raw: raw}, nil
}

// ProviderUserKey returns the value the key expression produced.
func (p *Provider) ProviderUserKey(profile ports.ProfileData) (string, error) {
	key := strings.TrimSpace(profile.Attributes["id"])
	if key == "" {
		return "", apperrors.ProviderResponseInvalid(p.name, "missing user key")
	}
	return key, nil
}

func (p *Provider) getProfile(ctx context.Context, accessToken string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ProviderResponseInvalid(p.name, fmt.Sprintf("profile status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.ProviderResponseInvalid(p.name, "profile is not JSON")
	}
	return doc, nil
}

// stringify renders a JMESPath result as a user field value. Objects and arrays yield "".
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
