// Package devauth provides a config-driven delegated provider for local development.
// It skips the external round trip by linking straight back to the callback route
// and always resolves to the configured identity.
package devauth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// DefaultName is the grant source used when Config.Name is empty.
const DefaultName = "dev"

const devCode = "dev"

// Config controls the dev provider identity. UserKey and Email are required.
type Config struct {
	Name      string
	UserKey   string
	Email     string
	FirstName string
	LastName  string
	// CallbackPath defaults to /auth/oauth/{name}/callback.
	CallbackPath string
}

// Provider implements ports.DelegatedProvider for local development.
type Provider struct {
	name     string
	callback string
	profile  map[string]string
}

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.UserKey) == "" {
		return nil, errors.New("dev auth: UserKey is required")
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = DefaultName
	}
	callback := cfg.CallbackPath
	if callback == "" {
		callback = "/auth/oauth/" + name + "/callback"
	}

	profile := map[string]string{"id": cfg.UserKey, "email": cfg.Email}
	if cfg.FirstName != "" {
		profile["first_name"] = cfg.FirstName
	}
	if cfg.LastName != "" {
		profile["last_name"] = cfg.LastName
	}
	return &Provider{name: name, callback: callback, profile: profile}, nil
}

// Name returns the grant source this provider serves.
func (p *Provider) Name() string { return p.name }

// AuthLink points straight at our own callback with a fixed code and the issued state.
func (p *Provider) AuthLink(_ context.Context, in ports.AuthLinkInput) (string, error) {
	if in.State == "" {
		return "", errors.New("state is required")
	}
	q := url.Values{"code": {devCode}, "state": {in.State}}
	return p.callback + "?" + q.Encode(), nil
}

// Exchange accepts only the fixed code handed out by AuthLink.
func (p *Provider) Exchange(_ context.Context, payload map[string]string) (ports.AccessData, error) {
	if payload["code"] != devCode {
		return ports.AccessData{}, errors.New("dev auth: unexpected code")
	}
	return ports.AccessData{AccessToken: "dev-" + p.profile["id"], Nonce: payload["nonce"]}, nil
}

// FetchProfile returns a copy of the configured identity.
func (p *Provider) FetchProfile(_ context.Context, _ ports.AccessData) (ports.ProfileData, error) {
	attrs := make(map[string]string, len(p.profile))
	raw := make(map[string]any, len(p.profile))
	for k, v := range p.profile {
		attrs[k] = v
		raw[k] = v
	}
	return ports.ProfileData{Attributes: attrs, Raw: raw}, nil
}

// ProviderUserKey returns the configured user key.
func (p *Provider) ProviderUserKey(profile ports.ProfileData) (string, error) {
	key := profile.Attributes["id"]
	if key == "" {
		return "", apperrors.ProviderResponseInvalid(p.name, "missing user key")
	}
	return key, nil
}
