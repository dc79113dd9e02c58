package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/mmk-auth/config"
	"github.com/target/mmk-auth/internal/adapters/codesender"
	"github.com/target/mmk-auth/internal/adapters/devauth"
	"github.com/target/mmk-auth/internal/adapters/oauth"
	"github.com/target/mmk-auth/internal/adapters/oauthstate"
	"github.com/target/mmk-auth/internal/adapters/oidc"
	"github.com/target/mmk-auth/internal/ports"
)

const oidcProviderName = oidc.DefaultName

// ProvidersConfig contains configuration for the delegated providers.
type ProvidersConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

// BuildProviders constructs every enabled delegated provider. An enabled provider that
// cannot be built fails startup rather than silently dropping the method.
func BuildProviders(ctx context.Context, cfg ProvidersConfig) ([]ports.DelegatedProvider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var providers []ports.DelegatedProvider

	if g := cfg.Auth.Google; g.Enabled {
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			Name:         oidcProviderName,
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scope:        g.Scope,
			DiscoveryURL: g.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create oidc provider: %w", err)
		}
		providers = append(providers, prov)
		logger.InfoContext(ctx, "delegated provider enabled", "provider", prov.Name(), "discovery_url", g.DiscoveryURL)
	}

	if o := cfg.Auth.OAuth; o.Enabled {
		prov, err := oauth.NewProvider(oauth.ProviderConfig{
			Name:          o.Name,
			ClientID:      o.ClientID,
			ClientSecret:  o.ClientSecret,
			RedirectURL:   o.RedirectURL,
			Scope:         o.Scope,
			AuthURL:       o.AuthURL,
			TokenURL:      o.TokenURL,
			ProfileURL:    o.ProfileURL,
			KeyExpr:       o.KeyExpr,
			EmailExpr:     o.EmailExpr,
			FirstNameExpr: o.FirstNameExpr,
			LastNameExpr:  o.LastNameExpr,
		})
		if err != nil {
			return nil, fmt.Errorf("create oauth provider %q: %w", o.Name, err)
		}
		providers = append(providers, prov)
		logger.InfoContext(ctx, "delegated provider enabled", "provider", prov.Name())
	}

	if d := cfg.Auth.DevProvider; d.Enabled {
		prov, err := devauth.NewProvider(devauth.Config{
			Name:      d.Name,
			UserKey:   d.UserKey,
			Email:     d.Email,
			FirstName: d.FirstName,
			LastName:  d.LastName,
		})
		if err != nil {
			return nil, fmt.Errorf("create dev provider: %w", err)
		}
		providers = append(providers, prov)
		logger.WarnContext(ctx, "dev delegated provider enabled; every callback logs in as the configured identity",
			"provider", prov.Name(), "email", d.Email)
	}

	return providers, nil
}

// BuildStateCodec returns the signed state codec when any delegated provider is enabled.
//
//nolint:ireturn // a nil ports.StateCodec tells the orchestrator that no delegated method is configured.
func BuildStateCodec(auth config.AuthConfig) (ports.StateCodec, error) {
	if !auth.DelegatedEnabled() {
		return nil, nil
	}
	codec, err := oauthstate.New(oauthstate.Options{Secret: auth.StateSecret})
	if err != nil {
		return nil, fmt.Errorf("create state codec: %w", err)
	}
	return codec, nil
}

// BuildCodeSender wires the out-of-band code delivery fan-out. Only the log sink ships
// with the service; hosts register their own mail or SMS senders alongside it.
func BuildCodeSender(logger *slog.Logger, extra ...codesender.Registration) *codesender.Fanout {
	regs := make([]codesender.Registration, 0, len(extra)+1)
	regs = append(regs, codesender.Registration{Name: "log", Sender: codesender.NewLogSender(logger)})
	regs = append(regs, extra...)
	return codesender.NewFanout(logger, regs...)
}
