package service

import (
	"context"
	"fmt"
	"maps"
	"time"

	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// provider returns the registered provider for source after the method gate.
func (s *AuthService[U]) provider(source string) (ports.DelegatedProvider, error) {
	p, ok := s.providers[source]
	if !ok || !s.grants.Supports(source) {
		return nil, apperrors.MethodNotSupported(source)
	}
	return p, nil
}

// DelegatedAuthLink returns the provider authorization URL carrying a signed state.
func (s *AuthService[U]) DelegatedAuthLink(ctx context.Context, source string) (link string, err error) {
	defer func(start time.Time) { s.observe(ctx, FlowDelegatedLink, source, start, err) }(time.Now())

	p, err := s.provider(source)
	if err != nil {
		return "", err
	}
	state, nonce, err := s.state.Issue(source)
	if err != nil {
		return "", fmt.Errorf("issue state: %w", err)
	}
	link, err = p.AuthLink(ctx, ports.AuthLinkInput{State: state, Nonce: nonce})
	if err != nil {
		return "", fmt.Errorf("%s auth link: %w", source, err)
	}
	return link, nil
}

// LoginByDelegated exchanges the provider callback payload, links or creates the user and starts a session.
// A provider identity already linked to a user always logs in as that user.
func (s *AuthService[U]) LoginByDelegated(
	ctx context.Context,
	rc ports.RequestContext,
	source string,
	payload map[string]string,
) (res *LoginResult[U], err error) {
	defer func(start time.Time) { s.observe(ctx, FlowDelegatedLogin, source, start, err) }(time.Now())

	p, err := s.provider(source)
	if err != nil {
		return nil, err
	}
	nonce, err := s.state.Verify(source, payload["state"])
	if err != nil {
		return nil, apperrors.ValidationField("state", "Login state is invalid or expired.")
	}

	exchange := maps.Clone(payload)
	if exchange == nil {
		exchange = make(map[string]string, 1)
	}
	exchange["nonce"] = nonce

	access, err := p.Exchange(ctx, exchange)
	if err != nil {
		return nil, providerError(source, err)
	}
	profile, err := p.FetchProfile(ctx, access)
	if err != nil {
		return nil, providerError(source, err)
	}
	key, err := p.ProviderUserKey(profile)
	if err != nil {
		return nil, providerError(source, err)
	}

	grant, err := s.grants.FindDelegatedGrant(ctx, source, key)
	if err != nil {
		return nil, err
	}

	var user U
	if grant == nil {
		user, err = s.createDelegatedUser(ctx, profile)
		if err != nil {
			return nil, err
		}
		grant, err = s.grants.FindOrCreateDelegatedGrant(ctx, user.GetID(), source, key)
		if err != nil {
			s.discardUser(ctx, user)
			return nil, fmt.Errorf("delegated grant: %w", err)
		}
	} else {
		user, err = s.users.FindByID(ctx, grant.UserID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.UserNotFound()
			}
			return nil, fmt.Errorf("find user: %w", err)
		}
	}

	sess, err := s.startSession(ctx, rc, grant, access.AccessToken)
	if err != nil {
		return nil, err
	}
	return &LoginResult[U]{User: user, Session: sess}, nil
}

func (s *AuthService[U]) createDelegatedUser(ctx context.Context, profile ports.ProfileData) (U, error) {
	data := s.profileUserData(profile)
	if err := s.ensureIdentityKeysFree(ctx, data); err != nil {
		var zero U
		return zero, err
	}
	user, err := s.insertUser(ctx, data)
	if err != nil {
		return user, err
	}
	s.logger.InfoContext(ctx, "user created from provider profile", "user_id", user.GetID())
	return user, nil
}

// providerError keeps provider AppErrors and wraps anything else as provider_exchange_failed.
func providerError(source string, err error) error {
	if apperrors.HasCode(err, apperrors.ErrCodeProviderExchangeFailed) ||
		apperrors.HasCode(err, apperrors.ErrCodeProviderResponseInvalid) {
		return err
	}
	return apperrors.ProviderExchangeFailed(source, err)
}
