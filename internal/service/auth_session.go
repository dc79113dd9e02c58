package service

import (
	"context"
	"fmt"
	"time"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// Logout ends the current session, if any, and always clears the cookie.
func (s *AuthService[U]) Logout(ctx context.Context, rc ports.RequestContext) (err error) {
	defer func(start time.Time) { s.observe(ctx, FlowLogout, "", start, err) }(time.Now())

	defer s.clearSessionCookie(rc)
	token, ok := rc.Cookie(s.cfg.CookieName)
	if !ok || token == "" {
		return nil
	}
	sess, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		return err
	}
	return s.sessions.Destroy(ctx, sess)
}

// CurrentUserID returns the user behind the request cookie, or "" when not logged in.
func (s *AuthService[U]) CurrentUserID(ctx context.Context, rc ports.RequestContext) (string, error) {
	token, ok := rc.Cookie(s.cfg.CookieName)
	if !ok {
		return "", nil
	}
	return s.sessions.ResolveUserID(ctx, token)
}

// CurrentUser loads the user behind the request cookie. The bool is false when not logged in.
func (s *AuthService[U]) CurrentUser(ctx context.Context, rc ports.RequestContext) (U, bool, error) {
	var zero U
	id, err := s.CurrentUserID(ctx, rc)
	if err != nil || id == "" {
		return zero, false, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("find user: %w", err)
	}
	return user, true, nil
}

// KeepAlive slides the current session's expiry and refreshes the cookie.
func (s *AuthService[U]) KeepAlive(ctx context.Context, rc ports.RequestContext) (*domainauth.Session, error) {
	token, ok := rc.Cookie(s.cfg.CookieName)
	if !ok || token == "" {
		return nil, apperrors.Unauthenticated()
	}
	sess, err := s.sessions.KeepAlive(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperrors.Unauthenticated()
	}
	s.setSessionCookie(rc, sess)
	return sess, nil
}

// ResolveSession returns the active session for token, or nil. Used by administrative tooling.
func (s *AuthService[U]) ResolveSession(ctx context.Context, token string) (*domainauth.Session, error) {
	return s.sessions.ResolveSession(ctx, token)
}

// RevokeSessions ends every active session of userID.
func (s *AuthService[U]) RevokeSessions(ctx context.Context, userID string) (int, error) {
	return s.sessions.RevokeAll(ctx, userID)
}

// FindUser looks up a user by id or by any identity key.
func (s *AuthService[U]) FindUser(ctx context.Context, ref string) (U, error) {
	user, err := s.users.FindByID(ctx, ref)
	if err == nil {
		return user, nil
	}
	var zero U
	if !apperrors.IsNotFound(err) && !apperrors.IsValidation(err) {
		return zero, fmt.Errorf("find user: %w", err)
	}
	user, err = s.users.FindByAnyIdentityKey(ctx, normalizeLookup(ref))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return zero, apperrors.UserNotFound()
		}
		return zero, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
