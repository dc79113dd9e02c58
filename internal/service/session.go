package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// SessionConfig controls token shape and the sliding lifetime.
type SessionConfig struct {
	TokenLength int
	Lifetime    time.Duration
	MaxTries    int
	// Tokens overrides the token generator; nil means crypto/rand.
	Tokens *TokenGenerator
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// SessionStores groups session persistence.
type SessionStores struct {
	Repo  ports.SessionRepository // Required: auth_session persistence
	Cache ports.SessionCache      // Optional: token lookup cache
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Stores SessionStores
	Config SessionConfig
	Logger *slog.Logger // Optional: structured logger
}

// SessionManager owns auth_session records: one row per user, grant and device, with a rotating token.
type SessionManager struct {
	repo   ports.SessionRepository
	cache  ports.SessionCache
	cfg    SessionConfig
	tokens *TokenGenerator
	now    func() time.Time
	lookup singleflight.Group
	logger *slog.Logger
}

// NewSessionManager constructs a new SessionManager.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Stores.Repo == nil {
		return nil, errors.New("SessionRepository is required")
	}
	cfg := opts.Config
	switch {
	case cfg.TokenLength <= 0:
		return nil, apperrors.ConfigurationInvalid("session_token_length", "must be positive")
	case cfg.Lifetime <= 0:
		return nil, apperrors.ConfigurationInvalid("session_alive_seconds", "must be positive")
	case cfg.MaxTries <= 0:
		return nil, apperrors.ConfigurationInvalid("token_generate_max_tries", "must be positive")
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewTokenGenerator()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		repo:   opts.Stores.Repo,
		cache:  opts.Stores.Cache,
		cfg:    cfg,
		tokens: tokens,
		now:    now,
		logger: logger.With("component", "session_manager"),
	}, nil
}

// MustNewSessionManager constructs a new SessionManager and panics on error.
func MustNewSessionManager(opts SessionManagerOptions) *SessionManager {
	m, err := NewSessionManager(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return m
}

// Lifetime returns the configured sliding lifetime.
func (m *SessionManager) Lifetime() time.Duration {
	return m.cfg.Lifetime
}

// CreateOrRefresh reuses the row for (user, grant, device) with a new token and end time,
// or inserts one. grantToken carries a delegated provider's access token and may be empty.
func (m *SessionManager) CreateOrRefresh(
	ctx context.Context,
	grant *domainauth.Grant,
	fp domainauth.Fingerprint,
	grantToken string,
) (*domainauth.Session, error) {
	if grant == nil || grant.ID == "" {
		return nil, apperrors.GrantNotFound("session")
	}

	sess, err := m.createOrRefresh(ctx, grant, fp, grantToken)
	if apperrors.IsConflict(err) {
		// A concurrent login from the same device or a token collision; the second pass resolves either.
		sess, err = m.createOrRefresh(ctx, grant, fp, grantToken)
	}
	if err != nil {
		return nil, err
	}
	m.cacheSave(ctx, *sess)
	return sess, nil
}

func (m *SessionManager) createOrRefresh(
	ctx context.Context,
	grant *domainauth.Grant,
	fp domainauth.Fingerprint,
	grantToken string,
) (*domainauth.Session, error) {
	now := m.now()

	existing, err := m.repo.FindByDevice(ctx, grant.UserID, grant.ID, fp)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("find session by device: %w", err)
	}
	found := err == nil && existing != nil

	token, err := m.newToken(ctx)
	if err != nil {
		return nil, err
	}

	if found {
		refreshed, err := m.repo.Refresh(ctx, existing.ID, ports.SessionRefresh{
			Token:      token,
			GrantToken: grantToken,
			EndTime:    now.Add(m.cfg.Lifetime),
		})
		if err != nil {
			if apperrors.IsConflict(err) {
				return nil, err
			}
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		m.cacheDelete(ctx, existing.Token)
		m.logger.InfoContext(ctx, "session refreshed",
			"user_id", refreshed.UserID, "session_id", refreshed.ID, "grant_id", grant.ID)
		return refreshed, nil
	}

	created, err := m.repo.Insert(ctx, domainauth.Session{
		UserID:      grant.UserID,
		GrantID:     grant.ID,
		Token:       token,
		GrantToken:  grantToken,
		UserIP:      fp.IP,
		UserAgent:   fp.UserAgent,
		UserOS:      fp.OS(),
		UserBrowser: fp.Browser(),
		CreateTime:  now,
		EndTime:     now.Add(m.cfg.Lifetime),
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	m.logger.InfoContext(ctx, "session created",
		"user_id", created.UserID, "session_id", created.ID, "grant_id", grant.ID, "browser", created.UserBrowser)
	return created, nil
}

// Destroy ends the session by moving its end time into the past. The row is kept.
func (m *SessionManager) Destroy(ctx context.Context, sess *domainauth.Session) error {
	if sess == nil {
		return nil
	}
	end := m.now().Add(-time.Second)
	if err := m.repo.SetEndTime(ctx, sess.ID, end); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	sess.EndTime = end
	m.cacheDelete(ctx, sess.Token)
	m.logger.InfoContext(ctx, "session ended", "user_id", sess.UserID, "session_id", sess.ID)
	return nil
}

// ResolveSession returns the active session for token, or nil when there is none.
// Outdated sessions resolve to nil and are left in place.
func (m *SessionManager) ResolveSession(ctx context.Context, token string) (*domainauth.Session, error) {
	if token == "" {
		return nil, nil
	}
	now := m.now()

	if m.cache != nil {
		cached, err := m.cache.Get(ctx, token)
		switch {
		case err == nil && cached.IsActive(now):
			return &cached, nil
		case err != nil && !errors.Is(err, ports.ErrSessionNotCached):
			m.logger.WarnContext(ctx, "session cache read failed", "error", err)
		}
	}

	// The shared lookup outlives any single caller so one cancellation does not fail the other waiters.
	lookupCtx := context.WithoutCancel(ctx)
	ch := m.lookup.DoChan(token, func() (any, error) {
		sess, err := m.repo.FindByToken(lookupCtx, token)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return (*domainauth.Session)(nil), nil
			}
			return nil, fmt.Errorf("find session by token: %w", err)
		}
		if sess.IsActive(now) {
			m.cacheSave(lookupCtx, *sess)
		}
		return sess, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	sess, _ := res.Val.(*domainauth.Session)
	if sess == nil || !sess.IsActive(now) {
		return nil, nil
	}
	out := *sess
	return &out, nil
}

// ResolveUserID returns the user behind token, or "" when the token is unknown or outdated.
func (m *SessionManager) ResolveUserID(ctx context.Context, token string) (string, error) {
	sess, err := m.ResolveSession(ctx, token)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.UserID, nil
}

// KeepAlive extends the active session for token without rotating the token.
// It returns nil when the token does not resolve.
func (m *SessionManager) KeepAlive(ctx context.Context, token string) (*domainauth.Session, error) {
	sess, err := m.ResolveSession(ctx, token)
	if err != nil || sess == nil {
		return nil, err
	}
	end := m.now().Add(m.cfg.Lifetime)
	if err := m.repo.SetEndTime(ctx, sess.ID, end); err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	sess.EndTime = end
	m.cacheSave(ctx, *sess)
	return sess, nil
}

// RevokeAll ends every active session of userID and returns how many were ended.
func (m *SessionManager) RevokeAll(ctx context.Context, userID string) (int, error) {
	tokens, err := m.repo.ExpireByUser(ctx, userID, m.now().Add(-time.Second))
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	for _, token := range tokens {
		m.cacheDelete(ctx, token)
	}
	m.logger.InfoContext(ctx, "sessions revoked", "user_id", userID, "count", len(tokens))
	return len(tokens), nil
}

func (m *SessionManager) newToken(ctx context.Context) (string, error) {
	return m.tokens.GenerateUnique(ctx, UniqueTokenRequest{
		Alphabet: AlphabetAlphanumeric,
		Length:   m.cfg.TokenLength,
		MaxTries: m.cfg.MaxTries,
		Exists:   m.repo.TokenExists,
	})
}

// cacheSave caches sess and then re-reads its row. A rotation, logout or revoke that committed
// before the write would otherwise leave the old token cached until its end time, so the entry
// is dropped unless the row still carries the token and is active.
func (m *SessionManager) cacheSave(ctx context.Context, sess domainauth.Session) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Save(ctx, sess); err != nil {
		m.logger.WarnContext(ctx, "session cache write failed", "session_id", sess.ID, "error", err)
		return
	}
	current, err := m.repo.FindByToken(ctx, sess.Token)
	switch {
	case err == nil && current.ID == sess.ID && current.IsActive(m.now()):
		return
	case err != nil && !apperrors.IsNotFound(err):
		m.logger.WarnContext(ctx, "session cache check failed", "session_id", sess.ID, "error", err)
	}
	m.cacheDelete(ctx, sess.Token)
}

func (m *SessionManager) cacheDelete(ctx context.Context, token string) {
	if m.cache == nil || token == "" {
		return
	}
	if err := m.cache.Delete(ctx, token); err != nil {
		m.logger.WarnContext(ctx, "session cache delete failed", "error", err)
	}
}
