// Package redis provides Redis-backed adapters for the auth core.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/ports"
)

// DefaultKeyPrefix namespaces cached sessions.
const DefaultKeyPrefix = "auth_session:"

// SessionCache caches active sessions by token. Entries expire with the session's end time.
type SessionCache struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewSessionCache creates a session cache using DefaultKeyPrefix.
func NewSessionCache(client redis.UniversalClient) *SessionCache {
	return NewSessionCacheWithPrefix(client, DefaultKeyPrefix)
}

// NewSessionCacheWithPrefix creates a session cache with a custom key prefix.
func NewSessionCacheWithPrefix(client redis.UniversalClient, prefix string) *SessionCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SessionCache{client: client, prefix: prefix, now: time.Now}
}

func (c *SessionCache) key(token string) string { return c.prefix + token }

// Save stores sess under its token until its end time. The provider access token is not cached.
func (c *SessionCache) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.Token == "" {
		return errors.New("session token cannot be empty")
	}
	ttl := sess.EndTime.Sub(c.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return c.client.Set(ctx, c.key(sess.Token), data, ttl).Err()
}

// Get returns the cached session for token or ports.ErrSessionNotCached.
func (c *SessionCache) Get(ctx context.Context, token string) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, ports.ErrSessionNotCached
	}

	data, err := c.client.Get(ctx, c.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ports.ErrSessionNotCached
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	// TTL granularity can leave an entry alive briefly past its end time.
	if !sess.IsActive(c.now()) {
		if err := c.Delete(ctx, token); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ports.ErrSessionNotCached
	}
	return sess, nil
}

// Delete removes the entry for token.
func (c *SessionCache) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.client.Del(ctx, c.key(token)).Err()
}
