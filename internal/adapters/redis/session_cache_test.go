package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func testSession(token string, ttl time.Duration) domainauth.Session {
	return domainauth.Session{
		ID:          "sess-" + token,
		UserID:      "user-123",
		GrantID:     "grant-1",
		Token:       token,
		UserIP:      "10.0.0.1",
		UserAgent:   "ua",
		UserBrowser: "Firefox",
		EndTime:     time.Now().Add(ttl),
	}
}

func TestSessionCache_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCacheWithPrefix(client, "test_auth_session:")
	ctx := context.Background()
	sess := testSession("tok-save", 30*time.Minute)

	require.NoError(t, cache.Save(ctx, sess))

	got, err := cache.Get(ctx, "tok-save")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.GrantID, got.GrantID)
	assert.Equal(t, "Firefox", got.UserBrowser)
	assert.WithinDuration(t, sess.EndTime, got.EndTime, time.Second)

	ttl := client.TTL(ctx, "test_auth_session:tok-save").Val()
	assert.Greater(t, ttl, 29*time.Minute)
}

func TestSessionCache_Miss(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCache(client)
	ctx := context.Background()

	_, err := cache.Get(ctx, "non-existent")
	assert.ErrorIs(t, err, ports.ErrSessionNotCached)
	_, err = cache.Get(ctx, "")
	assert.ErrorIs(t, err, ports.ErrSessionNotCached)
}

func TestSessionCache_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCache(client)
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, testSession("tok-delete", time.Minute)))

	require.NoError(t, cache.Delete(ctx, "tok-delete"))
	_, err := cache.Get(ctx, "tok-delete")
	assert.ErrorIs(t, err, ports.ErrSessionNotCached)
	assert.NoError(t, cache.Delete(ctx, ""))
}

func TestSessionCache_TTLExpiration(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCache(client)
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, testSession("tok-ttl", 100*time.Millisecond)))

	time.Sleep(200 * time.Millisecond)

	_, err := cache.Get(ctx, "tok-ttl")
	assert.ErrorIs(t, err, ports.ErrSessionNotCached)
}

func TestSessionCache_EndedEntryIsDropped(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCache(client)
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, testSession("tok-clock", time.Hour)))

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := cache.Get(ctx, "tok-clock")
	assert.ErrorIs(t, err, ports.ErrSessionNotCached)
	assert.Equal(t, int64(0), client.Exists(ctx, DefaultKeyPrefix+"tok-clock").Val())
}

func TestSessionCache_RejectsInvalid(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCache(client)
	ctx := context.Background()

	assert.Error(t, cache.Save(ctx, testSession("", time.Minute)))
	assert.Error(t, cache.Save(ctx, testSession("tok-past", -time.Minute)))
}

func TestSessionCache_DoesNotStoreGrantToken(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewSessionCacheWithPrefix(client, "test_auth_session:")
	ctx := context.Background()
	sess := testSession("tok-grant", time.Minute)
	sess.GrantToken = "provider-access-token"

	require.NoError(t, cache.Save(ctx, sess))

	raw := client.Get(ctx, "test_auth_session:tok-grant").Val()
	assert.NotContains(t, raw, "provider-access-token")

	got, err := cache.Get(ctx, "tok-grant")
	require.NoError(t, err)
	assert.Empty(t, got.GrantToken)
	assert.Equal(t, sess.UserID, got.UserID)
}
