package oauthstate

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	c, err := New(Options{Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestCodec_RoundTrip(t *testing.T) {
	c, err := New(Options{Secret: "state-secret"})
	require.NoError(t, err)

	state, nonce, err := c.Issue("google")
	require.NoError(t, err)
	assert.NotEmpty(t, nonce)
	assert.Equal(t, 2, strings.Count(state, "."))

	got, err := c.Verify("google", state)
	require.NoError(t, err)
	assert.Equal(t, nonce, got)

	_, other, err := c.Issue("google")
	require.NoError(t, err)
	assert.NotEqual(t, nonce, other, "each state carries a fresh nonce")
}

func TestCodec_Rejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c, err := New(Options{Secret: "state-secret", Now: func() time.Time { return now }})
	require.NoError(t, err)

	state, _, err := c.Issue("google")
	require.NoError(t, err)

	t.Run("wrong provider", func(t *testing.T) {
		_, err := c.Verify("github", state)
		assert.ErrorIs(t, err, ErrProviderMismatch)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := c.Verify("google", "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := c.Verify("google", state+"x")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := New(Options{Secret: "another", Now: c.now})
		require.NoError(t, err)
		_, err = other.Verify("google", state)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("expired", func(t *testing.T) {
		later, err := New(Options{Secret: "state-secret", Now: func() time.Time { return now.Add(DefaultTTL + time.Minute) }})
		require.NoError(t, err)
		_, err = later.Verify("google", state)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unsigned", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, &stateClaims{
			Provider:         "google",
			Nonce:            "n",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
		})
		unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = c.Verify("google", unsigned)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("missing expiry", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &stateClaims{Provider: "google", Nonce: "n"})
		noExp, err := tok.SignedString(c.secret)
		require.NoError(t, err)
		_, err = c.Verify("google", noExp)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}
