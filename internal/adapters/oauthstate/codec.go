// Package oauthstate signs the state value round-tripped through a delegated provider.
// The state is an HS256 JWT binding the provider name and a nonce, so callbacks need no
// server-side storage.
package oauthstate

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL bounds how long a user may spend at the provider.
const DefaultTTL = 10 * time.Minute

const nonceBytes = 24

var (
	// ErrInvalidState is returned for forged, malformed or expired states.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrProviderMismatch is returned when a state issued for one provider comes back on another.
	ErrProviderMismatch = errors.New("oauth state issued for another provider")
)

type stateClaims struct {
	Provider string `json:"prv"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// Options configures a Codec.
type Options struct {
	Secret string
	TTL    time.Duration    // defaults to DefaultTTL
	Now    func() time.Time // defaults to time.Now
}

// Codec implements ports.StateCodec.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New constructs a Codec. The secret must be non-empty.
func New(opts Options) (*Codec, error) {
	if opts.Secret == "" {
		return nil, errors.New("state secret is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(opts.Secret), ttl: ttl, now: now}, nil
}

// Issue returns a signed state for provider and the fresh nonce it carries.
func (c *Codec) Issue(provider string) (string, string, error) {
	nonce, err := randomString(nonceBytes)
	if err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}
	now := c.now()
	claims := &stateClaims{
		Provider: provider,
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign state: %w", err)
	}
	return state, nonce, nil
}

// Verify checks the signature, expiry and provider binding and returns the nonce.
func (c *Codec) Verify(provider, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if claims.Provider != provider {
		return "", ErrProviderMismatch
	}
	if claims.Nonce == "" {
		return "", ErrInvalidState
	}
	return claims.Nonce, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
