package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

// Alphabets used for generated secrets.
const (
	// AlphabetAlphanumeric is used for session tokens.
	AlphabetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// AlphabetDigits is used for confirmation and login codes.
	AlphabetDigits = "0123456789"
)

// ExistsFunc reports whether a candidate is already taken in the target storage scope.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// UniqueTokenRequest describes one bounded uniqueness search.
type UniqueTokenRequest struct {
	Alphabet string
	Length   int
	MaxTries int
	Exists   ExistsFunc
}

// TokenGenerator produces random strings from an alphabet using a cryptographic source.
type TokenGenerator struct {
	rand io.Reader
}

// NewTokenGenerator returns a generator backed by crypto/rand.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{rand: rand.Reader}
}

// NewTokenGeneratorWithReader returns a generator reading randomness from r.
func NewTokenGeneratorWithReader(r io.Reader) *TokenGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &TokenGenerator{rand: r}
}

// Generate returns a random string of length characters drawn uniformly from alphabet.
func (g *TokenGenerator) Generate(alphabet string, length int) (string, error) {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return "", apperrors.ConfigurationInvalid("alphabet", "must have between 2 and 256 characters")
	}
	if length <= 0 {
		return "", apperrors.ConfigurationInvalid("length", "must be positive")
	}

	n := len(alphabet)
	// Bytes at or above limit are rejected so every symbol is equally likely.
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2+1)
	for len(out) < length {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// GenerateUnique draws candidates until Exists reports one free, trying at most MaxTries times.
// It fails with generation_exhausted when every candidate collides.
func (g *TokenGenerator) GenerateUnique(ctx context.Context, req UniqueTokenRequest) (string, error) {
	if req.MaxTries <= 0 {
		return "", apperrors.ConfigurationInvalid("max_tries", "must be positive")
	}
	if req.Exists == nil {
		return "", apperrors.ConfigurationInvalid("exists", "uniqueness check is required")
	}

	for range req.MaxTries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.Generate(req.Alphabet, req.Length)
		if err != nil {
			return "", err
		}
		taken, err := req.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check token uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.GenerationExhausted(req.MaxTries)
}
