// Package testutil provides testing utilities and helpers for the auth core.
package testutil

import (
	"time"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
)

// SessionBuilder provides a fluent interface for building Session records for testing.
type SessionBuilder struct {
	s domainauth.Session
}

// NewSession creates a new SessionBuilder with sensible defaults ending one hour after TestTime.
func NewSession(userID, grantID string) *SessionBuilder {
	fp := domainauth.NewFingerprint("203.0.113.7",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36")
	return &SessionBuilder{
		s: domainauth.Session{
			UserID:      userID,
			GrantID:     grantID,
			Token:       "token-" + userID + "-" + grantID,
			UserIP:      fp.IP,
			UserAgent:   fp.UserAgent,
			UserOS:      fp.OS(),
			UserBrowser: fp.Browser(),
			CreateTime:  TestTime(),
			EndTime:     TestTime().Add(time.Hour),
		},
	}
}

// WithToken sets the session token.
func (b *SessionBuilder) WithToken(token string) *SessionBuilder {
	b.s.Token = token
	return b
}

// WithDevice sets the fingerprint and derived os/browser columns.
func (b *SessionBuilder) WithDevice(ip, userAgent string) *SessionBuilder {
	fp := domainauth.NewFingerprint(ip, userAgent)
	b.s.UserIP = fp.IP
	b.s.UserAgent = fp.UserAgent
	b.s.UserOS = fp.OS()
	b.s.UserBrowser = fp.Browser()
	return b
}

// WithEndTime sets the session end time.
func (b *SessionBuilder) WithEndTime(end time.Time) *SessionBuilder {
	b.s.EndTime = end
	return b
}

// WithGrantToken sets the delegated provider access token.
func (b *SessionBuilder) WithGrantToken(token string) *SessionBuilder {
	b.s.GrantToken = token
	return b
}

// Build returns the built Session.
func (b *SessionBuilder) Build() domainauth.Session {
	return b.s
}

// ConfirmationBuilder provides a fluent interface for building Confirmation records for testing.
type ConfirmationBuilder struct {
	c domainauth.Confirmation
}

// NewConfirmation creates a new email ConfirmationBuilder active for fifteen minutes after TestTime.
func NewConfirmation(userID, to string) *ConfirmationBuilder {
	return &ConfirmationBuilder{
		c: domainauth.Confirmation{
			UserID:     userID,
			Type:       domainauth.RecipientEmail,
			To:         to,
			Code:       "123456",
			CreateTime: TestTime(),
			EndTime:    TestTime().Add(15 * time.Minute),
		},
	}
}

// WithCode sets the code.
func (b *ConfirmationBuilder) WithCode(code string) *ConfirmationBuilder {
	b.c.Code = code
	return b
}

// WithType sets the recipient type.
func (b *ConfirmationBuilder) WithType(typ domainauth.RecipientType) *ConfirmationBuilder {
	b.c.Type = typ
	return b
}

// WithEndTime sets the end time.
func (b *ConfirmationBuilder) WithEndTime(end time.Time) *ConfirmationBuilder {
	b.c.EndTime = end
	return b
}

// Build returns the built Confirmation.
func (b *ConfirmationBuilder) Build() domainauth.Confirmation {
	return b.c
}
