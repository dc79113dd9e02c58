package auth

// Package auth contains domain-level types for grants, confirmations and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Built-in grant sources. Every other source names a delegated provider.
const (
	SourcePassword = "password"
	SourceCode     = "code"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// IsDelegatedSource reports whether source names a delegated provider rather than a built-in method.
func IsDelegatedSource(source string) bool {
	return source != "" && source != SourcePassword && source != SourceCode
}

// Grant binds a user to one authentication method.
// SourceKey holds the password hash, the code recipient, or the provider-side user key.
type Grant struct {
	ID         string    `json:"id"          db:"id"`
	UserID     string    `json:"user_id"     db:"user_id"`
	Source     string    `json:"source"      db:"source"`
	SourceKey  string    `json:"-"           db:"source_key"`
	CreateTime time.Time `json:"create_time" db:"create_time"`
}

// IsPassword reports whether the grant stores a password hash.
func (g Grant) IsPassword() bool { return g.Source == SourcePassword }

// IsCode reports whether the grant is bound to a code recipient.
func (g Grant) IsCode() bool { return g.Source == SourceCode }

// IsDelegated reports whether the grant links a delegated provider identity.
func (g Grant) IsDelegated() bool { return IsDelegatedSource(g.Source) }

// Cookie describes the session cookie a RequestContext should set.
// A zero Expires means a session cookie; a past Expires clears it.
type Cookie struct {
	Name     string
	Value    string
	Expires  time.Time
	Domain   string
	Path     string
	HTTPOnly bool
}

// Expired reports whether the cookie instructs the client to drop it.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}
