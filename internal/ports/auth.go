package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/data and internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
)

// Repositories report missing rows as apperrors NotFound and unique violations as apperrors Conflict.

// GrantRepository persists auth_grant rows.
type GrantRepository interface {
	// FindByUserAndSource returns the single grant a user holds for source (used for password grants).
	FindByUserAndSource(ctx context.Context, userID, source string) (*domainauth.Grant, error)
	// FindByUserSourceKey returns the grant matching (user, source, source_key).
	FindByUserSourceKey(ctx context.Context, userID, source, sourceKey string) (*domainauth.Grant, error)
	// FindBySourceKey returns the grant matching (source, source_key), regardless of user.
	FindBySourceKey(ctx context.Context, source, sourceKey string) (*domainauth.Grant, error)
	Insert(ctx context.Context, g domainauth.Grant) (*domainauth.Grant, error)
	UpdateSourceKey(ctx context.Context, id, sourceKey string) error
}

// ConfirmationReset carries the values written when a confirmation is reissued.
type ConfirmationReset struct {
	Code    string
	EndTime time.Time
}

// ConfirmationRepository persists one confirmation kind (auth_confirm or auth_recovery).
type ConfirmationRepository interface {
	FindByUserAndRecipient(ctx context.Context, userID, to string) (*domainauth.Confirmation, error)
	// FindOpenByUserAndCode returns the uncompleted record for (user, code), expired or not.
	FindOpenByUserAndCode(ctx context.Context, userID, code string) (*domainauth.Confirmation, error)
	// CodeInUse reports whether code belongs to any record still active at now.
	CodeInUse(ctx context.Context, code string, now time.Time) (bool, error)
	Insert(ctx context.Context, c domainauth.Confirmation) (*domainauth.Confirmation, error)
	// Reset assigns a fresh code and end time and clears completion.
	Reset(ctx context.Context, id string, r ConfirmationReset) (*domainauth.Confirmation, error)
	// MarkCompleted completes the record only if it is still open and unexpired at at.
	// It reports whether a row was updated.
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
}

// SessionRefresh carries the values written when an existing session row is reused.
type SessionRefresh struct {
	Token      string
	GrantToken string
	EndTime    time.Time
}

// SessionRepository persists auth_session rows.
type SessionRepository interface {
	FindByDevice(ctx context.Context, userID, grantID string, fp domainauth.Fingerprint) (*domainauth.Session, error)
	FindByToken(ctx context.Context, token string) (*domainauth.Session, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	Insert(ctx context.Context, s domainauth.Session) (*domainauth.Session, error)
	Refresh(ctx context.Context, id string, r SessionRefresh) (*domainauth.Session, error)
	SetEndTime(ctx context.Context, id string, end time.Time) error
	// ExpireByUser ends every session of userID still active at at and returns their tokens.
	ExpireByUser(ctx context.Context, userID string, at time.Time) ([]string, error)
}

// ErrSessionNotCached is returned by SessionCache.Get on a miss.
var ErrSessionNotCached = errors.New("session not cached")

// SessionCache fronts token lookups. It is an optimization; callers fall back to the repository.
type SessionCache interface {
	Get(ctx context.Context, token string) (domainauth.Session, error)
	Save(ctx context.Context, sess domainauth.Session) error
	Delete(ctx context.Context, token string) error
}

// User is the minimal capability the core needs from a host user record.
type User interface {
	GetID() string
}

// UserData is the field set used to create a host user: identity keys plus profile fields.
type UserData map[string]string

// UserRepository is implemented by the host for its own user type.
type UserRepository[U User] interface {
	// FindByAnyIdentityKey matches value against every identity key.
	FindByAnyIdentityKey(ctx context.Context, value string) (U, error)
	FindByIdentityKey(ctx context.Context, key, value string) (U, error)
	FindByID(ctx context.Context, id string) (U, error)
	Insert(ctx context.Context, data UserData) (U, error)
	// IdentityKeys lists the unique identifying keys, e.g. email, phone, login.
	IdentityKeys() []string
	// IdentityKeyLabel returns the human-facing label for key, e.g. "Email".
	IdentityKeyLabel(key string) string
}

// UserDeleter is optionally implemented by a UserRepository. When present, a user created by a
// registration whose first grant could not be stored is removed so the identity keys stay free.
type UserDeleter interface {
	Delete(ctx context.Context, id string) error
}

// AuthLinkInput carries the values a provider embeds in its authorization URL.
type AuthLinkInput struct {
	State string
	Nonce string
}

// AccessData is what a provider returns for an exchanged authorization payload.
type AccessData struct {
	AccessToken string
	Expiry      time.Time
	// Nonce is echoed from the verified state so OIDC providers can check the id_token.
	Nonce string
	Extra map[string]any
}

// ProfileData is the provider profile. Attributes uses UserData keys (email, first_name, ...).
type ProfileData struct {
	Attributes map[string]string
	Raw        map[string]any
}

// DelegatedProvider is one external login method.
type DelegatedProvider interface {
	Name() string
	AuthLink(ctx context.Context, in AuthLinkInput) (string, error)
	Exchange(ctx context.Context, payload map[string]string) (AccessData, error)
	FetchProfile(ctx context.Context, access AccessData) (ProfileData, error)
	ProviderUserKey(profile ProfileData) (string, error)
}

// StateCodec issues and verifies the opaque OAuth state round-tripped through a provider.
type StateCodec interface {
	// Issue returns a state bound to provider and the nonce it carries.
	Issue(provider string) (state, nonce string, err error)
	// Verify checks state against provider and returns its nonce.
	Verify(provider, state string) (nonce string, err error)
}

// RequestContext is the boundary the orchestrator reads the device from and writes cookies to.
type RequestContext interface {
	ClientIP() string
	UserAgent() string
	Cookie(name string) (string, bool)
	SetCookie(c domainauth.Cookie)
}

// CodeDelivery describes a code to be delivered out of band.
type CodeDelivery struct {
	Kind domainauth.ConfirmationKind
	Type domainauth.RecipientType
	To   string
	Code string
}

// CodeSender delivers codes to recipients. Hosts supply the transport.
type CodeSender interface {
	Send(ctx context.Context, d CodeDelivery) error
}
