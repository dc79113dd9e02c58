// Package mmkauth exposes the pluggable authentication core to host applications.
//
// A host supplies its own user record type and a UserRepository for it; the core
// owns grants, confirmation codes, recovery codes and sessions. Postgres-backed
// stores are built by NewPostgresStores, and the orchestrator by New.
package mmkauth

import (
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-auth/config"
	redisadapter "github.com/target/mmk-auth/internal/adapters/redis"
	"github.com/target/mmk-auth/internal/data"
	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/service"
)

// AuthService runs every login flow for the host user type U.
type AuthService[U ports.User] = service.AuthService[U]

// Options groups the dependencies New needs.
type Options[U ports.User] = service.AuthServiceOptions[U]

// LoginResult is returned by every flow that establishes a session.
type LoginResult[U ports.User] = service.LoginResult[U]

// UserRepository is implemented by the host for its own user type.
type UserRepository[U ports.User] = ports.UserRepository[U]

type (
	Stores        = service.AuthStores
	Collaborators = service.AuthCollaborators
	Runtime       = service.AuthRuntime
	CodeIssued    = service.CodeIssued
	Config        = config.AuthConfig
)

// Flow inputs.
type (
	RegisterInput        = service.RegisterInput
	LoginInput           = service.LoginInput
	ChangePasswordInput  = service.ChangePasswordInput
	RecoveryRequestInput = service.RecoveryRequestInput
	RecoverInput         = service.RecoverInput
	CodeRequestInput     = service.CodeRequestInput
	CodeLoginInput       = service.CodeLoginInput
	ConfirmInput         = service.ConfirmInput
)

// Host-facing ports.
type (
	User              = ports.User
	UserData          = ports.UserData
	UserDeleter       = ports.UserDeleter
	DelegatedProvider = ports.DelegatedProvider
	StateCodec        = ports.StateCodec
	CodeSender        = ports.CodeSender
	CodeDelivery      = ports.CodeDelivery
	RequestContext    = ports.RequestContext
	Session           = domainauth.Session
	Cookie            = domainauth.Cookie
)

// Error is the structured error every flow returns; Code identifies the failure.
type (
	Error     = apperrors.AppError
	ErrorCode = apperrors.ErrorCode
)

// Failure codes a host can branch on.
const (
	ErrMethodNotSupported         = apperrors.ErrCodeMethodNotSupported
	ErrUserNotFound               = apperrors.ErrCodeUserNotFound
	ErrUserAlreadyExists          = apperrors.ErrCodeUserAlreadyExists
	ErrInvalidCredentials         = apperrors.ErrCodeInvalidCredentials
	ErrPasswordGrantNotFound      = apperrors.ErrCodePasswordGrantNotFound
	ErrPasswordGrantAlreadyExists = apperrors.ErrCodePasswordGrantAlreadyExists
	ErrIncorrectOldPassword       = apperrors.ErrCodeIncorrectOldPassword
	ErrCodeNotActive              = apperrors.ErrCodeCodeNotActive
	ErrCodeOutdated               = apperrors.ErrCodeCodeOutdated
	ErrGrantNotFound              = apperrors.ErrCodeGrantNotFound
	ErrGenerationExhausted        = apperrors.ErrCodeGenerationExhausted
	ErrProviderExchangeFailed     = apperrors.ErrCodeProviderExchangeFailed
	ErrProviderResponseInvalid    = apperrors.ErrCodeProviderResponseInvalid
	ErrConfigurationInvalid       = apperrors.ErrCodeConfigurationInvalid
	ErrUnauthenticated            = apperrors.ErrCodeUnauthenticated
	ErrValidation                 = apperrors.ErrCodeValidation
)

// DefaultConfig returns the defaults applied when a config field is unset.
func DefaultConfig() Config { return config.DefaultAuthConfig() }

// New builds the orchestrator. Configuration problems surface here, not on first use.
func New[U User](opts Options[U]) (*AuthService[U], error) {
	return service.NewAuthService(opts)
}

// CodeOf returns the failure code carried by err, or "" for foreign errors.
func CodeOf(err error) ErrorCode { return apperrors.GetCode(err) }

// PostgresStoresOptions configures NewPostgresStores.
type PostgresStoresOptions struct {
	DB *sql.DB // Required: database with the auth tables migrated
	// Redis enables the session cache when non-nil.
	Redis       redis.UniversalClient
	RedisPrefix string
	Logger      *slog.Logger
}

// NewPostgresStores returns the auth-owned stores backed by Postgres and, optionally, Redis.
func NewPostgresStores(opts PostgresStoresOptions) Stores {
	stores := Stores{
		Grants:     data.NewGrantRepo(opts.DB),
		Confirms:   data.NewConfirmationRepo(opts.DB, domainauth.KindConfirm),
		Recoveries: data.NewConfirmationRepo(opts.DB, domainauth.KindRecovery),
		Sessions:   data.NewSessionRepo(opts.DB),
	}
	if opts.Redis != nil {
		stores.SessionCache = redisadapter.NewSessionCacheWithPrefix(opts.Redis, opts.RedisPrefix)
	}
	return stores
}
