package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/mmk-auth/config"
	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/observability/metrics"
	"github.com/target/mmk-auth/internal/observability/statsd"
	"github.com/target/mmk-auth/internal/ports"
)

// Flow names used for metrics and logs.
const (
	FlowPasswordRegister = "password_register"
	FlowPasswordLogin    = "password_login"
	FlowPasswordChange   = "password_change"
	FlowCodeRequest      = "code_request"
	FlowCodeLogin        = "code_login"
	FlowConfirmRequest   = "confirm_request"
	FlowConfirm          = "confirm"
	FlowDelegatedLink    = "delegated_link"
	FlowDelegatedLogin   = "delegated_login"
	FlowRecoveryRequest  = "recovery_request"
	FlowRecover          = "recover"
	FlowLogout           = "logout"
)

// AuthStores groups the repositories the orchestrator composes.
type AuthStores struct {
	Grants       ports.GrantRepository        // Required
	Confirms     ports.ConfirmationRepository // Required: auth_confirm
	Recoveries   ports.ConfirmationRepository // Required: auth_recovery
	Sessions     ports.SessionRepository      // Required
	SessionCache ports.SessionCache           // Optional
}

// AuthCollaborators groups the external collaborators of the orchestrator.
type AuthCollaborators struct {
	Providers  []ports.DelegatedProvider // Optional: one per delegated method
	StateCodec ports.StateCodec          // Required when Providers is non-empty
	Sender     ports.CodeSender          // Optional: out-of-band code delivery
}

// AuthRuntime carries ambient dependencies.
type AuthRuntime struct {
	Logger  *slog.Logger     // Optional: structured logger
	Metrics statsd.Sink      // Optional: flow metrics sink
	Tokens  *TokenGenerator  // Optional: defaults to crypto/rand
	Now     func() time.Time // Optional: defaults to time.Now
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions[U ports.User] struct {
	Users         ports.UserRepository[U] // Required: host user records
	Stores        AuthStores
	Collaborators AuthCollaborators
	Config        config.AuthConfig
	Runtime       AuthRuntime
}

// LoginResult is returned by every flow that establishes a session.
type LoginResult[U ports.User] struct {
	User    U
	Session *domainauth.Session
}

// CodeIssued describes a code handed to the delivery side channel.
type CodeIssued struct {
	UserID  string
	Kind    domainauth.ConfirmationKind
	Type    domainauth.RecipientType
	To      string
	Code    string
	EndTime time.Time
}

// AuthService sequences the grant, confirmation and session components for each login flow.
// U is the host's user record type.
type AuthService[U ports.User] struct {
	users      ports.UserRepository[U]
	grants     *GrantStore
	confirms   *ConfirmationService
	recoveries *ConfirmationService
	sessions   *SessionManager
	providers  map[string]ports.DelegatedProvider
	state      ports.StateCodec
	sender     ports.CodeSender
	cfg        config.AuthConfig
	metrics    statsd.Sink
	now        func() time.Time
	logger     *slog.Logger
}

// NewAuthService validates the configuration and builds the components behind the orchestrator.
func NewAuthService[U ports.User](opts AuthServiceOptions[U]) (*AuthService[U], error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if err := requireStores(opts.Stores); err != nil {
		return nil, err
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := make(map[string]ports.DelegatedProvider, len(opts.Collaborators.Providers))
	sources := make([]string, 0, len(opts.Collaborators.Providers))
	for _, p := range opts.Collaborators.Providers {
		name := p.Name()
		if _, dup := providers[name]; dup {
			return nil, apperrors.ConfigurationInvalid("providers", fmt.Sprintf("duplicate provider %q", name))
		}
		providers[name] = p
		sources = append(sources, name)
	}
	if len(providers) > 0 && opts.Collaborators.StateCodec == nil {
		return nil, apperrors.ConfigurationInvalid("state_secret", "a state codec is required for delegated providers")
	}

	rt := opts.Runtime
	if rt.Now == nil {
		rt.Now = time.Now
	}
	if rt.Tokens == nil {
		rt.Tokens = NewTokenGenerator()
	}
	logger := rt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	grants, err := NewGrantStore(GrantStoreOptions{
		Repo: opts.Stores.Grants,
		Config: GrantStoreConfig{
			PasswordEnabled:  cfg.PasswordEnabled,
			CodeEnabled:      cfg.CodeEnabled,
			BcryptCost:       cfg.BcryptCost,
			DelegatedSources: sources,
			Now:              rt.Now,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("grant store: %w", err)
	}

	newConfirmations := func(kind domainauth.ConfirmationKind, repo ports.ConfirmationRepository) (*ConfirmationService, error) {
		return NewConfirmationService(ConfirmationServiceOptions{
			Repo: repo,
			Config: ConfirmationConfig{
				Kind:       kind,
				CodeLength: cfg.CodeLength,
				Lifetime:   cfg.CodeLifetime(),
				MaxTries:   cfg.TokenGenerateMaxTries,
				Tokens:     rt.Tokens,
				Now:        rt.Now,
			},
			Logger: logger,
		})
	}
	confirms, err := newConfirmations(domainauth.KindConfirm, opts.Stores.Confirms)
	if err != nil {
		return nil, fmt.Errorf("confirmation service: %w", err)
	}
	recoveries, err := newConfirmations(domainauth.KindRecovery, opts.Stores.Recoveries)
	if err != nil {
		return nil, fmt.Errorf("recovery service: %w", err)
	}

	sessions, err := NewSessionManager(SessionManagerOptions{
		Stores: SessionStores{Repo: opts.Stores.Sessions, Cache: opts.Stores.SessionCache},
		Config: SessionConfig{
			TokenLength: cfg.SessionTokenLength,
			Lifetime:    cfg.SessionLifetime(),
			MaxTries:    cfg.TokenGenerateMaxTries,
			Tokens:      rt.Tokens,
			Now:         rt.Now,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	return &AuthService[U]{
		users:      opts.Users,
		grants:     grants,
		confirms:   confirms,
		recoveries: recoveries,
		sessions:   sessions,
		providers:  providers,
		state:      opts.Collaborators.StateCodec,
		sender:     opts.Collaborators.Sender,
		cfg:        cfg,
		metrics:    rt.Metrics,
		now:        rt.Now,
		logger:     logger.With("component", "auth_service"),
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService[U ports.User](opts AuthServiceOptions[U]) *AuthService[U] {
	svc, err := NewAuthService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

func requireStores(s AuthStores) error {
	switch {
	case s.Grants == nil:
		return errors.New("GrantRepository is required")
	case s.Confirms == nil:
		return errors.New("confirmation repository is required")
	case s.Recoveries == nil:
		return errors.New("recovery repository is required")
	case s.Sessions == nil:
		return errors.New("SessionRepository is required")
	}
	return nil
}

// SupportedMethods lists the enabled login methods.
func (s *AuthService[U]) SupportedMethods() []string {
	return s.grants.SupportedMethods()
}

// Config returns the configuration the service was built with.
func (s *AuthService[U]) Config() config.AuthConfig {
	return s.cfg
}

// observe emits the flow metric and logs failures by code. Secrets never reach the log.
func (s *AuthService[U]) observe(ctx context.Context, flow, method string, start time.Time, err error) {
	metrics.EmitAuthFlow(s.metrics, metrics.AuthFlowMetric{
		Flow:     flow,
		Method:   method,
		Result:   metrics.ResultFor(err),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "auth flow failed",
			"flow", flow, "method", method, "code", string(apperrors.GetCode(err)))
	}
}

func (s *AuthService[U]) fingerprint(rc ports.RequestContext) domainauth.Fingerprint {
	return domainauth.NewFingerprint(rc.ClientIP(), rc.UserAgent())
}

func (s *AuthService[U]) setSessionCookie(rc ports.RequestContext, sess *domainauth.Session) {
	rc.SetCookie(domainauth.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.Token,
		Expires:  sess.EndTime,
		Domain:   s.cfg.CookieDomain,
		Path:     s.cfg.CookiePath,
		HTTPOnly: true,
	})
}

func (s *AuthService[U]) clearSessionCookie(rc ports.RequestContext) {
	rc.SetCookie(domainauth.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0).UTC(),
		Domain:   s.cfg.CookieDomain,
		Path:     s.cfg.CookiePath,
		HTTPOnly: true,
	})
}

// startSession creates or refreshes the device session for grant and mirrors it into the cookie.
func (s *AuthService[U]) startSession(
	ctx context.Context,
	rc ports.RequestContext,
	grant *domainauth.Grant,
	grantToken string,
) (*domainauth.Session, error) {
	sess, err := s.sessions.CreateOrRefresh(ctx, grant, s.fingerprint(rc), grantToken)
	if err != nil {
		return nil, err
	}
	s.setSessionCookie(rc, sess)
	return sess, nil
}

// currentSession resolves the session behind the request cookie, or fails with unauthenticated.
func (s *AuthService[U]) currentSession(ctx context.Context, rc ports.RequestContext) (*domainauth.Session, error) {
	token, ok := rc.Cookie(s.cfg.CookieName)
	if !ok || token == "" {
		return nil, apperrors.Unauthenticated()
	}
	sess, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperrors.Unauthenticated()
	}
	return sess, nil
}

// normalizeIdentity normalizes value for the identity key it is stored under.
func normalizeIdentity(key, value string) string {
	switch key {
	case "email":
		return domainauth.NormalizeEmail(value)
	case "phone":
		return domainauth.NormalizePhone(value)
	default:
		return strings.TrimSpace(value)
	}
}

// normalizeLookup normalizes a value that may match any identity key.
func normalizeLookup(value string) string {
	switch {
	case domainauth.IsEmail(value):
		return domainauth.NormalizeEmail(value)
	case domainauth.IsPhone(value):
		return domainauth.NormalizePhone(value)
	default:
		return strings.TrimSpace(value)
	}
}

// identityKeyFor maps a recipient type onto the user repository's identity key.
func (s *AuthService[U]) identityKeyFor(typ domainauth.RecipientType) (string, error) {
	key := string(typ)
	for _, k := range s.users.IdentityKeys() {
		if k == key {
			return key, nil
		}
	}
	return "", apperrors.ValidationField("to", fmt.Sprintf("%s addresses are not accepted.", key))
}

// discardUser removes a user created earlier in the same flow whose grant could not be stored.
// Repositories without ports.UserDeleter keep the row.
func (s *AuthService[U]) discardUser(ctx context.Context, user U) {
	d, ok := s.users.(ports.UserDeleter)
	if !ok {
		s.logger.WarnContext(ctx, "user left without grant", "user_id", user.GetID())
		return
	}
	if err := d.Delete(context.WithoutCancel(ctx), user.GetID()); err != nil {
		s.logger.ErrorContext(ctx, "discard user failed", "user_id", user.GetID(), "error", err)
		return
	}
	s.logger.InfoContext(ctx, "user discarded", "user_id", user.GetID())
}

// findUserByRecipient returns the user owning to, or user_not_found.
func (s *AuthService[U]) findUserByRecipient(ctx context.Context, key, to string) (U, error) {
	user, err := s.users.FindByIdentityKey(ctx, key, to)
	if err != nil {
		var zero U
		if apperrors.IsNotFound(err) {
			return zero, apperrors.UserNotFound()
		}
		return zero, fmt.Errorf("find user by %s: %w", key, err)
	}
	return user, nil
}

// findOrCreateUserByRecipient returns the user owning to, creating a bare user on first contact.
func (s *AuthService[U]) findOrCreateUserByRecipient(ctx context.Context, key, to string) (U, error) {
	var zero U
	user, err := s.users.FindByIdentityKey(ctx, key, to)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsNotFound(err) {
		return zero, fmt.Errorf("find user by %s: %w", key, err)
	}

	user, err = s.users.Insert(ctx, ports.UserData{key: to})
	if err == nil {
		s.logger.InfoContext(ctx, "user created", "user_id", user.GetID(), "key", key)
		return user, nil
	}
	if !apperrors.IsConflict(err) {
		return zero, fmt.Errorf("insert user: %w", err)
	}
	user, err = s.users.FindByIdentityKey(ctx, key, to)
	if err != nil {
		return zero, fmt.Errorf("find user by %s after conflict: %w", key, err)
	}
	return user, nil
}

// deliver hands the code to the configured sender, if any.
func (s *AuthService[U]) deliver(ctx context.Context, c *domainauth.Confirmation, kind domainauth.ConfirmationKind) (*CodeIssued, error) {
	issued := &CodeIssued{
		UserID:  c.UserID,
		Kind:    kind,
		Type:    c.Type,
		To:      c.To,
		Code:    c.Code,
		EndTime: c.EndTime,
	}
	if s.sender == nil {
		return issued, nil
	}
	err := s.sender.Send(ctx, ports.CodeDelivery{Kind: kind, Type: c.Type, To: c.To, Code: c.Code})
	if err != nil {
		return nil, fmt.Errorf("deliver %s code: %w", kind, err)
	}
	return issued, nil
}
