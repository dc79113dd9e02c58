package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/validation"
)

// RegisterInput is the password registration payload. Fields holds identity keys and profile fields.
type RegisterInput struct {
	Fields         ports.UserData
	Password       string
	PasswordRepeat string
}

// LoginInput is the password login payload. Identity may match any identity key.
type LoginInput struct {
	Identity string
	Password string
}

// ChangePasswordInput is the payload for changing the current user's password.
type ChangePasswordInput struct {
	OldPassword    string
	Password       string
	PasswordRepeat string
}

// RecoveryRequestInput names the address a recovery code is sent to.
type RecoveryRequestInput struct {
	To   string
	Type domainauth.RecipientType
}

// RecoverInput completes a recovery with a code and the new password.
type RecoverInput struct {
	To             string
	Type           domainauth.RecipientType
	Code           string
	Password       string
	PasswordRepeat string
}

// RegisterByPassword creates a user and its password grant. No session is started.
func (s *AuthService[U]) RegisterByPassword(ctx context.Context, in RegisterInput) (user U, err error) {
	defer func(start time.Time) { s.observe(ctx, FlowPasswordRegister, domainauth.SourcePassword, start, err) }(time.Now())

	var zero U
	if !s.grants.Supports(domainauth.SourcePassword) {
		return zero, apperrors.MethodNotSupported(domainauth.SourcePassword)
	}
	data, err := s.validateRegistration(in)
	if err != nil {
		return zero, err
	}
	if err := s.ensureIdentityKeysFree(ctx, data); err != nil {
		return zero, err
	}

	user, err = s.insertUser(ctx, data)
	if err != nil {
		return zero, err
	}
	if _, err := s.grants.CreatePasswordGrant(ctx, user.GetID(), in.Password); err != nil {
		s.discardUser(ctx, user)
		return zero, fmt.Errorf("create password grant: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.GetID(), "method", domainauth.SourcePassword)
	return user, nil
}

// ensureIdentityKeysFree checks every present identity key concurrently and reports the first taken
// key in IdentityKeys order.
func (s *AuthService[U]) ensureIdentityKeysFree(ctx context.Context, data ports.UserData) error {
	keys := s.users.IdentityKeys()
	taken := make([]bool, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		value := data[key]
		if value == "" {
			continue
		}
		g.Go(func() error {
			_, err := s.users.FindByIdentityKey(gctx, key, value)
			switch {
			case err == nil:
				taken[i] = true
				return nil
			case apperrors.IsNotFound(err):
				return nil
			default:
				return fmt.Errorf("check %s uniqueness: %w", key, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, key := range keys {
		if taken[i] {
			return apperrors.UserAlreadyExists(s.users.IdentityKeyLabel(key))
		}
	}
	return nil
}

// insertUser creates the user, mapping a unique violation on an identity key to user_already_exists.
func (s *AuthService[U]) insertUser(ctx context.Context, data ports.UserData) (U, error) {
	user, err := s.users.Insert(ctx, data)
	if err == nil {
		return user, nil
	}
	var zero U
	if apperrors.IsConflict(err) {
		key := apperrors.GetField(err)
		if key == "" {
			key = s.primaryIdentityKey()
		}
		return zero, apperrors.UserAlreadyExists(s.users.IdentityKeyLabel(key))
	}
	return zero, fmt.Errorf("insert user: %w", err)
}

// LoginByPassword verifies the password of the user matching in.Identity and starts a session.
func (s *AuthService[U]) LoginByPassword(
	ctx context.Context,
	rc ports.RequestContext,
	in LoginInput,
) (res *LoginResult[U], err error) {
	defer func(start time.Time) { s.observe(ctx, FlowPasswordLogin, domainauth.SourcePassword, start, err) }(time.Now())

	if !s.grants.Supports(domainauth.SourcePassword) {
		return nil, apperrors.MethodNotSupported(domainauth.SourcePassword)
	}
	if err := s.validateLogin(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByAnyIdentityKey(ctx, normalizeLookup(in.Identity))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.UserNotFound()
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	grant, err := s.grants.FindPasswordGrant(ctx, user.GetID())
	if err != nil {
		return nil, err
	}
	if !s.grants.VerifyPassword(grant, in.Password) {
		return nil, apperrors.InvalidCredentials()
	}

	sess, err := s.startSession(ctx, rc, grant, "")
	if err != nil {
		return nil, err
	}
	return &LoginResult[U]{User: user, Session: sess}, nil
}

// ChangePassword changes the password of the user behind the current session.
func (s *AuthService[U]) ChangePassword(ctx context.Context, rc ports.RequestContext, in ChangePasswordInput) (err error) {
	defer func(start time.Time) { s.observe(ctx, FlowPasswordChange, domainauth.SourcePassword, start, err) }(time.Now())

	if !s.grants.Supports(domainauth.SourcePassword) {
		return apperrors.MethodNotSupported(domainauth.SourcePassword)
	}
	sess, err := s.currentSession(ctx, rc)
	if err != nil {
		return err
	}
	if err := s.validatePasswordChange(in); err != nil {
		return err
	}
	grant, err := s.grants.FindPasswordGrant(ctx, sess.UserID)
	if err != nil {
		return err
	}
	return s.grants.ChangePassword(ctx, grant, in.OldPassword, in.Password)
}

// RequestRecovery issues or resends a recovery code to an address of an existing user.
func (s *AuthService[U]) RequestRecovery(ctx context.Context, in RecoveryRequestInput) (issued *CodeIssued, err error) {
	defer func(start time.Time) { s.observe(ctx, FlowRecoveryRequest, domainauth.SourcePassword, start, err) }(time.Now())

	if !s.grants.Supports(domainauth.SourcePassword) {
		return nil, apperrors.MethodNotSupported(domainauth.SourcePassword)
	}
	to, typ, err := validateRecipient(in.To, in.Type)
	if err != nil {
		return nil, err
	}
	key, err := s.identityKeyFor(typ)
	if err != nil {
		return nil, err
	}
	user, err := s.findUserByRecipient(ctx, key, to)
	if err != nil {
		return nil, err
	}

	c, err := s.recoveries.IssueOrResend(ctx, user.GetID(), to, typ)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, c, domainauth.KindRecovery)
}

// Recover consumes a recovery code and overwrites or creates the password grant. No session is started.
func (s *AuthService[U]) Recover(ctx context.Context, in RecoverInput) (err error) {
	defer func(start time.Time) { s.observe(ctx, FlowRecover, domainauth.SourcePassword, start, err) }(time.Now())

	if !s.grants.Supports(domainauth.SourcePassword) {
		return apperrors.MethodNotSupported(domainauth.SourcePassword)
	}
	to, typ, err := validateRecipient(in.To, in.Type)
	if err != nil {
		return err
	}
	fv := validation.New().Validate("code", in.Code, validation.Required("Code"), validation.Digits("Code", s.cfg.CodeLength))
	if err := s.validateNewPassword(fv, in.Password, in.PasswordRepeat).Err(); err != nil {
		return err
	}
	key, err := s.identityKeyFor(typ)
	if err != nil {
		return err
	}
	user, err := s.findUserByRecipient(ctx, key, to)
	if err != nil {
		return err
	}

	if _, err := s.recoveries.VerifyAndComplete(ctx, user.GetID(), to, in.Code); err != nil {
		return err
	}
	if _, err := s.grants.SetPassword(ctx, user.GetID(), in.Password); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	s.logger.InfoContext(ctx, "password recovered", "user_id", user.GetID(), "type", string(typ))
	return nil
}

// SetPassword overwrites or creates the password of userID. Used by administrative tooling.
func (s *AuthService[U]) SetPassword(ctx context.Context, userID, password string) error {
	if err := s.validateNewPassword(validation.New(), password, password).Err(); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.UserNotFound()
		}
		return fmt.Errorf("find user: %w", err)
	}
	_, err := s.grants.SetPassword(ctx, userID, password)
	return err
}
