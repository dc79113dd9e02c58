package service

import (
	"context"
	"fmt"
	"time"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// CodeRequestInput names the address a code is sent to. Type is optional and must agree with To.
type CodeRequestInput struct {
	To   string
	Type domainauth.RecipientType
}

// CodeLoginInput completes a code login.
type CodeLoginInput struct {
	To   string
	Type domainauth.RecipientType
	Code string
}

// ConfirmInput completes an address confirmation for the current user.
type ConfirmInput struct {
	To   string
	Type domainauth.RecipientType
	Code string
}

// RequestLoginCode finds or creates the user owning in.To and issues or resends its login code.
// The code is returned so the host can deliver it; the configured CodeSender is also invoked.
func (s *AuthService[U]) RequestLoginCode(ctx context.Context, in CodeRequestInput) (issued *CodeIssued, err error) {
	defer func(start time.Time) { s.observe(ctx, FlowCodeRequest, domainauth.SourceCode, start, err) }(time.Now())

	if !s.grants.Supports(domainauth.SourceCode) {
		return nil, apperrors.MethodNotSupported(domainauth.SourceCode)
	}
	to, typ, err := validateRecipient(in.To, in.Type)
	if err != nil {
		return nil, err
	}
	key, err := s.identityKeyFor(typ)
	if err != nil {
		return nil, err
	}
	user, err := s.findOrCreateUserByRecipient(ctx, key, to)
	if err != nil {
		return nil, err
	}

	c, err := s.confirms.IssueOrResend(ctx, user.GetID(), to, typ)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, c, domainauth.KindConfirm)
}

// LoginByCode consumes a login code, binds a code grant to the address and starts a session.
func (s *AuthService[U]) LoginByCode(
	ctx context.Context,
	rc ports.RequestContext,
	in CodeLoginInput,
) (res *LoginResult[U], err error) {
	defer func(start time.Time) { s.observe(ctx, FlowCodeLogin, domainauth.SourceCode, start, err) }(time.Now())

	if !s.grants.Supports(domainauth.SourceCode) {
		return nil, apperrors.MethodNotSupported(domainauth.SourceCode)
	}
	to, typ, err := validateRecipient(in.To, in.Type)
	if err != nil {
		return nil, err
	}
	if err := s.validateCode(in.Code); err != nil {
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

	if _, err := s.confirms.VerifyAndComplete(ctx, user.GetID(), to, in.Code); err != nil {
		return nil, err
	}
	grant, err := s.grants.FindOrCreateCodeGrant(ctx, user.GetID(), to)
	if err != nil {
		return nil, fmt.Errorf("code grant: %w", err)
	}
	sess, err := s.startSession(ctx, rc, grant, "")
	if err != nil {
		return nil, err
	}
	return &LoginResult[U]{User: user, Session: sess}, nil
}

// RequestConfirmation issues or resends a confirmation code for an address of the current user.
// The address must be one of that user's identity keys.
func (s *AuthService[U]) RequestConfirmation(
	ctx context.Context,
	rc ports.RequestContext,
	in CodeRequestInput,
) (issued *CodeIssued, err error) {
	defer func(start time.Time) { s.observe(ctx, FlowConfirmRequest, "", start, err) }(time.Now())

	sess, err := s.currentSession(ctx, rc)
	if err != nil {
		return nil, err
	}
	to, typ, err := validateRecipient(in.To, in.Type)
	if err != nil {
		return nil, err
	}
	if err := s.ensureRecipientOwner(ctx, sess.UserID, to, typ); err != nil {
		return nil, err
	}
	c, err := s.confirms.IssueOrResend(ctx, sess.UserID, to, typ)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, c, domainauth.KindConfirm)
}

// Confirm consumes a confirmation code issued to the current user.
func (s *AuthService[U]) Confirm(
	ctx context.Context,
	rc ports.RequestContext,
	in ConfirmInput,
) (c *domainauth.Confirmation, err error) {
	defer func(start time.Time) { s.observe(ctx, FlowConfirm, "", start, err) }(time.Now())

	sess, err := s.currentSession(ctx, rc)
	if err != nil {
		return nil, err
	}
	to, typ, err := validateRecipient(in.To, in.Type)
	if err != nil {
		return nil, err
	}
	if err := s.validateCode(in.Code); err != nil {
		return nil, err
	}
	if err := s.ensureRecipientOwner(ctx, sess.UserID, to, typ); err != nil {
		return nil, err
	}
	return s.confirms.VerifyAndComplete(ctx, sess.UserID, to, in.Code)
}

// ensureRecipientOwner resolves the user owning to and requires it to be userID. Addresses owned
// by nobody or by another user both fail with user_not_found.
func (s *AuthService[U]) ensureRecipientOwner(ctx context.Context, userID, to string, typ domainauth.RecipientType) error {
	key, err := s.identityKeyFor(typ)
	if err != nil {
		return err
	}
	owner, err := s.findUserByRecipient(ctx, key, to)
	if err != nil {
		return err
	}
	if owner.GetID() != userID {
		s.logger.WarnContext(ctx, "confirmation address owned by another user", "user_id", userID, "type", string(typ))
		return apperrors.UserNotFound()
	}
	return nil
}
