package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// ConfirmationConfig controls code shape and lifetime for one confirmation kind.
type ConfirmationConfig struct {
	Kind       domainauth.ConfirmationKind
	CodeLength int
	Lifetime   time.Duration
	MaxTries   int
	// Tokens overrides the code generator; nil means crypto/rand.
	Tokens *TokenGenerator
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// ConfirmationServiceOptions groups dependencies for ConfirmationService.
type ConfirmationServiceOptions struct {
	Repo   ports.ConfirmationRepository // Required: auth_confirm or auth_recovery persistence
	Config ConfirmationConfig
	Logger *slog.Logger // Optional: structured logger
}

// ConfirmationService issues and verifies short-lived codes bound to a recipient address.
// Recovery runs the same state machine against its own repository.
type ConfirmationService struct {
	repo   ports.ConfirmationRepository
	cfg    ConfirmationConfig
	tokens *TokenGenerator
	now    func() time.Time
	logger *slog.Logger
}

// NewConfirmationService constructs a new ConfirmationService.
func NewConfirmationService(opts ConfirmationServiceOptions) (*ConfirmationService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ConfirmationRepository is required")
	}
	cfg := opts.Config
	if cfg.Kind == "" {
		cfg.Kind = domainauth.KindConfirm
	}
	switch {
	case cfg.CodeLength <= 0:
		return nil, apperrors.ConfigurationInvalid("code_length", "must be positive")
	case cfg.Lifetime <= 0:
		return nil, apperrors.ConfigurationInvalid("code_alive_seconds", "must be positive")
	case cfg.MaxTries <= 0:
		return nil, apperrors.ConfigurationInvalid("token_generate_max_tries", "must be positive")
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewTokenGenerator()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfirmationService{
		repo:   opts.Repo,
		cfg:    cfg,
		tokens: tokens,
		now:    now,
		logger: logger.With("component", "confirmation_service", "kind", string(cfg.Kind)),
	}, nil
}

// MustNewConfirmationService constructs a new ConfirmationService and panics on error.
func MustNewConfirmationService(opts ConfirmationServiceOptions) *ConfirmationService {
	svc, err := NewConfirmationService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Kind returns the confirmation kind this service manages.
func (s *ConfirmationService) Kind() domainauth.ConfirmationKind {
	return s.cfg.Kind
}

// IssueOrResend returns the code for (userID, to). An active record is returned unchanged,
// a completed or outdated one is reset in place, and a missing one is inserted.
// An empty typ is classified from to.
func (s *ConfirmationService) IssueOrResend(
	ctx context.Context,
	userID, to string,
	typ domainauth.RecipientType,
) (*domainauth.Confirmation, error) {
	if typ == "" {
		classified, err := domainauth.ClassifyRecipient(to)
		if err != nil {
			return nil, err
		}
		typ = classified
	}

	c, err := s.issue(ctx, userID, to, typ)
	if apperrors.IsConflict(err) {
		// Another request inserted the row first; the second pass finds it.
		c, err = s.issue(ctx, userID, to, typ)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConfirmationService) issue(
	ctx context.Context,
	userID, to string,
	typ domainauth.RecipientType,
) (*domainauth.Confirmation, error) {
	now := s.now()

	existing, err := s.repo.FindByUserAndRecipient(ctx, userID, to)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("find %s: %w", s.cfg.Kind, err)
	}

	if existing != nil && err == nil {
		if existing.IsActive(now) {
			s.logger.DebugContext(ctx, "resending active code", "user_id", userID, "type", string(existing.Type))
			return existing, nil
		}
		code, err := s.newCode(ctx, now)
		if err != nil {
			return nil, err
		}
		reset, err := s.repo.Reset(ctx, existing.ID, ports.ConfirmationReset{
			Code:    code,
			EndTime: now.Add(s.cfg.Lifetime),
		})
		if err != nil {
			return nil, fmt.Errorf("reset %s: %w", s.cfg.Kind, err)
		}
		s.logger.InfoContext(ctx, "code reissued", "user_id", userID, "type", string(reset.Type))
		return reset, nil
	}

	code, err := s.newCode(ctx, now)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Insert(ctx, domainauth.Confirmation{
		UserID:     userID,
		Type:       typ,
		To:         to,
		Code:       code,
		CreateTime: now,
		EndTime:    now.Add(s.cfg.Lifetime),
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("insert %s: %w", s.cfg.Kind, err)
	}
	s.logger.InfoContext(ctx, "code issued", "user_id", userID, "type", string(typ))
	return created, nil
}

// Verify returns the open record for (userID, code). A non-empty to must match the record's
// recipient. It fails with code_not_active when nothing matches and code_outdated when the
// match has expired.
func (s *ConfirmationService) Verify(ctx context.Context, userID, to, code string) (*domainauth.Confirmation, error) {
	c, err := s.repo.FindOpenByUserAndCode(ctx, userID, code)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.CodeNotActive()
		}
		return nil, fmt.Errorf("find %s by code: %w", s.cfg.Kind, err)
	}
	if to != "" && c.To != to {
		return nil, apperrors.CodeNotActive()
	}
	if c.IsOutdated(s.now()) {
		return nil, apperrors.CodeOutdated()
	}
	return c, nil
}

// Complete marks a verified record completed. The update only applies to a row that is
// still open and unexpired, so a concurrent completion or expiry surfaces as an error.
func (s *ConfirmationService) Complete(ctx context.Context, c *domainauth.Confirmation) error {
	now := s.now()
	if c.IsOutdated(now) {
		return apperrors.CodeOutdated()
	}
	if c.IsCompleted() {
		return apperrors.CodeNotActive()
	}
	ok, err := s.repo.MarkCompleted(ctx, c.ID, now)
	if err != nil {
		return fmt.Errorf("complete %s: %w", s.cfg.Kind, err)
	}
	if !ok {
		return apperrors.CodeNotActive()
	}
	c.CompleteTime = &now
	s.logger.InfoContext(ctx, "code completed", "user_id", c.UserID, "type", string(c.Type))
	return nil
}

// VerifyAndComplete verifies code for (userID, to) and completes the matched record.
func (s *ConfirmationService) VerifyAndComplete(ctx context.Context, userID, to, code string) (*domainauth.Confirmation, error) {
	c, err := s.Verify(ctx, userID, to, code)
	if err != nil {
		return nil, err
	}
	if err := s.Complete(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConfirmationService) newCode(ctx context.Context, now time.Time) (string, error) {
	return s.tokens.GenerateUnique(ctx, UniqueTokenRequest{
		Alphabet: AlphabetDigits,
		Length:   s.cfg.CodeLength,
		MaxTries: s.cfg.MaxTries,
		Exists: func(ctx context.Context, candidate string) (bool, error) {
			return s.repo.CodeInUse(ctx, candidate, now)
		},
	})
}
