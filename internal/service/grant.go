package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// GrantStoreConfig selects which methods the store accepts.
type GrantStoreConfig struct {
	PasswordEnabled bool
	CodeEnabled     bool
	BcryptCost      int
	// DelegatedSources lists the registered delegated provider names.
	DelegatedSources []string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// GrantStoreOptions groups dependencies for GrantStore.
type GrantStoreOptions struct {
	Repo   ports.GrantRepository // Required: grant persistence
	Config GrantStoreConfig
	Logger *slog.Logger // Optional: structured logger
}

// GrantStore owns auth_grant records. Every operation checks the method gate before touching storage.
type GrantStore struct {
	repo      ports.GrantRepository
	cfg       GrantStoreConfig
	delegated map[string]struct{}
	now       func() time.Time
	logger    *slog.Logger
}

// NewGrantStore constructs a new GrantStore.
func NewGrantStore(opts GrantStoreOptions) (*GrantStore, error) {
	if opts.Repo == nil {
		return nil, errors.New("GrantRepository is required")
	}
	cost := opts.Config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, apperrors.ConfigurationInvalid("bcrypt_cost", "out of range")
	}
	opts.Config.BcryptCost = cost

	delegated := make(map[string]struct{}, len(opts.Config.DelegatedSources))
	for _, src := range opts.Config.DelegatedSources {
		if !domainauth.IsDelegatedSource(src) {
			return nil, apperrors.ConfigurationInvalid("delegated_sources", fmt.Sprintf("%q is reserved", src))
		}
		delegated[src] = struct{}{}
	}

	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GrantStore{
		repo:      opts.Repo,
		cfg:       opts.Config,
		delegated: delegated,
		now:       now,
		logger:    logger.With("component", "grant_store"),
	}, nil
}

// MustNewGrantStore constructs a new GrantStore and panics on error.
func MustNewGrantStore(opts GrantStoreOptions) *GrantStore {
	store, err := NewGrantStore(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return store
}

// SupportedMethods lists enabled methods: password, code, then delegated sources in name order.
func (s *GrantStore) SupportedMethods() []string {
	var out []string
	if s.cfg.PasswordEnabled {
		out = append(out, domainauth.SourcePassword)
	}
	if s.cfg.CodeEnabled {
		out = append(out, domainauth.SourceCode)
	}
	delegated := make([]string, 0, len(s.delegated))
	for src := range s.delegated {
		delegated = append(delegated, src)
	}
	slices.Sort(delegated)
	return append(out, delegated...)
}

// Supports reports whether source may be used.
func (s *GrantStore) Supports(source string) bool {
	switch source {
	case domainauth.SourcePassword:
		return s.cfg.PasswordEnabled
	case domainauth.SourceCode:
		return s.cfg.CodeEnabled
	default:
		_, ok := s.delegated[source]
		return ok
	}
}

func (s *GrantStore) checkMethod(source string) error {
	if !s.Supports(source) {
		return apperrors.MethodNotSupported(source)
	}
	return nil
}

// CreatePasswordGrant hashes password and stores it as the user's single password grant.
func (s *GrantStore) CreatePasswordGrant(ctx context.Context, userID, password string) (*domainauth.Grant, error) {
	if err := s.checkMethod(domainauth.SourcePassword); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByUserAndSource(ctx, userID, domainauth.SourcePassword)
	switch {
	case err == nil && existing != nil:
		return nil, apperrors.PasswordGrantAlreadyExists()
	case err != nil && !apperrors.IsNotFound(err):
		return nil, fmt.Errorf("find password grant: %w", err)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	grant, err := s.repo.Insert(ctx, domainauth.Grant{
		UserID:     userID,
		Source:     domainauth.SourcePassword,
		SourceKey:  hash,
		CreateTime: s.now(),
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.PasswordGrantAlreadyExists()
		}
		return nil, fmt.Errorf("insert password grant: %w", err)
	}
	s.logger.InfoContext(ctx, "password grant created", "user_id", userID, "grant_id", grant.ID)
	return grant, nil
}

// VerifyPassword reports whether password matches the grant's hash.
func (s *GrantStore) VerifyPassword(grant *domainauth.Grant, password string) bool {
	if grant == nil || !grant.IsPassword() || grant.SourceKey == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(grant.SourceKey), []byte(password)) == nil
}

// ChangePassword rehashes the grant in place after checking the current password.
func (s *GrantStore) ChangePassword(ctx context.Context, grant *domainauth.Grant, oldPassword, newPassword string) error {
	if err := s.checkMethod(domainauth.SourcePassword); err != nil {
		return err
	}
	if grant == nil || !grant.IsPassword() {
		return apperrors.PasswordGrantNotFound()
	}
	if !s.VerifyPassword(grant, oldPassword) {
		return apperrors.IncorrectOldPassword()
	}
	return s.rehash(ctx, grant, newPassword)
}

// SetPassword overwrites the user's password grant, creating it when absent.
func (s *GrantStore) SetPassword(ctx context.Context, userID, password string) (*domainauth.Grant, error) {
	if err := s.checkMethod(domainauth.SourcePassword); err != nil {
		return nil, err
	}
	grant, err := s.repo.FindByUserAndSource(ctx, userID, domainauth.SourcePassword)
	if err == nil && grant != nil {
		if err := s.rehash(ctx, grant, password); err != nil {
			return nil, err
		}
		return grant, nil
	}
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("find password grant: %w", err)
	}

	created, err := s.CreatePasswordGrant(ctx, userID, password)
	if apperrors.HasCode(err, apperrors.ErrCodePasswordGrantAlreadyExists) {
		// A concurrent writer created the grant between our lookup and insert.
		grant, findErr := s.repo.FindByUserAndSource(ctx, userID, domainauth.SourcePassword)
		if findErr != nil {
			return nil, fmt.Errorf("find password grant: %w", findErr)
		}
		if err := s.rehash(ctx, grant, password); err != nil {
			return nil, err
		}
		return grant, nil
	}
	return created, err
}

// FindPasswordGrant returns the user's password grant or password_grant_not_found.
func (s *GrantStore) FindPasswordGrant(ctx context.Context, userID string) (*domainauth.Grant, error) {
	if err := s.checkMethod(domainauth.SourcePassword); err != nil {
		return nil, err
	}
	grant, err := s.repo.FindByUserAndSource(ctx, userID, domainauth.SourcePassword)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.PasswordGrantNotFound()
		}
		return nil, fmt.Errorf("find password grant: %w", err)
	}
	return grant, nil
}

// FindOrCreateCodeGrant returns the user's code grant bound to to, creating it on first use.
func (s *GrantStore) FindOrCreateCodeGrant(ctx context.Context, userID, to string) (*domainauth.Grant, error) {
	if err := s.checkMethod(domainauth.SourceCode); err != nil {
		return nil, err
	}
	find := func() (*domainauth.Grant, error) {
		return s.repo.FindByUserSourceKey(ctx, userID, domainauth.SourceCode, to)
	}
	return s.findOrCreate(ctx, find, domainauth.Grant{
		UserID:    userID,
		Source:    domainauth.SourceCode,
		SourceKey: to,
	})
}

// FindOrCreateDelegatedGrant returns the grant for (source, key), creating it for userID on first use.
// An identity already linked to another user is a conflict; it is never rebound.
func (s *GrantStore) FindOrCreateDelegatedGrant(ctx context.Context, userID, source, key string) (*domainauth.Grant, error) {
	if err := s.checkMethod(source); err != nil {
		return nil, err
	}
	find := func() (*domainauth.Grant, error) {
		return s.repo.FindBySourceKey(ctx, source, key)
	}
	grant, err := s.findOrCreate(ctx, find, domainauth.Grant{
		UserID:    userID,
		Source:    source,
		SourceKey: key,
	})
	if err != nil {
		return nil, err
	}
	if grant.UserID != userID {
		return nil, apperrors.Conflictf("%s identity is linked to another user", source)
	}
	return grant, nil
}

// FindDelegatedGrant returns the grant for (source, key), or nil when the identity is new.
func (s *GrantStore) FindDelegatedGrant(ctx context.Context, source, key string) (*domainauth.Grant, error) {
	if err := s.checkMethod(source); err != nil {
		return nil, err
	}
	grant, err := s.repo.FindBySourceKey(ctx, source, key)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s grant: %w", source, err)
	}
	return grant, nil
}

// findOrCreate looks the grant up, inserts it when missing, and retries the lookup once
// when a concurrent insert wins the unique constraint.
func (s *GrantStore) findOrCreate(
	ctx context.Context,
	find func() (*domainauth.Grant, error),
	grant domainauth.Grant,
) (*domainauth.Grant, error) {
	existing, err := find()
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("find %s grant: %w", grant.Source, err)
	}

	grant.CreateTime = s.now()
	created, err := s.repo.Insert(ctx, grant)
	if err == nil {
		s.logger.InfoContext(ctx, "grant created",
			"user_id", created.UserID, "grant_id", created.ID, "source", created.Source)
		return created, nil
	}
	if !apperrors.IsConflict(err) {
		return nil, fmt.Errorf("insert %s grant: %w", grant.Source, err)
	}

	existing, err = find()
	if err != nil {
		return nil, fmt.Errorf("find %s grant after conflict: %w", grant.Source, err)
	}
	return existing, nil
}

func (s *GrantStore) rehash(ctx context.Context, grant *domainauth.Grant, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSourceKey(ctx, grant.ID, hash); err != nil {
		return fmt.Errorf("update password grant: %w", err)
	}
	grant.SourceKey = hash
	s.logger.InfoContext(ctx, "password grant updated", "user_id", grant.UserID, "grant_id", grant.ID)
	return nil
}

func (s *GrantStore) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
