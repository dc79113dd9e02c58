package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/target/mmk-auth/internal/data/pgxutil"
	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

const sessionColumns = `id, user_id, auth_grant_id, token, grant_token, user_ip, user_agent,
	user_os, user_browser, create_time, end_time`

// SessionRepo persists auth_session rows in Postgres.
type SessionRepo struct {
	DB  *sql.DB
	Now Clock
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db}
}

func (r *SessionRepo) queryOne(ctx context.Context, query string, args ...any) (*domainauth.Session, error) {
	row, err := pgxutil.QueryStruct[domainauth.Session](ctx, r.DB, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row, nil
}

// FindByDevice returns the row for (user, grant, fingerprint), active or not.
func (r *SessionRepo) FindByDevice(
	ctx context.Context,
	userID, grantID string,
	fp domainauth.Fingerprint,
) (*domainauth.Session, error) {
	return r.queryOne(ctx, `
		SELECT `+sessionColumns+`
		FROM auth_session
		WHERE user_id = $1 AND auth_grant_id = $2 AND user_ip = $3 AND user_agent = $4`,
		userID, grantID, fp.IP, fp.UserAgent)
}

// FindByToken returns the session for token, active or not.
func (r *SessionRepo) FindByToken(ctx context.Context, token string) (*domainauth.Session, error) {
	return r.queryOne(ctx, `
		SELECT `+sessionColumns+`
		FROM auth_session
		WHERE token = $1`, token)
}

// TokenExists reports whether any session row carries token.
func (r *SessionRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM auth_session WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token: %w", apperrors.MapDBError(err))
	}
	return exists, nil
}

// Insert creates a session row. Duplicate devices or tokens are conflicts.
func (r *SessionRepo) Insert(ctx context.Context, s domainauth.Session) (*domainauth.Session, error) {
	createTime := s.CreateTime
	if createTime.IsZero() {
		createTime = r.Now.now()
	}
	created, err := r.queryOne(ctx, `
		INSERT INTO auth_session (
			user_id, auth_grant_id, token, grant_token, user_ip, user_agent,
			user_os, user_browser, create_time, end_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+sessionColumns,
		s.UserID, s.GrantID, s.Token, s.GrantToken, s.UserIP, s.UserAgent,
		s.UserOS, s.UserBrowser, createTime.UTC(), s.EndTime.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return created, nil
}

// Refresh rotates the token of row id and extends it.
func (r *SessionRepo) Refresh(ctx context.Context, id string, ref ports.SessionRefresh) (*domainauth.Session, error) {
	updated, err := r.queryOne(ctx, `
		UPDATE auth_session
		SET token = $2, grant_token = $3, end_time = $4
		WHERE id = $1
		RETURNING `+sessionColumns, id, ref.Token, ref.GrantToken, ref.EndTime.UTC())
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return updated, nil
}

// SetEndTime moves the end time of row id.
func (r *SessionRepo) SetEndTime(ctx context.Context, id string, end time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE auth_session SET end_time = $2 WHERE id = $1`, id, end.UTC())
	if err != nil {
		return fmt.Errorf("set session end: %w", apperrors.MapDBError(err))
	}
	return requireOneRow(res, "session")
}

// ExpireByUser ends every session of userID still active at at and returns their tokens.
func (r *SessionRepo) ExpireByUser(ctx context.Context, userID string, at time.Time) ([]string, error) {
	tokens, err := pgxutil.QueryColumn[string](ctx, r.DB, `
		UPDATE auth_session
		SET end_time = $2
		WHERE user_id = $1 AND end_time > $2
		RETURNING token`, userID, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("expire sessions: %w", apperrors.MapDBError(err))
	}
	return tokens, nil
}
