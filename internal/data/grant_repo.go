package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/target/mmk-auth/internal/data/pgxutil"
	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
)

const grantColumns = `id, user_id, source, source_key, create_time`

// GrantRepo persists auth_grant rows in Postgres.
type GrantRepo struct {
	DB  *sql.DB
	Now Clock
}

// NewGrantRepo creates a new GrantRepo.
func NewGrantRepo(db *sql.DB) *GrantRepo {
	return &GrantRepo{DB: db}
}

func (r *GrantRepo) queryOne(ctx context.Context, query string, args ...any) (*domainauth.Grant, error) {
	row, err := pgxutil.QueryStruct[domainauth.Grant](ctx, r.DB, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row, nil
}

// FindByUserAndSource returns the grant userID holds for source.
func (r *GrantRepo) FindByUserAndSource(ctx context.Context, userID, source string) (*domainauth.Grant, error) {
	return r.queryOne(ctx, `
		SELECT `+grantColumns+`
		FROM auth_grant
		WHERE user_id = $1 AND source = $2
		ORDER BY create_time
		LIMIT 1`, userID, source)
}

// FindByUserSourceKey returns the grant matching (user, source, source_key).
func (r *GrantRepo) FindByUserSourceKey(
	ctx context.Context,
	userID, source, sourceKey string,
) (*domainauth.Grant, error) {
	return r.queryOne(ctx, `
		SELECT `+grantColumns+`
		FROM auth_grant
		WHERE user_id = $1 AND source = $2 AND source_key = $3`, userID, source, sourceKey)
}

// FindBySourceKey returns the grant matching (source, source_key) for any user.
func (r *GrantRepo) FindBySourceKey(ctx context.Context, source, sourceKey string) (*domainauth.Grant, error) {
	return r.queryOne(ctx, `
		SELECT `+grantColumns+`
		FROM auth_grant
		WHERE source = $1 AND source_key = $2
		ORDER BY create_time
		LIMIT 1`, source, sourceKey)
}

// Insert creates a grant. Unique index violations surface as conflict errors.
func (r *GrantRepo) Insert(ctx context.Context, g domainauth.Grant) (*domainauth.Grant, error) {
	if g.UserID == "" || g.Source == "" {
		return nil, apperrors.Validation("grant requires user_id and source")
	}
	created, err := r.queryOne(ctx, `
		INSERT INTO auth_grant (user_id, source, source_key, create_time)
		VALUES ($1, $2, $3, $4)
		RETURNING `+grantColumns, g.UserID, g.Source, g.SourceKey, r.Now.now())
	if err != nil {
		return nil, fmt.Errorf("insert grant: %w", err)
	}
	return created, nil
}

// UpdateSourceKey replaces the source key of grant id, e.g. a rehashed password.
func (r *GrantRepo) UpdateSourceKey(ctx context.Context, id, sourceKey string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE auth_grant SET source_key = $2 WHERE id = $1`, id, sourceKey)
	if err != nil {
		return fmt.Errorf("update grant: %w", apperrors.MapDBError(err))
	}
	return requireOneRow(res, "grant")
}

// requireOneRow maps a zero-row update to not_found.
func requireOneRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFoundf("%s not found", entity)
	}
	return nil
}
