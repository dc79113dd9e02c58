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

const confirmationColumns = `id, user_id, type, "to", code, create_time, end_time, complete_time`

// ConfirmationRepo persists one confirmation kind. auth_confirm and auth_recovery share a schema.
type ConfirmationRepo struct {
	DB    *sql.DB
	Now   Clock
	table string
}

// NewConfirmationRepo creates a repository over the table that stores kind.
func NewConfirmationRepo(db *sql.DB, kind domainauth.ConfirmationKind) *ConfirmationRepo {
	return &ConfirmationRepo{DB: db, table: kind.Table()}
}

// Table returns the backing table name.
func (r *ConfirmationRepo) Table() string { return r.table }

func (r *ConfirmationRepo) queryOne(ctx context.Context, query string, args ...any) (*domainauth.Confirmation, error) {
	row, err := pgxutil.QueryStruct[domainauth.Confirmation](ctx, r.DB, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row, nil
}

// FindByUserAndRecipient returns the single record for (userID, to), in any state.
func (r *ConfirmationRepo) FindByUserAndRecipient(ctx context.Context, userID, to string) (*domainauth.Confirmation, error) {
	return r.queryOne(ctx, `
		SELECT `+confirmationColumns+`
		FROM `+r.table+`
		WHERE user_id = $1 AND "to" = $2`, userID, to)
}

// FindOpenByUserAndCode returns the uncompleted record for (userID, code), expired or not.
func (r *ConfirmationRepo) FindOpenByUserAndCode(ctx context.Context, userID, code string) (*domainauth.Confirmation, error) {
	return r.queryOne(ctx, `
		SELECT `+confirmationColumns+`
		FROM `+r.table+`
		WHERE user_id = $1 AND code = $2 AND complete_time IS NULL
		ORDER BY end_time DESC
		LIMIT 1`, userID, code)
}

// CodeInUse reports whether code belongs to a record that is still active at now.
func (r *ConfirmationRepo) CodeInUse(ctx context.Context, code string, now time.Time) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM `+r.table+`
			WHERE code = $1 AND complete_time IS NULL AND end_time > $2
		)`, code, now.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code: %w", apperrors.MapDBError(err))
	}
	return exists, nil
}

// Insert creates a record. A second record for the same (user, to) is a conflict.
func (r *ConfirmationRepo) Insert(ctx context.Context, c domainauth.Confirmation) (*domainauth.Confirmation, error) {
	createTime := c.CreateTime
	if createTime.IsZero() {
		createTime = r.Now.now()
	}
	created, err := r.queryOne(ctx, `
		INSERT INTO `+r.table+` (user_id, type, "to", code, create_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+confirmationColumns,
		c.UserID, string(c.Type), c.To, c.Code, createTime.UTC(), c.EndTime.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", r.table, err)
	}
	return created, nil
}

// Reset reissues record id with a new code and end time and reopens it.
func (r *ConfirmationRepo) Reset(ctx context.Context, id string, reset ports.ConfirmationReset) (*domainauth.Confirmation, error) {
	updated, err := r.queryOne(ctx, `
		UPDATE `+r.table+`
		SET code = $2, end_time = $3, complete_time = NULL
		WHERE id = $1
		RETURNING `+confirmationColumns, id, reset.Code, reset.EndTime.UTC())
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", r.table, err)
	}
	return updated, nil
}

// MarkCompleted completes record id only while it is open and unexpired at at.
func (r *ConfirmationRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE `+r.table+`
		SET complete_time = $2
		WHERE id = $1 AND complete_time IS NULL AND end_time > $2`, id, at.UTC())
	if err != nil {
		return false, fmt.Errorf("complete %s: %w", r.table, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
