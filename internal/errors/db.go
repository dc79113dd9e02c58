package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyColumns extracts the column list from "Key (email)=(a@b.c) already exists.".
var reKeyColumns = regexp.MustCompile(`Key \(([^)]+)\)=`)

// constraintFields names the field each unique index of the auth schema guards.
// A conflict on users_*_key carries the identity key, which the orchestrator
// turns into user_already_exists for that key.
var constraintFields = map[string]string{
	"users_email_key":           "email",
	"users_phone_key":           "phone",
	"users_login_key":           "login",
	"auth_grant_password_key":   "password",
	"auth_grant_code_key":       "source_key",
	"auth_grant_delegated_key":  "source_key",
	"auth_confirm_user_to_key":  "to",
	"auth_recovery_user_to_key": "to",
	"auth_session_token_key":    "token",
	"auth_session_device_key":   "device",
}

// tableLabels names the auth tables in messages.
var tableLabels = map[string]string{
	"users":         "user",
	"auth_grant":    "grant",
	"auth_session":  "session",
	"auth_confirm":  "confirmation",
	"auth_recovery": "recovery",
}

// MapDBError maps database errors to AppError instances:
// no rows become NotFound, unique violations Conflict, foreign key violations ForeignKey,
// check and NOT NULL violations Validation, and context errors Timeout or Canceled.
// Anything else is returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists. Please choose a different one.",
			Field:   uniqueField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeForeignKey,
			Message: "Cannot complete operation because the referenced " + referencedLabel(pgErr) + " does not exist.",
			Cause:   pgErr,
		}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field is required.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.CheckViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field has an invalid value.", Field: pgErr.ColumnName, Cause: pgErr}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "A database error occurred. Please try again.",
			Cause:   pgErr,
		}
	}
}

// uniqueField prefers the known constraint, then the column metadata, then a
// single-column Detail. Multi-column keys outside the schema yield "".
func uniqueField(pgErr *pgconn.PgError) string {
	if f, ok := constraintFields[pgErr.ConstraintName]; ok {
		return f
	}
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyColumns.FindStringSubmatch(pgErr.Detail); len(m) == 2 && !strings.Contains(m[1], ",") {
		return strings.Trim(strings.TrimSpace(m[1]), `"`)
	}
	return ""
}

// referencedLabel names the parent of a failed foreign key, e.g. auth_session_auth_grant_id_fkey.
func referencedLabel(pgErr *pgconn.PgError) string {
	name := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(name, "grant_id"):
		return tableLabels["auth_grant"]
	case strings.Contains(name, "user_id"):
		return tableLabels["users"]
	}
	if label, ok := tableLabels[strings.ToLower(pgErr.TableName)]; ok {
		return label
	}
	return "record"
}
