package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/target/mmk-auth/internal/data/pgxutil"
	"github.com/target/mmk-auth/internal/domain/model"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

const userColumns = `id, email, phone, login, first_name, last_name, created_at`

var userKeyLabels = map[string]string{
	model.KeyEmail: "Email",
	model.KeyPhone: "Phone",
	model.KeyLogin: "Login",
}

// UserRepo is the reference host's users table. It implements ports.UserRepository[*model.User].
type UserRepo struct {
	DB  *sql.DB
	Now Clock
}

var (
	_ ports.UserRepository[*model.User] = (*UserRepo)(nil)
	_ ports.UserDeleter                  = (*UserRepo)(nil)
)

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// IdentityKeys lists the unique identifying columns in lookup order.
func (r *UserRepo) IdentityKeys() []string {
	return []string{model.KeyEmail, model.KeyPhone, model.KeyLogin}
}

// IdentityKeyLabel returns the display label for key.
func (r *UserRepo) IdentityKeyLabel(key string) string {
	if label, ok := userKeyLabels[key]; ok {
		return label
	}
	return key
}

func (r *UserRepo) queryOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	row, err := pgxutil.QueryStruct[model.User](ctx, r.DB, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row, nil
}

// FindByAnyIdentityKey matches value against email, phone and login.
func (r *UserRepo) FindByAnyIdentityKey(ctx context.Context, value string) (*model.User, error) {
	if value == "" {
		return nil, apperrors.NotFound("user not found")
	}
	return r.queryOne(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 OR phone = $1 OR login = $1
		ORDER BY created_at
		LIMIT 1`, value)
}

// FindByIdentityKey matches value against a single identity column.
func (r *UserRepo) FindByIdentityKey(ctx context.Context, key, value string) (*model.User, error) {
	if _, ok := userKeyLabels[key]; !ok {
		return nil, apperrors.Validationf("unknown identity key %q", key)
	}
	if value == "" {
		return nil, apperrors.NotFound("user not found")
	}
	// key is one of the fixed column names above.
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE `+key+` = $1`, value)
}

// FindByID returns the user with id. Malformed ids are reported as not found.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("user not found")
	}
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// Insert creates a user from data. Unknown keys are ignored; a taken identity key is a conflict
// whose Field names the key.
func (r *UserRepo) Insert(ctx context.Context, data ports.UserData) (*model.User, error) {
	u, err := r.queryOne(ctx, `
		INSERT INTO users (email, phone, login, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		nullable(data[model.KeyEmail]),
		nullable(data[model.KeyPhone]),
		nullable(data[model.KeyLogin]),
		strings.TrimSpace(data[model.KeyFirstName]),
		strings.TrimSpace(data[model.KeyLastName]),
		r.Now.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Delete removes the user with id. A missing user is not an error.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", apperrors.MapDBError(err))
	}
	return nil
}

func nullable(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
