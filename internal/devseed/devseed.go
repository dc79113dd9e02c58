// Package devseed registers development users through the auth service so that local
// environments start with known password logins.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/mmk-auth/internal/domain/model"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/service"
)

// DefaultPassword is shared by every seeded user.
const DefaultPassword = "devpass123"

// UserSeed describes one development user.
type UserSeed struct {
	Fields   ports.UserData
	Password string
}

// Registrar is the slice of the auth service seeding needs.
type Registrar interface {
	RegisterByPassword(ctx context.Context, in service.RegisterInput) (*model.User, error)
	SupportedMethods() []string
}

// Result counts the outcome of a seeding run.
type Result struct {
	Created  int
	Existing int
	Failed   int
}

// DefaultUsers returns the development users seeded by db-seed.
func DefaultUsers() []UserSeed {
	return []UserSeed{
		{
			Fields: ports.UserData{
				model.KeyEmail:     "admin@example.com",
				model.KeyLogin:     "admin",
				model.KeyFirstName: "Admin",
				model.KeyLastName:  "User",
			},
			Password: DefaultPassword,
		},
		{
			Fields: ports.UserData{
				model.KeyEmail:     "dev@example.com",
				model.KeyFirstName: "Dev",
				model.KeyLastName:  "User",
			},
			Password: DefaultPassword,
		},
		{
			Fields: ports.UserData{
				model.KeyPhone:     "+15555550100",
				model.KeyFirstName: "Phone",
				model.KeyLastName:  "User",
			},
			Password: DefaultPassword,
		},
	}
}

// Run seeds DefaultUsers.
func Run(ctx context.Context, svc Registrar, logger *slog.Logger) (Result, error) {
	return Seed(ctx, svc, DefaultUsers(), logger)
}

// Seed registers each user, skipping ones whose identity already exists.
func Seed(ctx context.Context, svc Registrar, users []UserSeed, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result
	if !passwordEnabled(svc) {
		logger.WarnContext(ctx, "password method disabled; skipping user seeding")
		return res, nil
	}

	for _, u := range users {
		user, err := svc.RegisterByPassword(ctx, service.RegisterInput{
			Fields:         u.Fields,
			Password:       u.Password,
			PasswordRepeat: u.Password,
		})
		switch {
		case err == nil:
			res.Created++
			logger.InfoContext(ctx, "seeded user", "user_id", user.ID, "identity", seedLabel(u))
		case apperrors.HasCode(err, apperrors.ErrCodeUserAlreadyExists):
			res.Existing++
			logger.DebugContext(ctx, "seed user already exists", "identity", seedLabel(u))
		default:
			res.Failed++
			logger.ErrorContext(ctx, "failed to seed user", "identity", seedLabel(u), "error", err)
		}
	}

	if res.Failed > 0 {
		return res, fmt.Errorf("%d seed errors; check logs", res.Failed)
	}
	return res, nil
}

func passwordEnabled(svc Registrar) bool {
	for _, m := range svc.SupportedMethods() {
		if m == "password" {
			return true
		}
	}
	return false
}

func seedLabel(u UserSeed) string {
	for _, key := range []string{model.KeyEmail, model.KeyLogin, model.KeyPhone} {
		if v := u.Fields[key]; v != "" {
			return v
		}
	}
	return "unknown"
}
