package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/identity"
)

// UserCreator is the part of the local identity provider the seed needs.
type UserCreator interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, email, password, fullName string, role models.Role) (*identity.User, error)
}

// CreateDefaultAdmin creates an Admin account able to use the instructor
// dashboard when email is configured and not yet registered.
func CreateDefaultAdmin(ctx context.Context, users UserCreator, email, password string, lgr zerolog.Logger) error {
	if email == "" {
		lgr.Debug().Msg("No seed admin configured, skipping")
		return nil
	}
	if password == "" {
		return errors.New("seed admin password is required when seed admin email is set")
	}

	exists, err := users.EmailExists(ctx, email)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking if admin user exists")
		return err
	}
	if exists {
		lgr.Info().Str("email", email).Msg("Admin user already exists, skipping creation")
		return nil
	}

	lgr.Info().Msg("Creating default admin user...")
	admin, err := users.CreateUser(ctx, email, password, "System Administrator", models.RoleAdmin)
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating admin user")
		return err
	}
	lgr.Info().Str("adminID", admin.ID).Msg("Default admin user created successfully")
	return nil
}
