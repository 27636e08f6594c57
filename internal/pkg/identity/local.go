package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/db"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/auth"
	"github.com/commandinlaw/academy/internal/pkg/dberrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// Messages match the hosted provider so the login page reads the same on
// either backend.
const (
	msgInvalidCredentials = "Invalid login credentials"
	msgAlreadyRegistered  = "User already registered"
	msgInvalidRefresh     = "Invalid Refresh Token"
	msgWeakPassword       = "Password should be at least 6 characters."
)

const minPasswordLength = 6

// LocalProvider keeps identities in the application database. Sign-up
// creates the auth user and its profile in one transaction.
type LocalProvider struct {
	db  *db.PostgresDB
	jwt *auth.JWTService
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

// NewLocalProvider creates a provider on database using jwtService for tokens.
func NewLocalProvider(database *db.PostgresDB, jwtService *auth.JWTService) *LocalProvider {
	return &LocalProvider{
		db:  database,
		jwt: jwtService,
		sb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now: time.Now,
	}
}

// SignUp creates a user with the default non-privileged role and signs it in.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	user, err := p.CreateUser(ctx, email, password, "", models.RoleStudent)
	if err != nil {
		return nil, err
	}
	session, err := p.issueSession(ctx, *user)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: *user, Session: session}, nil
}

// CreateUser inserts an auth user and its profile.
func (p *LocalProvider) CreateUser(ctx context.Context, email, password, fullName string, role models.Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, msgWeakPassword)
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Password should be at most 72 characters.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user User
	err = p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := p.sb.Insert("auth_users").
			Columns("email", "password_hash").
			Values(email, hash).
			Suffix("RETURNING id::text, email").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create user query: %w", err)
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.Email); err != nil {
			if dberrors.IsDuplicateConstraintError(err, "") {
				return apperrors.NewCustomError(apperrors.ErrEmailAlreadyExists, msgAlreadyRegistered)
			}
			return fmt.Errorf("error creating auth user: %w", err)
		}

		var name interface{}
		if fullName != "" {
			name = fullName
		}
		sql, args, err = p.sb.Insert("profiles").
			Columns("id", "full_name", "role").
			Values(user.ID, name, string(role)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create profile query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error creating profile: %w", err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrEmailAlreadyExists) {
			logger.Error().Err(err).Str("email", email).Msg("Error creating local user")
		}
		return nil, err
	}
	return &user, nil
}

// EmailExists reports whether an auth user is registered under email.
func (p *LocalProvider) EmailExists(ctx context.Context, email string) (bool, error) {
	sql, args, err := p.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From("auth_users").
		Where(squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build email exists query: %w", err)
	}
	var exists bool
	if err := p.db.Pool.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Msg("Error checking email existence")
		return false, fmt.Errorf("error checking email existence: %w", err)
	}
	return exists, nil
}

// SignIn verifies the password and issues a session.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sql, args, err := p.sb.Select("id::text", "email", "password_hash").
		From("auth_users").
		Where(squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sign in query: %w", err)
	}

	var user User
	var hash string
	if err := p.db.Pool.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.Email, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewCustomError(apperrors.ErrInvalidCredentials, msgInvalidCredentials)
		}
		logger.Error().Err(err).Msg("Error loading auth user")
		return nil, fmt.Errorf("error loading auth user: %w", err)
	}

	if !auth.CheckPassword(hash, password) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidCredentials, msgInvalidCredentials)
	}

	return p.issueSession(ctx, user)
}

// GetUser validates accessToken and loads its user.
func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := p.jwt.ValidateAndExtractClaims(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	sql, args, err := p.sb.Select("id::text", "email").
		From("auth_users").
		Where(squirrel.Eq{"id": claims.UserID()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	var user User
	if err := p.db.Pool.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTokenInvalid
		}
		logger.Error().Err(err).Str("userID", claims.UserID()).Msg("Error loading user for token")
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return &user, nil
}

// Refresh rotates refreshToken: the presented token is revoked and a new
// session is issued.
func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var user User
	err := p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := p.sb.Update("auth_refresh_tokens").
			Set("revoked", true).
			Where(squirrel.Eq{"token": refreshToken, "revoked": false}).
			Where(squirrel.Gt{"expires_at": p.now()}).
			Suffix("RETURNING user_id::text").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build refresh query: %w", err)
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&user.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewCustomError(apperrors.ErrTokenInvalid, msgInvalidRefresh)
			}
			return fmt.Errorf("error revoking refresh token: %w", err)
		}

		sql, args, err = p.sb.Select("email").From("auth_users").Where(squirrel.Eq{"id": user.ID}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user email query: %w", err)
		}
		return tx.QueryRow(ctx, sql, args...).Scan(&user.Email)
	})
	if err != nil {
		return nil, err
	}
	return p.issueSession(ctx, user)
}

// SignOut revokes every refresh token of the token's user.
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.jwt.ValidateAndExtractClaims(accessToken)
	if err != nil {
		// An expired session is already signed out as far as tokens go.
		return nil
	}
	sql, args, err := p.sb.Update("auth_refresh_tokens").
		Set("revoked", true).
		Where(squirrel.Eq{"user_id": claims.UserID(), "revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sign out query: %w", err)
	}
	if _, err := p.db.Pool.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("userID", claims.UserID()).Msg("Error revoking refresh tokens")
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	return nil
}

func (p *LocalProvider) issueSession(ctx context.Context, user User) (*Session, error) {
	pair, err := p.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	sql, args, err := p.sb.Insert("auth_refresh_tokens").
		Columns("token", "user_id", "expires_at").
		Values(pair.RefreshToken, user.ID, pair.RefreshExpiresAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build store refresh token query: %w", err)
	}
	if _, err := p.db.Pool.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("userID", user.ID).Msg("Error storing refresh token")
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         user,
	}, nil
}
