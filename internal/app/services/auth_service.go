package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/auth"
	"github.com/commandinlaw/academy/internal/pkg/identity"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// TokenVerifier validates access tokens without calling the provider.
type TokenVerifier interface {
	ValidateAndExtractClaims(token string) (*auth.Claims, error)
}

// AuthService signs users in and keeps their sessions fresh
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, email, password string) (*identity.SignUpResult, error)
	SignOut(ctx context.Context, accessToken string) error
	// ResolveSession returns the current session for stored credentials,
	// refreshing it when the access token has expired. refreshed reports
	// whether the caller must store the returned session.
	ResolveSession(ctx context.Context, stored identity.Session) (session *identity.Session, refreshed bool, err error)
}

type authServiceImpl struct {
	provider identity.Provider
	verifier TokenVerifier
	now      func() time.Time
}

// NewAuthService creates a new auth service instance
func NewAuthService(provider identity.Provider, verifier TokenVerifier, now func() time.Time) AuthService {
	if now == nil {
		now = time.Now
	}
	return &authServiceImpl{
		provider: provider,
		verifier: verifier,
		now:      now,
	}
}

func (s *authServiceImpl) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	return s.provider.SignIn(ctx, strings.TrimSpace(email), password)
}

func (s *authServiceImpl) SignUp(ctx context.Context, email, password string) (*identity.SignUpResult, error) {
	return s.provider.SignUp(ctx, strings.TrimSpace(email), password)
}

func (s *authServiceImpl) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.provider.SignOut(ctx, accessToken)
}

func (s *authServiceImpl) ResolveSession(ctx context.Context, stored identity.Session) (*identity.Session, bool, error) {
	if stored.AccessToken == "" {
		return nil, false, apperrors.ErrUnauthenticated
	}

	if !stored.Expired(s.now()) {
		user, err := s.verify(ctx, stored.AccessToken)
		if err == nil {
			out := stored
			if user != nil {
				out.User = *user
			}
			return &out, false, nil
		}
		if !errors.Is(err, auth.ErrExpiredToken) {
			logger.Debug().Err(err).Msg("Stored access token rejected")
			return nil, false, apperrors.ErrUnauthenticated
		}
	}

	if stored.RefreshToken == "" {
		return nil, false, apperrors.ErrUnauthenticated
	}
	fresh, err := s.provider.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		logger.Debug().Err(err).Str("userID", stored.User.ID).Msg("Session refresh failed")
		return nil, false, apperrors.ErrUnauthenticated
	}
	return fresh, true, nil
}

// verify returns the token's user. A nil user with a nil error keeps the
// stored user.
func (s *authServiceImpl) verify(ctx context.Context, token string) (*identity.User, error) {
	if s.verifier != nil {
		claims, err := s.verifier.ValidateAndExtractClaims(token)
		if err != nil {
			return nil, err
		}
		return &identity.User{ID: claims.UserID(), Email: claims.Email}, nil
	}
	return s.provider.GetUser(ctx, token)
}
