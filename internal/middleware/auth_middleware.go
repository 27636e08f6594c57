package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/identity"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/session"
)

// Context keys set by LoadSession.
const (
	ContextUserID      = "userID"
	ContextEmail       = "email"
	ContextAccessToken = "accessToken"
)

// LoginPath is where unauthenticated users are sent.
const LoginPath = "/login"

// AuthMiddleware resolves the cookie session and gates pages on it
type AuthMiddleware struct {
	sessions  *session.Manager
	auth      services.AuthService
	dashboard services.DashboardService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(sessions *session.Manager, auth services.AuthService, dashboard services.DashboardService) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:  sessions,
		auth:      auth,
		dashboard: dashboard,
	}
}

// LoadSession puts the signed-in user, if any, on the gin context and the
// acting user on the request context. Expired sessions are refreshed and
// unusable ones cleared.
func (m *AuthMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		stored := m.sessions.Auth(c.Request)
		if !stored.Valid() {
			c.Next()
			return
		}

		current, refreshed, err := m.auth.ResolveSession(c.Request.Context(), identity.Session{
			AccessToken:  stored.AccessToken,
			RefreshToken: stored.RefreshToken,
			ExpiresAt:    stored.ExpiresAt,
			User:         identity.User{ID: stored.UserID, Email: stored.Email},
		})
		if err != nil {
			logger.Debug().Err(err).Str("userID", stored.UserID).Msg("Clearing unusable session")
			m.sessions.ClearAuth(c.Writer, c.Request)
			c.Next()
			return
		}
		if refreshed {
			m.sessions.SetAuth(c.Writer, c.Request, SessionAuth(current))
		}

		c.Set(ContextUserID, current.User.ID)
		c.Set(ContextEmail, current.User.Email)
		c.Set(ContextAccessToken, current.AccessToken)
		ctx := repositories.WithActor(c.Request.Context(), repositories.Actor{
			UserID:      current.User.ID,
			AccessToken: current.AccessToken,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SessionRequired sends visitors without a session to the login page and
// remembers where they were going.
func (m *AuthMiddleware) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == "" {
			if c.Request.Method == http.MethodGet {
				m.sessions.SetRedirectAfterLogin(c.Writer, c.Request, c.Request.URL.RequestURI())
			}
			Redirect(c, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthorRequired silently sends users without an author role home.
func (m *AuthMiddleware) AuthorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if _, err := m.dashboard.CheckAccess(c.Request.Context(), userID); err != nil {
			if !errors.Is(err, apperrors.ErrPermissionDenied) {
				logger.Error().Err(err).Str("userID", userID).Msg("Failed to load profile for role check")
			}
			Redirect(c, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the signed-in user id or "".
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CurrentEmail returns the signed-in user's e-mail or "".
func CurrentEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

// Redirect answers with 302 for reads and 303 after a form post.
func Redirect(c *gin.Context, target string) {
	code := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	c.Redirect(code, target)
}

// SessionAuth converts a provider session into the stored cookie form.
func SessionAuth(s *identity.Session) session.Auth {
	return session.Auth{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		UserID:       s.User.ID,
		Email:        s.User.Email,
		ExpiresAt:    s.ExpiresAt,
	}
}
