package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/commandinlaw/academy/internal/app/models/dto"
	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/session"
	"github.com/commandinlaw/academy/internal/web"
)

// Alerts shown by the login page
const (
	alertSignedIn     = "Signed in successfully!"
	alertCheckConfirm = "Check your email for a confirmation link!"
)

// AuthController handles sign-in, sign-up and sign-out
type AuthController struct {
	authService services.AuthService
	sessions    *session.Manager
	pages       pageRenderer
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService, sessions *session.Manager, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		sessions:    sessions,
		pages:       pageRenderer{sessions: sessions},
		logger:      logger,
	}
}

// LoginPage renders the sign-in form
func (c *AuthController) LoginPage(ctx *gin.Context) {
	c.pages.renderMinimal(ctx, http.StatusOK, web.PageLogin, "Login", LoginView{})
}

// Login handles both buttons of the login form
func (c *AuthController) Login(ctx *gin.Context) {
	var form dto.LoginForm
	if err := ctx.ShouldBind(&form); err != nil {
		c.logger.Debug().Interface("details", dto.HandleValidationError(err).Details).Msg("Invalid login form")
		c.pages.renderMinimal(ctx, http.StatusBadRequest, web.PageLogin, "Login", LoginView{Email: form.Email})
		return
	}

	if form.Action == dto.LoginActionSignUp {
		c.signUp(ctx, form)
		return
	}
	c.signIn(ctx, form)
}

func (c *AuthController) signIn(ctx *gin.Context, form dto.LoginForm) {
	current, err := c.authService.SignIn(ctx.Request.Context(), form.Email, form.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", form.Email).Msg("Sign in failed")
		c.pages.renderMinimal(ctx, http.StatusOK, web.PageLogin, "Login", LoginView{Email: form.Email}, apperrors.Message(err))
		return
	}

	c.sessions.SetAuth(ctx.Writer, ctx.Request, middleware.SessionAuth(current))
	c.logger.Info().Str("userID", current.User.ID).Msg("User signed in")

	target := c.sessions.PopRedirectAfterLogin(ctx.Writer, ctx.Request)
	if !safeRedirect(target) {
		target = "/dashboard"
	}
	c.pages.flashAndRedirect(ctx, target, alertSignedIn)
}

func (c *AuthController) signUp(ctx *gin.Context, form dto.LoginForm) {
	result, err := c.authService.SignUp(ctx.Request.Context(), form.Email, form.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", form.Email).Msg("Sign up failed")
		c.pages.renderMinimal(ctx, http.StatusOK, web.PageLogin, "Login", LoginView{Email: form.Email}, apperrors.Message(err))
		return
	}

	c.logger.Info().Str("userID", result.User.ID).Bool("confirmed", result.Session != nil).Msg("User signed up")
	if result.Session != nil {
		c.sessions.SetAuth(ctx.Writer, ctx.Request, middleware.SessionAuth(result.Session))
	}
	c.pages.flashAndRedirect(ctx, middleware.LoginPath, alertCheckConfirm)
}

// Logout ends the session
func (c *AuthController) Logout(ctx *gin.Context) {
	if token := ctx.GetString(middleware.ContextAccessToken); token != "" {
		if err := c.authService.SignOut(ctx.Request.Context(), token); err != nil {
			c.logger.Warn().Err(err).Msg("Provider sign out failed, clearing session anyway")
		}
	}
	c.sessions.ClearAuth(ctx.Writer, ctx.Request)
	middleware.Redirect(ctx, "/")
}

// safeRedirect accepts local absolute paths only.
func safeRedirect(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}
