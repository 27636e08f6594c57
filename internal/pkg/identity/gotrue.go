package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

const authPath = "/auth/v1"

// GoTrueClient talks to the auth endpoint of a hosted Supabase project.
type GoTrueClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	now        func() time.Time
}

// NewGoTrueClient creates a client for the project at baseURL.
func NewGoTrueClient(baseURL, anonKey string, httpClient *http.Client) *GoTrueClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/") + authPath,
		anonKey:    anonKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// signUpPayload is either a session or a bare user, depending on whether the
// project auto-confirms e-mail addresses.
type signUpPayload struct {
	sessionPayload
	ID    string `json:"id"`
	Email string `json:"email"`
}

// errorPayload covers the error shapes GoTrue has used across versions.
type errorPayload struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (p errorPayload) text() string {
	for _, s := range []string{p.Msg, p.Message, p.ErrorDescription, p.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignUp registers a new user.
func (c *GoTrueClient) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	var payload signUpPayload
	status, err := c.do(ctx, http.MethodPost, "/signup", "", credentials{Email: email, Password: password}, &payload)
	if err != nil {
		return nil, c.mapError(err, status, apperrors.ErrUpstream)
	}

	if payload.AccessToken != "" {
		s := c.toSession(payload.sessionPayload)
		return &SignUpResult{User: s.User, Session: s}, nil
	}
	return &SignUpResult{User: User{ID: payload.ID, Email: payload.Email}}, nil
}

// SignIn exchanges e-mail and password for a session.
func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var payload sessionPayload
	status, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentials{Email: email, Password: password}, &payload)
	if err != nil {
		return nil, c.mapError(err, status, apperrors.ErrInvalidCredentials)
	}
	return c.toSession(payload), nil
}

// GetUser returns the user owning accessToken.
func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	status, err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	if err != nil {
		return nil, c.mapError(err, status, apperrors.ErrTokenInvalid)
	}
	return &user, nil
}

// Refresh trades a refresh token for a new session.
func (c *GoTrueClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var payload sessionPayload
	body := map[string]string{"refresh_token": refreshToken}
	status, err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &payload)
	if err != nil {
		return nil, c.mapError(err, status, apperrors.ErrTokenInvalid)
	}
	return c.toSession(payload), nil
}

// SignOut revokes the refresh tokens of the session owning accessToken.
func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	status, err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	if err != nil {
		return c.mapError(err, status, apperrors.ErrUpstream)
	}
	return nil
}

func (c *GoTrueClient) toSession(p sessionPayload) *Session {
	expiresAt := time.Unix(p.ExpiresAt, 0)
	if p.ExpiresAt == 0 {
		expiresAt = c.now().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return &Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         p.User,
	}
}

// mapError keeps the provider's message verbatim. Client errors (4xx) are
// classified as clientErr, everything else as an upstream failure.
func (c *GoTrueClient) mapError(err error, status int, clientErr error) error {
	ce, ok := err.(*apperrors.CustomError)
	if !ok {
		return err
	}
	if status >= 400 && status < 500 {
		ce.Err = clientErr
	}
	return ce
}

func (c *GoTrueClient) do(ctx context.Context, method, path, token string, body interface{}, dest interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode auth payload: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Identity provider request failed")
		return 0, apperrors.NewUpstreamError(err.Error(), 0)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var ep errorPayload
		_ = json.Unmarshal(payload, &ep)
		msg := ep.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		logger.Warn().Str("path", path).Int("status", resp.StatusCode).Str("errorCode", ep.ErrorCode).Str("message", msg).Msg("Identity provider returned an error")
		return resp.StatusCode, apperrors.NewUpstreamError(msg, resp.StatusCode)
	}

	if dest != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, dest); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode auth response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
