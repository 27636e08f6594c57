// Package identity defines the identity provider used for sign-up, sign-in
// and session retrieval, with a hosted GoTrue implementation and a local
// Postgres-backed one.
package identity

import (
	"context"
	"time"
)

// User is an authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the credential set returned by a successful sign-in.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the access token is past its expiry, with a small
// leeway so that a token does not expire mid-request.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || !now.Add(30*time.Second).Before(s.ExpiresAt)
}

// SignUpResult carries the created user. Session is nil when the provider
// requires e-mail confirmation first.
type SignUpResult struct {
	User    User
	Session *Session
}

// Provider is the identity backend.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
