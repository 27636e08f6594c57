package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commandinlaw/academy/internal/pkg/apperrors"
)

func newGoTrue(t *testing.T, h http.HandlerFunc) *GoTrueClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGoTrueClient(srv.URL, "anon", srv.Client())
}

func TestSignInReturnsSession(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Fatalf("unexpected request %s", r.URL)
		}
		if r.Header.Get("apikey") != "anon" {
			t.Fatalf("missing apikey")
		}
		var body credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Email != "a@example.com" || body.Password != "pw" {
			t.Fatalf("body = %#v", body)
		}
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1900000000,"user":{"id":"u1","email":"a@example.com"}}`)
	})

	s, err := c.SignIn(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.AccessToken != "at" || s.RefreshToken != "rt" || s.User.ID != "u1" {
		t.Fatalf("unexpected session %#v", s)
	}
	if !s.ExpiresAt.Equal(time.Unix(1900000000, 0)) {
		t.Fatalf("expires at %v", s.ExpiresAt)
	}
}

func TestSignInKeepsProviderMessage(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	})

	_, err := c.SignIn(context.Background(), "a@example.com", "bad")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if apperrors.Message(err) != "Invalid login credentials" {
		t.Fatalf("message = %q", apperrors.Message(err))
	}
}

func TestSignUpWithoutAutoConfirmHasNoSession(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"id":"u2","email":"b@example.com","confirmation_sent_at":"2024-01-01T00:00:00Z"}`)
	})

	res, err := c.SignUp(context.Background(), "b@example.com", "pw123456")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if res.Session != nil || res.User.ID != "u2" {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestSignUpAutoConfirmReturnsSession(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":60,"user":{"id":"u3","email":"c@example.com"}}`)
	})

	res, err := c.SignUp(context.Background(), "c@example.com", "pw123456")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if res.Session == nil || res.User.ID != "u3" {
		t.Fatalf("unexpected result %#v", res)
	}
	if res.Session.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expiry should be derived from expires_in")
	}
}

func TestGetUserAndSignOutSendBearer(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			t.Fatalf("authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = io.WriteString(w, `{"id":"u1","email":"a@example.com"}`)
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("path = %s", r.URL.Path)
		}
	})

	u, err := c.GetUser(context.Background(), "at")
	if err != nil || u.ID != "u1" {
		t.Fatalf("GetUser = %#v, %v", u, err)
	}
	if err := c.SignOut(context.Background(), "at"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
}

func TestRefreshFailureIsTokenInvalid(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Fatalf("grant_type = %q", r.URL.Query().Get("grant_type"))
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"error_code":"refresh_token_not_found","msg":"Invalid Refresh Token: Refresh Token Not Found"}`)
	})

	_, err := c.Refresh(context.Background(), "rt")
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	if !(&Session{}).Expired(now) {
		t.Fatalf("zero expiry should count as expired")
	}
	if (&Session{ExpiresAt: now.Add(time.Hour)}).Expired(now) {
		t.Fatalf("future expiry should be valid")
	}
	if !(&Session{ExpiresAt: now.Add(10 * time.Second)}).Expired(now) {
		t.Fatalf("expiry within leeway should count as expired")
	}
}
