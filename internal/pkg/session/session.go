// Package session stores the signed-in user's tokens and flash alerts in a
// signed cookie. Unsaved course drafts live in a DraftStore keyed by an id
// kept in that cookie.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

const (
	keyAccessToken   = "access_token"
	keyRefreshToken  = "refresh_token"
	keyUserID        = "user_id"
	keyEmail         = "email"
	keyExpiresAt     = "expires_at"
	keyRedirectAfter = "redirect_after_login"
	keyDraftSession  = "draft_session"
)

// Auth is the credential set kept between requests.
type Auth struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	ExpiresAt    time.Time
}

// Valid reports whether a user is stored.
func (a Auth) Valid() bool {
	return a.AccessToken != "" && a.UserID != ""
}

// Options configures the cookie and the draft store.
type Options struct {
	Name   string
	Secret string
	MaxAge int
	Secure bool
	// Drafts defaults to a MemoryDraftStore keeping drafts for a day.
	Drafts DraftStore
}

// Manager wraps a gorilla cookie store.
type Manager struct {
	store  *sessions.CookieStore
	name   string
	drafts DraftStore
}

// NewManager creates a Manager signing cookies with opts.Secret.
func NewManager(opts Options) *Manager {
	drafts := opts.Drafts
	if drafts == nil {
		drafts = NewMemoryDraftStore(24*time.Hour, 0)
	}
	store := sessions.NewCookieStore([]byte(opts.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: opts.Name, drafts: drafts}
}

// get never fails: a cookie that cannot be decoded yields a fresh session.
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		logger.Debug().Err(err).Msg("Discarding undecodable session cookie")
	}
	return s
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error {
	if err := s.Save(r, w); err != nil {
		logger.Error().Err(err).Msg("Failed to save session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Auth loads the stored credentials.
func (m *Manager) Auth(r *http.Request) Auth {
	s := m.get(r)
	a := Auth{
		AccessToken:  stringValue(s.Values[keyAccessToken]),
		RefreshToken: stringValue(s.Values[keyRefreshToken]),
		UserID:       stringValue(s.Values[keyUserID]),
		Email:        stringValue(s.Values[keyEmail]),
	}
	if ts, ok := s.Values[keyExpiresAt].(int64); ok && ts > 0 {
		a.ExpiresAt = time.Unix(ts, 0)
	}
	return a
}

// SetAuth stores credentials.
func (m *Manager) SetAuth(w http.ResponseWriter, r *http.Request, a Auth) {
	s := m.get(r)
	s.Values[keyAccessToken] = a.AccessToken
	s.Values[keyRefreshToken] = a.RefreshToken
	s.Values[keyUserID] = a.UserID
	s.Values[keyEmail] = a.Email
	s.Values[keyExpiresAt] = a.ExpiresAt.Unix()
	m.save(w, r, s)
}

// ClearAuth removes credentials and the draft id but keeps pending flashes.
// Drafts left behind expire in the store.
func (m *Manager) ClearAuth(w http.ResponseWriter, r *http.Request) {
	s := m.get(r)
	for k := range s.Values {
		if k == flashKey {
			continue
		}
		delete(s.Values, k)
	}
	m.save(w, r, s)
}

const flashKey = "_flash"

// AddFlash queues an alert for the next rendered page.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, message string) {
	s := m.get(r)
	s.AddFlash(message)
	m.save(w, r, s)
}

// Flashes pops the queued alerts.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	s := m.get(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	m.save(w, r, s)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

// SetRedirectAfterLogin remembers where to go once signed in.
func (m *Manager) SetRedirectAfterLogin(w http.ResponseWriter, r *http.Request, target string) {
	s := m.get(r)
	s.Values[keyRedirectAfter] = target
	m.save(w, r, s)
}

// PopRedirectAfterLogin returns and forgets the remembered target.
func (m *Manager) PopRedirectAfterLogin(w http.ResponseWriter, r *http.Request) string {
	s := m.get(r)
	target := stringValue(s.Values[keyRedirectAfter])
	if target == "" {
		return ""
	}
	delete(s.Values, keyRedirectAfter)
	m.save(w, r, s)
	return target
}

func draftKey(draftSession, courseID string) string {
	return draftSession + ":" + courseID
}

// Draft returns the unsaved edits of a course.
func (m *Manager) Draft(r *http.Request, courseID string) (models.CourseDraft, bool) {
	sid := stringValue(m.get(r).Values[keyDraftSession])
	if sid == "" {
		return models.CourseDraft{}, false
	}
	d, ok, err := m.drafts.Get(r.Context(), draftKey(sid, courseID))
	if err != nil {
		logger.Error().Err(err).Str("courseID", courseID).Msg("Failed to load draft")
		return models.CourseDraft{}, false
	}
	return d, ok
}

// SetDraft stores unsaved edits of a course, giving the session a draft id
// on first use.
func (m *Manager) SetDraft(w http.ResponseWriter, r *http.Request, courseID string, d models.CourseDraft) error {
	s := m.get(r)
	sid := stringValue(s.Values[keyDraftSession])
	if sid == "" {
		sid = uuid.New().String()
		s.Values[keyDraftSession] = sid
		if err := m.save(w, r, s); err != nil {
			return err
		}
	}
	return m.drafts.Set(r.Context(), draftKey(sid, courseID), d)
}

// ClearDraft drops the unsaved edits of a course.
func (m *Manager) ClearDraft(r *http.Request, courseID string) error {
	sid := stringValue(m.get(r).Values[keyDraftSession])
	if sid == "" {
		return nil
	}
	return m.drafts.Delete(r.Context(), draftKey(sid, courseID))
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
