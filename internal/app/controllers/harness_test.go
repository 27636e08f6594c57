package controllers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/commandinlaw/academy/internal/app/controllers"
	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories/repotest"
	"github.com/commandinlaw/academy/internal/app/routes"
	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/config"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/identity"
	"github.com/commandinlaw/academy/internal/pkg/media/mediatest"
	"github.com/commandinlaw/academy/internal/pkg/session"
	"github.com/commandinlaw/academy/internal/pkg/submitguard"
	"github.com/commandinlaw/academy/internal/web"
)

const sessionName = "test-session"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeIdentity accepts tokens of the form "token-<user id>".
type fakeIdentity struct {
	mu        sync.Mutex
	passwords map[string]string
	signedOut []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{passwords: map[string]string{}}
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (*identity.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[email]; ok {
		return nil, apperrors.NewUpstreamError("User already registered", http.StatusUnprocessableEntity)
	}
	f.passwords[email] = password
	return &identity.SignUpResult{User: identity.User{ID: "user-" + email, Email: email}}, nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return nil, apperrors.NewUpstreamError("Invalid login credentials", http.StatusBadRequest)
	}
	id := "user-" + email
	return &identity.Session{
		AccessToken:  "token-" + id,
		RefreshToken: "refresh-" + id,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         identity.User{ID: id, Email: email},
	}, nil
}

func (f *fakeIdentity) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	id := strings.TrimPrefix(accessToken, "token-")
	if id == accessToken || id == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	return &identity.User{ID: id}, nil
}

func (f *fakeIdentity) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	return nil, apperrors.ErrUnauthenticated
}

func (f *fakeIdentity) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

type harness struct {
	t        *testing.T
	store    *repotest.Store
	host     *mediatest.Host
	idp      *fakeIdentity
	guard    *submitguard.MemoryGuard
	sessions *session.Manager
	router   *gin.Engine
}

func newHarness(t *testing.T, saveAllMode string) *harness {
	t.Helper()
	return newHarnessWithDrafts(t, saveAllMode, session.NewMemoryDraftStore(time.Hour, 0))
}

func newHarnessWithDrafts(t *testing.T, saveAllMode string, drafts session.DraftStore) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		store: repotest.NewStore(),
		host:  mediatest.NewHost(),
		idp:   newFakeIdentity(),
		guard: submitguard.NewMemoryGuard(time.Hour, 0),
		sessions: session.NewManager(session.Options{
			Name:   sessionName,
			Secret: strings.Repeat("k", 32),
			MaxAge: 3600,
			Drafts: drafts,
		}),
	}

	svc := services.NewServices(h.store.Repositories(), h.idp, h.host, services.Options{SaveAllMode: saveAllMode})
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	h.router = gin.New()
	h.router.HTMLRender = renderer
	routes.SetupRouter(h.router,
		controllers.NewPageController(svc.Catalog, h.host, h.sessions),
		controllers.NewAuthController(svc.Auth, h.sessions, zerolog.Nop()),
		controllers.NewDashboardController(svc.Dashboard, svc.Course, h.guard, h.sessions),
		controllers.NewManageController(svc.Course, h.host, h.guard, h.sessions, 10<<20),
		controllers.NewAPIController(svc.Catalog, h.host, config.BackendSupabase, config.MediaCloudinary),
		middleware.NewAuthMiddleware(h.sessions, svc.Auth, svc.Dashboard),
		nil,
	)
	return h
}

func strPtr(s string) *string { return &s }

// instructor registers a profile allowed to use the dashboard.
func (h *harness) instructor(id string) {
	h.store.AddProfile(id, strPtr("Instructor "+id), models.RoleInstructor)
}

// client carries one browser's session cookie between requests.
type client struct {
	h      *harness
	cookie *http.Cookie
}

func (h *harness) anonymous() *client {
	return &client{h: h}
}

// as returns a client already signed in as userID.
func (h *harness) as(userID string) *client {
	h.t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	h.sessions.SetAuth(w, r, session.Auth{
		AccessToken:  "token-" + userID,
		RefreshToken: "refresh-" + userID,
		UserID:       userID,
		Email:        userID + "@example.test",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	c := &client{h: h}
	c.keep(w.Result())
	if c.cookie == nil {
		h.t.Fatalf("no session cookie written")
	}
	return c
}

// keep stores the last session cookie a response set.
func (c *client) keep(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != sessionName {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
			continue
		}
		c.cookie = ck
	}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(&http.Cookie{Name: c.cookie.Name, Value: c.cookie.Value})
	}
	w := httptest.NewRecorder()
	c.h.router.ServeHTTP(w, req)
	c.keep(w.Result())
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// upload posts a multipart form. An empty fileField sends no file part.
func (c *client) upload(path string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	c.h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			c.h.t.Fatalf("WriteField: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			c.h.t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(content)); err != nil {
			c.h.t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		c.h.t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

var tokenPattern = regexp.MustCompile(`name="form_token" value="([^"]+)"`)

// formTokens returns every one-time token rendered in body, in page order.
func formTokens(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, m := range tokenPattern.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	if len(out) == 0 {
		t.Fatalf("no form token in page")
	}
	return out
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound && w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect; body: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func expectBody(t *testing.T, w *httptest.ResponseRecorder, wants ...string) {
	t.Helper()
	body := w.Body.String()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func rejectBody(t *testing.T, w *httptest.ResponseRecorder, unwanted ...string) {
	t.Helper()
	body := w.Body.String()
	for _, u := range unwanted {
		if strings.Contains(body, u) {
			t.Fatalf("body unexpectedly contains %q:\n%s", u, body)
		}
	}
}
