package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/submitguard"
)

func newTestManager(drafts DraftStore) *Manager {
	return NewManager(Options{Name: "test-session", Secret: strings.Repeat("s", 32), MaxAge: 3600, Drafts: drafts})
}

// follow returns a request carrying the cookies a response set.
func follow(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func longDraft() models.CourseDraft {
	d := models.CourseDraft{Title: "Torts", Description: "Civil wrongs"}
	for i := 0; i < 40; i++ {
		d.Objectives = append(d.Objectives, fmt.Sprintf("Objective %02d: %s", i, strings.Repeat("y", 52)))
	}
	return d
}

func TestLongDraftRoundTrip(t *testing.T) {
	m := newTestManager(NewMemoryDraftStore(time.Hour, 0))
	w := httptest.NewRecorder()
	m.SetAuth(w, httptest.NewRequest(http.MethodGet, "/", nil), Auth{
		AccessToken:  strings.Repeat("a", 900),
		RefreshToken: strings.Repeat("r", 40),
		UserID:       "u1",
	})

	want := longDraft()
	w2 := httptest.NewRecorder()
	if err := m.SetDraft(w2, follow(w), "c1", want); err != nil {
		t.Fatalf("SetDraft: %v", err)
	}
	cookies := w2.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookie written")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[len(cookies)-1])
	got, ok := m.Draft(r, "c1")
	if !ok || !reflect.DeepEqual(got, want) {
		t.Fatalf("Draft = %v, %v", ok, got.Objectives)
	}
	if !m.Auth(r).Valid() {
		t.Fatalf("credentials lost")
	}
	if _, ok := m.Draft(r, "c2"); ok {
		t.Fatalf("drafts must be per course")
	}

	if err := m.ClearDraft(r, "c1"); err != nil {
		t.Fatalf("ClearDraft: %v", err)
	}
	if _, ok := m.Draft(r, "c1"); ok {
		t.Fatalf("draft survived ClearDraft")
	}
}

func TestDraftsAreScopedToSession(t *testing.T) {
	m := newTestManager(nil)
	w := httptest.NewRecorder()
	if err := m.SetDraft(w, httptest.NewRequest(http.MethodGet, "/", nil), "c1", models.CourseDraft{Title: "Mine"}); err != nil {
		t.Fatalf("SetDraft: %v", err)
	}
	if _, ok := m.Draft(httptest.NewRequest(http.MethodGet, "/", nil), "c1"); ok {
		t.Fatalf("another browser sees the draft")
	}

	r := follow(w)
	w2 := httptest.NewRecorder()
	m.ClearAuth(w2, r)
	if _, ok := m.Draft(follow(w2), "c1"); ok {
		t.Fatalf("draft reachable after sign out")
	}
}

func TestMemoryDraftStoreExpiryAndLimit(t *testing.T) {
	s := NewMemoryDraftStore(time.Minute, 2)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, key, models.CourseDraft{Title: key}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		now = now.Add(time.Second)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("oldest draft should have been dropped")
	}
	if d, ok, _ := s.Get(ctx, "c"); !ok || d.Title != "c" {
		t.Fatalf("latest draft missing")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "c"); ok {
		t.Fatalf("expired draft returned")
	}
	if s.Len() != 0 {
		t.Fatalf("expired drafts should be purged")
	}
}

func TestMemoryDraftStoreCopiesObjectives(t *testing.T) {
	s := NewMemoryDraftStore(time.Minute, 0)
	ctx := context.Background()
	d := models.CourseDraft{Objectives: []string{"a"}}
	_ = s.Set(ctx, "k", d)
	d.Objectives[0] = "changed"

	got, _, _ := s.Get(ctx, "k")
	if got.Objectives[0] != "a" {
		t.Fatalf("stored draft aliased the caller's slice")
	}
}

func TestRedisDraftStoreIntegration(t *testing.T) {
	addr := os.Getenv("ACADEMY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ACADEMY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := submitguard.NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	s := NewRedisDraftStore(client, time.Minute)
	want := longDraft()
	if err := s.Set(ctx, "it:c1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "it:c1")
	if err != nil || !ok || !reflect.DeepEqual(got, want) {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "it:c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "it:c1"); ok {
		t.Fatalf("draft survived Delete")
	}
}
