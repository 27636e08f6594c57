package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type row struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestSelectSendsFiltersAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/courses" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("select"); got != "id,title,profiles(full_name)" {
			t.Fatalf("select = %q", got)
		}
		if got := q.Get("instructor_id"); got != "eq.u1" {
			t.Fatalf("filter = %q", got)
		}
		if got := q.Get("order"); got != "created_at.desc" {
			t.Fatalf("order = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon" {
			t.Fatalf("apikey = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Fatalf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]row{{ID: "c1", Title: "Torts"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "anon", srv.Client())
	var out []row
	err := c.Select(context.Background(), "user-token", "courses", Query{
		Select: "id, title,\n profiles ( full_name )",
		Eq:     map[string]string{"instructor_id": "u1"},
		Order:  "created_at.desc",
	}, &out)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Torts" {
		t.Fatalf("unexpected rows: %#v", out)
	}
}

func TestSelectSingleUsesObjectAcceptAndAnonFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.pgrst.object+json" {
			t.Fatalf("accept = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon" {
			t.Fatalf("authorization = %q", got)
		}
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = io.WriteString(w, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", srv.Client())
	var out row
	err := c.Select(context.Background(), "", "courses", Query{Select: "id", Eq: map[string]string{"id": "missing"}, Single: true}, &out)
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !perr.NotFound() || perr.Status != http.StatusNotAcceptable {
		t.Fatalf("unexpected error: %#v", perr)
	}
}

func TestInsertReturnsServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Fatalf("prefer = %q", got)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["title"] != "Contracts" {
			t.Fatalf("body = %#v", body)
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","message":"new row violates row-level security policy for table \"courses\""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", srv.Client())
	var out []row
	err := c.Insert(context.Background(), "tok", "courses", map[string]string{"title": "Contracts"}, &out)
	if err == nil || err.Error() != `new row violates row-level security policy for table "courses"` {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateFiltersByEq(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.c1" {
			t.Fatalf("filter = %q", got)
		}
		if got := r.Header.Get("Prefer"); got != "return=minimal" {
			t.Fatalf("prefer = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", srv.Client())
	if err := c.Update(context.Background(), "tok", "courses", map[string]string{"id": "c1"}, map[string]string{"image_url": "x"}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
}
