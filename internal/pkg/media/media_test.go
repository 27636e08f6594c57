package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/commandinlaw/academy/internal/pkg/apperrors"
)

func TestCloudinaryURLConvention(t *testing.T) {
	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", UploadPreset: "ml_default"}, nil)
	cases := map[string]string{
		TransformCatalogCard:   "https://res.cloudinary.com/demo/image/upload/w_400,h_225,c_fill/courses/abc",
		TransformDetail:        "https://res.cloudinary.com/demo/image/upload/w_400,q_auto,f_auto/courses/abc",
		TransformManagePreview: "https://res.cloudinary.com/demo/image/upload/w_400,h_250,c_fill/courses/abc",
	}
	for transform, want := range cases {
		if got := c.URL("courses/abc", transform); got != want {
			t.Fatalf("URL(%q) = %q, want %q", transform, got, want)
		}
	}
	if got := c.URL("", TransformDetail); got != "" {
		t.Fatalf("empty id should give empty url, got %q", got)
	}
}

func TestCloudinaryUploadPostsPresetAndFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/video/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("upload_preset"); got != "ml_default" {
			t.Errorf("upload_preset = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			b, _ := io.ReadAll(f)
			if string(b) != "video-bytes" || hdr.Filename != "intro.mp4" {
				t.Errorf("file = %q %q", hdr.Filename, b)
			}
		}
		_, _ = io.WriteString(w, `{"public_id":"lessons/intro"}`)
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", UploadPreset: "ml_default", APIBase: srv.URL}, srv.Client())
	id, err := c.Upload(context.Background(), KindVideo, "intro.mp4", strings.NewReader("video-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id != "lessons/intro" {
		t.Fatalf("public id = %q", id)
	}
}

// gatedReader serves head, then blocks until the server has seen part of
// it before serving tail.
type gatedReader struct {
	head *bytes.Reader
	gate <-chan struct{}
	tail io.Reader
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if g.head.Len() > 0 {
		return g.head.Read(p)
	}
	if g.gate != nil {
		select {
		case <-g.gate:
			g.gate = nil
		case <-time.After(5 * time.Second):
			return 0, errors.New("upload body was not sent before the source was drained")
		}
	}
	return g.tail.Read(p)
}

func TestCloudinaryUploadStreamsBody(t *testing.T) {
	const (
		headSize = 256 << 10
		tailSize = 4 << 20
		seen     = 64 << 10
	)
	gate := make(chan struct{})
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart reader: %v", err)
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("next part: %v", err)
				return
			}
			if part.FormName() != "file" {
				continue
			}
			buf := make([]byte, seen)
			if _, err := io.ReadFull(part, buf); err != nil {
				t.Errorf("read file start: %v", err)
				return
			}
			close(gate)
			n, _ := io.Copy(io.Discard, part)
			received.Store(int64(seen) + n)
		}
		_, _ = io.WriteString(w, `{"public_id":"lessons/big"}`)
	}))
	defer srv.Close()

	src := &gatedReader{
		head: bytes.NewReader(bytes.Repeat([]byte("h"), headSize)),
		gate: gate,
		tail: io.LimitReader(zeroReader{}, tailSize),
	}
	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", UploadPreset: "ml_default", APIBase: srv.URL}, srv.Client())
	id, err := c.Upload(context.Background(), KindVideo, "big.mp4", src)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id != "lessons/big" {
		t.Fatalf("public id = %q", id)
	}
	if got := received.Load(); got != headSize+tailSize {
		t.Fatalf("received %d bytes, want %d", got, headSize+tailSize)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestCloudinaryUploadErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Upload preset not found"}}`)
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", UploadPreset: "nope", APIBase: srv.URL}, srv.Client())
	_, err := c.Upload(context.Background(), KindImage, "a.png", strings.NewReader("x"))
	if !errors.Is(err, apperrors.ErrMediaUpload) {
		t.Fatalf("expected media error, got %v", err)
	}
	if apperrors.Message(err) != "Upload preset not found" {
		t.Fatalf("message = %q", apperrors.Message(err))
	}
}

func TestCloudinaryDestroySigned(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/destroy" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		want := Sign(map[string]string{"public_id": "courses/abc", "timestamp": "1700000000"}, "secret")
		if r.PostForm.Get("signature") != want || r.PostForm.Get("api_key") != "key" {
			t.Errorf("bad signature fields: %v", r.PostForm)
		}
		_, _ = io.WriteString(w, `{"result":"ok"}`)
	}))
	defer srv.Close()

	c := NewCloudinary(CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret", APIBase: srv.URL}, srv.Client())
	c.now = func() time.Time { return fixed }
	if err := c.Destroy(context.Background(), KindImage, "courses/abc"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}

func TestCloudinaryDestroyWithoutCredentials(t *testing.T) {
	c := NewCloudinary(CloudinaryConfig{CloudName: "demo"}, nil)
	if err := c.Destroy(context.Background(), KindImage, "x"); !errors.Is(err, ErrDestroyUnsupported) {
		t.Fatalf("expected ErrDestroyUnsupported, got %v", err)
	}
}

func TestSignMatchesKnownValue(t *testing.T) {
	// sha1("public_id=sample&timestamp=1315060510abcd")
	got := Sign(map[string]string{"timestamp": "1315060510", "public_id": "sample"}, "abcd")
	if got != "c3470533147774275dd37996cc4d0e68fd03cd4f" {
		t.Fatalf("signature = %s", got)
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	id, err := ls.Upload(context.Background(), KindImage, "Cover.PNG", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(id, "image/") || !strings.HasSuffix(id, ".png") {
		t.Fatalf("public id = %q", id)
	}
	if got := ls.URL(id, TransformCatalogCard); got != "http://localhost:8080/uploads/"+id {
		t.Fatalf("URL = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(id))); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	if err := ls.Destroy(context.Background(), KindImage, id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(id))); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := ls.Destroy(context.Background(), KindImage, id); err != nil {
		t.Fatalf("second Destroy should be a no-op: %v", err)
	}
}

func TestLocalStorageRejectsRoot(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if err := ls.Destroy(context.Background(), KindImage, "../.."); err == nil {
		t.Fatalf("expected error for path escaping the root")
	}
}
