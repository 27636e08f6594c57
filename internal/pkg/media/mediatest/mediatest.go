// Package mediatest provides an in-memory media host for tests.
package mediatest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/media"
)

// Host records uploads and destroys. URLs look like
// "https://media.test/<transform>/<id>".
type Host struct {
	mu sync.Mutex

	// UploadErr, when set, fails every upload with the given message.
	UploadErr string
	// DestroyErr is returned by Destroy when set.
	DestroyErr error

	Uploaded  map[string][]byte
	Destroyed []string
	n         int
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{Uploaded: map[string][]byte{}}
}

func (h *Host) Upload(ctx context.Context, kind media.Kind, filename string, r io.Reader) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.UploadErr != "" {
		return "", apperrors.NewMediaError(h.UploadErr)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	h.n++
	id := fmt.Sprintf("%s-%d", kind, h.n)
	h.Uploaded[id] = data
	return id, nil
}

func (h *Host) Destroy(ctx context.Context, kind media.Kind, publicID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.DestroyErr != nil {
		return h.DestroyErr
	}
	delete(h.Uploaded, publicID)
	h.Destroyed = append(h.Destroyed, publicID)
	return nil
}

func (h *Host) URL(publicID, transform string) string {
	return "https://media.test/" + transform + "/" + publicID
}

// Count returns the number of stored items.
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Uploaded)
}
