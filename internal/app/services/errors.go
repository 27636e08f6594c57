package services

import (
	"fmt"

	"github.com/commandinlaw/academy/internal/pkg/media"
)

// UploadedButUnlinkedError reports a media upload that succeeded while the
// row write referencing it failed. The content may remain orphaned on the
// media host unless Cleaned is set.
type UploadedButUnlinkedError struct {
	Kind     media.Kind
	PublicID string
	Cleaned  bool
	Err      error
}

func (e *UploadedButUnlinkedError) Error() string {
	return fmt.Sprintf("%s %s uploaded but not linked: %v", e.Kind, e.PublicID, e.Err)
}

func (e *UploadedButUnlinkedError) Unwrap() error {
	return e.Err
}
