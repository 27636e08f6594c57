// Package media uploads course images and lesson videos to a media host and
// builds delivery URLs for stored content identifiers.
package media

import (
	"context"
	"errors"
	"io"
)

// Kind selects the upload endpoint.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Delivery transforms used by the pages.
const (
	TransformCatalogCard   = "w_400,h_225,c_fill"
	TransformDetail        = "w_400,q_auto,f_auto"
	TransformManagePreview = "w_400,h_250,c_fill"
)

// ErrDestroyUnsupported is returned by hosts that cannot delete content with
// the configured credentials.
var ErrDestroyUnsupported = errors.New("media destroy not supported")

// Uploader stores binary content and returns its public identifier.
type Uploader interface {
	Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (string, error)
	Destroy(ctx context.Context, kind Kind, publicID string) error
}

// Linker turns a stored identifier into a delivery URL.
type Linker interface {
	URL(publicID, transform string) string
}

// Host is a media backend that can both store and deliver.
type Host interface {
	Uploader
	Linker
}
