package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// LocalStorage keeps media on the local filesystem for development. Public
// identifiers are "<kind>/<uuid><ext>" and are served under baseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a LocalStorage rooted at basePath.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath returns the directory served under the base URL.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Upload writes r under a unique name inside the kind's subdirectory.
func (ls *LocalStorage) Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(ls.basePath, string(kind))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	uniqueFilename := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	dstPath := filepath.Join(dir, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, r); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	publicID := path.Join(string(kind), uniqueFilename)
	logger.Info().Str("filename", filename).Str("publicID", publicID).Msg("File saved successfully")
	return publicID, nil
}

// Destroy removes the file behind publicID. Missing files are not an error.
func (ls *LocalStorage) Destroy(ctx context.Context, kind Kind, publicID string) error {
	physicalPath, err := ls.fullPath(publicID)
	if err != nil {
		return err
	}

	if _, err := os.Stat(physicalPath); os.IsNotExist(err) {
		logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
		return nil
	}

	if err := os.Remove(physicalPath); err != nil {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// URL returns the served location of publicID. Transforms are not applied.
func (ls *LocalStorage) URL(publicID, transform string) string {
	if publicID == "" {
		return ""
	}
	return ls.baseURL + "/" + strings.TrimLeft(publicID, "/")
}

// fullPath resolves publicID inside basePath, refusing anything that escapes it.
func (ls *LocalStorage) fullPath(publicID string) (string, error) {
	clean := path.Clean("/" + publicID)
	if clean == "/" {
		return "", fmt.Errorf("invalid file path: %s", publicID)
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
