package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

const (
	defaultAPIBase      = "https://api.cloudinary.com"
	defaultDeliveryBase = "https://res.cloudinary.com"
)

// CloudinaryConfig configures the hosted media backend.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	// APIKey and APISecret enable signed deletes. Uploads are unsigned.
	APIKey    string
	APISecret string
	// APIBase and DeliveryBase override the public endpoints.
	APIBase      string
	DeliveryBase string
}

// Cloudinary uploads through an unsigned preset.
type Cloudinary struct {
	cfg        CloudinaryConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewCloudinary creates a Cloudinary backend.
func NewCloudinary(cfg CloudinaryConfig, httpClient *http.Client) *Cloudinary {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.DeliveryBase == "" {
		cfg.DeliveryBase = defaultDeliveryBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	cfg.DeliveryBase = strings.TrimRight(cfg.DeliveryBase, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Cloudinary{cfg: cfg, httpClient: httpClient, now: time.Now}
}

type cloudinaryResponse struct {
	PublicID string `json:"public_id"`
	Result   string `json:"result"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the file with the configured preset and returns its public_id.
// The multipart body is streamed from r as the request is sent.
func (c *Cloudinary) Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeUploadBody(mw, c.cfg.UploadPreset, filename, r))
	}()
	// r belongs to the caller again once Upload returns.
	defer func() {
		pr.Close()
		<-done
	}()

	var out cloudinaryResponse
	if err := c.post(ctx, c.endpoint(kind, "upload"), mw.FormDataContentType(), pr, &out); err != nil {
		return "", err
	}
	if out.PublicID == "" {
		return "", apperrors.NewMediaError("media host returned no public_id")
	}

	logger.Info().Str("kind", string(kind)).Str("publicID", out.PublicID).Msg("Media uploaded")
	return out.PublicID, nil
}

// writeUploadBody writes the preset ahead of the file so the host can
// reject a bad preset before the file arrives.
func writeUploadBody(mw *multipart.Writer, preset, filename string, r io.Reader) error {
	if err := mw.WriteField("upload_preset", preset); err != nil {
		return fmt.Errorf("failed to write upload preset: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return nil
}

// Destroy deletes publicID. It needs an API key and secret.
func (c *Cloudinary) Destroy(ctx context.Context, kind Kind, publicID string) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return ErrDestroyUnsupported
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", Sign(params, c.cfg.APISecret))

	var out cloudinaryResponse
	if err := c.post(ctx, c.endpoint(kind, "destroy"), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out); err != nil {
		return err
	}
	if out.Result != "ok" && out.Result != "not found" {
		return apperrors.NewMediaError("destroy failed: " + out.Result)
	}
	logger.Info().Str("kind", string(kind)).Str("publicID", publicID).Str("result", out.Result).Msg("Media destroyed")
	return nil
}

// URL builds the image delivery URL for publicID.
func (c *Cloudinary) URL(publicID, transform string) string {
	if publicID == "" {
		return ""
	}
	if transform == "" {
		return fmt.Sprintf("%s/%s/image/upload/%s", c.cfg.DeliveryBase, c.cfg.CloudName, publicID)
	}
	return fmt.Sprintf("%s/%s/image/upload/%s/%s", c.cfg.DeliveryBase, c.cfg.CloudName, transform, publicID)
}

func (c *Cloudinary) endpoint(kind Kind, action string) string {
	return fmt.Sprintf("%s/v1_1/%s/%s/%s", c.cfg.APIBase, c.cfg.CloudName, kind, action)
}

func (c *Cloudinary) post(ctx context.Context, endpoint, contentType string, body io.Reader, out *cloudinaryResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build media request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("endpoint", endpoint).Msg("Media host request failed")
		return apperrors.NewMediaError(err.Error())
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Error().Err(err).Int("status", resp.StatusCode).Msg("Failed to decode media host response")
		return apperrors.NewMediaError(fmt.Sprintf("unexpected media host response (status %d)", resp.StatusCode))
	}
	if out.Error != nil {
		logger.Warn().Int("status", resp.StatusCode).Str("message", out.Error.Message).Msg("Media host returned an error")
		return apperrors.NewMediaError(out.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.NewMediaError(http.StatusText(resp.StatusCode))
	}
	return nil
}

// Sign computes the SHA-1 request signature: parameters sorted by name,
// joined as k=v pairs with '&', followed by the secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
