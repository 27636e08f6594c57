// Package postgrest is a small client for the PostgREST endpoint of a hosted
// Supabase project (/rest/v1).
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/commandinlaw/academy/internal/pkg/logger"
)

const (
	restPath = "/rest/v1/"

	mimeJSON   = "application/json"
	mimeObject = "application/vnd.pgrst.object+json"

	// CodeNoRows is reported when a single-object read matched zero or many rows.
	CodeNoRows = "PGRST116"
	// CodeInvalidText is the postgres code for a malformed literal such as a bad uuid.
	CodeInvalidText = "22P02"
)

// Error is a failure reported by PostgREST. Message is the server's text.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("postgrest request failed with status %d", e.Status)
}

// NotFound reports whether the error means the requested row does not exist.
func (e *Error) NotFound() bool {
	return e.Code == CodeNoRows || e.Code == CodeInvalidText
}

// Query describes a read.
type Query struct {
	// Select is the select= expression, embeds included.
	Select string
	// Eq holds column = value filters.
	Eq map[string]string
	// Order is the order= expression, e.g. "created_at.desc".
	Order string
	// Single asks for exactly one object instead of an array.
	Single bool
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Select != "" {
		v.Set("select", compactSelect(q.Select))
	}
	for col, val := range q.Eq {
		v.Set(col, "eq."+val)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	return v
}

// Client talks to one PostgREST endpoint.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a Client for the Supabase project at baseURL.
func NewClient(baseURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: httpClient,
	}
}

// Select reads table into dest. token is the caller's access token; when
// empty the anon key is used and row level security applies to anonymous.
func (c *Client) Select(ctx context.Context, token, table string, q Query, dest interface{}) error {
	accept := mimeJSON
	if q.Single {
		accept = mimeObject
	}
	return c.do(ctx, http.MethodGet, token, table, q.values(), nil, accept, "", dest)
}

// Insert adds row to table. When dest is not nil the inserted representation
// is decoded into it.
func (c *Client) Insert(ctx context.Context, token, table string, row interface{}, dest interface{}) error {
	prefer := "return=minimal"
	if dest != nil {
		prefer = "return=representation"
	}
	return c.do(ctx, http.MethodPost, token, table, nil, row, mimeJSON, prefer, dest)
}

// Update patches the rows of table matching eq. When dest is not nil the
// updated rows are decoded into it.
func (c *Client) Update(ctx context.Context, token, table string, eq map[string]string, patch interface{}, dest interface{}) error {
	prefer := "return=minimal"
	if dest != nil {
		prefer = "return=representation"
	}
	return c.do(ctx, http.MethodPatch, token, table, Query{Eq: eq}.values(), patch, mimeJSON, prefer, dest)
}

func (c *Client) do(ctx context.Context, method, token, table string, params url.Values, body interface{}, accept, prefer string, dest interface{}) error {
	endpoint := c.baseURL + restPath + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", table, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", table, err)
	}
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", mimeJSON)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Str("method", method).Msg("PostgREST request failed")
		return fmt.Errorf("postgrest %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", table, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		perr := &Error{Status: resp.StatusCode}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, perr)
		}
		logger.Warn().
			Str("table", table).
			Str("method", method).
			Int("status", resp.StatusCode).
			Str("code", perr.Code).
			Str("message", perr.Message).
			Msg("PostgREST returned an error")
		return perr
	}

	if dest == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return nil
}

// compactSelect strips the whitespace that multi-line select expressions carry.
func compactSelect(s string) string {
	return strings.Join(strings.Fields(s), "")
}
