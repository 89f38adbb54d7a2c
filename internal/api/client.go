// Package api is the HTTP client for the ledger admin API. Every call is an
// authenticated JSON POST to a named path and returns a {success, data} envelope.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// MediaType is the versioned media type the API expects.
const MediaType = "application/vnd.omisego.v1+json"

// ErrUnauthorized indicates the API rejected the configured credentials.
var ErrUnauthorized = errors.New("api: unauthorized")

// APIError is a failure reported by the API inside a success=false envelope,
// or an HTTP error status without a decodable envelope.
type APIError struct {
	Path        string
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: %s: HTTP %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api: %s: %s: %s", e.Path, e.Code, e.Description)
}

// Is matches ErrUnauthorized for 401 responses and auth error codes.
func (e *APIError) Is(target error) bool {
	if target != ErrUnauthorized {
		return false
	}
	return e.StatusCode == http.StatusUnauthorized ||
		strings.HasSuffix(e.Code, "invalid_auth_scheme") ||
		strings.HasSuffix(e.Code, "access_token_not_found") ||
		strings.HasSuffix(e.Code, "access_token_expired")
}

type envelope struct {
	Version string          `json:"version"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorData struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Client issues authenticated requests against one API base URL.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userID    string
	authToken string
	logger    *zap.Logger

	mu        sync.RWMutex
	accountID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Its timeout is left as
// configured.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client. It has
// no effect when WithHTTPClient is given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCredentials sets the admin user id and auth token.
func WithCredentials(userID, authToken string) Option {
	return func(c *Client) {
		c.userID = userID
		c.authToken = authToken
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for baseURL, e.g. https://ledger.example.com/api/admin.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// SetAccount sets the account id sent with subsequent requests.
func (c *Client) SetAccount(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountID = id
}

// Account returns the account id sent with requests.
func (c *Client) Account() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

// Call posts data to path and returns the envelope's data payload.
func (c *Client) Call(ctx context.Context, path string, data any) (json.RawMessage, error) {
	body, status, err := c.post(ctx, path, data)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status >= 400 {
			return nil, &APIError{Path: path, StatusCode: status}
		}
		return nil, fmt.Errorf("api: %s: decoding response: %w", path, err)
	}
	if !env.Success {
		var ed errorData
		if err := json.Unmarshal(env.Data, &ed); err != nil {
			c.logger.Warn("malformed error response",
				zap.String("path", path),
				zap.Int("status", status),
				zap.Error(err),
			)
			return nil, &APIError{Path: path, StatusCode: status}
		}
		return nil, &APIError{Path: path, StatusCode: status, Code: ed.Code, Description: ed.Description}
	}
	return env.Data, nil
}

// Download posts data to path and returns the raw response body.
func (c *Client) Download(ctx context.Context, path string, data any) ([]byte, error) {
	body, status, err := c.post(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &APIError{Path: path, StatusCode: status}
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string, data any) ([]byte, int, error) {
	if data == nil {
		data = struct{}{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, 0, fmt.Errorf("api: %s: encoding request: %w", path, err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("api: %s: building request: %w", path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", MediaType)
	req.Header.Set("Accept", MediaType)
	req.Header.Set("X-Request-ID", requestID)
	if c.userID != "" || c.authToken != "" {
		req.Header.Set("Authorization", AuthHeader(c.userID, c.authToken))
	}
	if acc := c.Account(); acc != "" {
		req.Header.Set("X-Account-ID", acc)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("path", path), zap.String("request_id", requestID), zap.Error(err))
		return nil, 0, fmt.Errorf("api: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("api: %s: reading response: %w", path, err)
	}
	c.logger.Debug("request",
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	return body, resp.StatusCode, nil
}

// AuthHeader builds the admin Authorization header value.
func AuthHeader(userID, authToken string) string {
	creds := base64.StdEncoding.EncodeToString([]byte(userID + ":" + authToken))
	return "OMGAdmin " + creds
}

// ListParams are the common parameters of every list endpoint.
type ListParams struct {
	Page       int
	PerPage    int
	SortBy     string
	SortDir    string
	SearchTerm string
	MatchAll   []ledger.Condition
	MatchAny   []ledger.Condition
	Extra      map[string]any
}

func (p ListParams) payload() map[string]any {
	out := make(map[string]any, len(p.Extra)+7)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Page > 0 {
		out["page"] = p.Page
	}
	if p.PerPage > 0 {
		out["per_page"] = p.PerPage
	}
	if p.SortBy != "" {
		out["sort_by"] = p.SortBy
	}
	if p.SortDir != "" {
		out["sort_dir"] = p.SortDir
	}
	if p.SearchTerm != "" {
		out["search_term"] = p.SearchTerm
	}
	if len(p.MatchAll) > 0 {
		out["match_all"] = p.MatchAll
	}
	if len(p.MatchAny) > 0 {
		out["match_any"] = p.MatchAny
	}
	return out
}

// Page is one page of a list response.
type Page[T ledger.Record] struct {
	Data       []T
	Pagination ledger.Pagination
}

type rawPage struct {
	Data       json.RawMessage   `json:"data"`
	Pagination ledger.Pagination `json:"pagination"`
}

// List calls a paginated list endpoint and validates every returned record.
func List[T ledger.Record](ctx context.Context, c *Client, path string, p ListParams) (Page[T], error) {
	raw, err := c.Call(ctx, path, p.payload())
	if err != nil {
		return Page[T]{}, err
	}
	var rp rawPage
	if err := json.Unmarshal(raw, &rp); err != nil {
		return Page[T]{}, fmt.Errorf("api: %s: decoding page: %w", path, err)
	}
	items, err := ledger.Decode[T](rp.Data)
	if err != nil {
		return Page[T]{}, fmt.Errorf("api: %s: %w", path, err)
	}
	return Page[T]{Data: items, Pagination: rp.Pagination}, nil
}

// Get calls a single-record endpoint and validates the result.
func Get[T ledger.Record](ctx context.Context, c *Client, path string, data any) (T, error) {
	raw, err := c.Call(ctx, path, data)
	if err != nil {
		var zero T
		return zero, err
	}
	item, err := ledger.DecodeOne[T](raw)
	if err != nil {
		return item, fmt.Errorf("api: %s: %w", path, err)
	}
	return item, nil
}
