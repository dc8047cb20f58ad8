package todoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Service defines the todo operations the store depends on.
// This interface is implemented by *Client and can be used for testing.
type Service interface {
	ListAll(ctx context.Context) ([]Todo, error)
	GetByID(ctx context.Context, id int64) (Todo, error)
	Create(ctx context.Context, draft Todo) (Todo, error)
	Update(ctx context.Context, id int64, record Todo) (Todo, error)
	Delete(ctx context.Context, id int64) error
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// Client talks to the todo HTTP API. It keeps no state between calls.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	userAgent   string
	logger      *log.Logger
	checkSchema bool
}

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "teedee/0.1"
	requestTimeout   = 10 * time.Second

	requestIDHeader = "X-Request-ID"
	todosPath       = "todos/"
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger enables debug-level request tracing.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSchemaCheck toggles validation of response bodies against the Todo schema.
func WithSchemaCheck(enabled bool) Option {
	return func(c *Client) {
		c.checkSchema = enabled
	}
}

// NewClient builds a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent:   defaultUserAgent,
		logger:      log.New(io.Discard),
		checkSchema: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized endpoint the client talks to.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// ListAll fetches every todo in backend order.
func (c *Client) ListAll(ctx context.Context) ([]Todo, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []Todo
	if err := c.do(ctx, "list", http.MethodGet, todosPath, nil, &payload, true); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []Todo{}
	}
	return payload, nil
}

// GetByID fetches a single todo. A missing record yields a KindNotFound error.
func (c *Client) GetByID(ctx context.Context, id int64) (Todo, error) {
	if c == nil {
		return Todo{}, fmt.Errorf("client is nil")
	}
	var payload Todo
	if err := c.do(ctx, "get", http.MethodGet, itemPath(id), nil, &payload, false); err != nil {
		return Todo{}, err
	}
	return payload, nil
}

// Create submits a draft and returns the record with its assigned id.
func (c *Client) Create(ctx context.Context, draft Todo) (Todo, error) {
	if c == nil {
		return Todo{}, fmt.Errorf("client is nil")
	}
	var payload Todo
	if err := c.do(ctx, "create", http.MethodPost, todosPath, draft.WithoutID(), &payload, false); err != nil {
		return Todo{}, err
	}
	if payload.ID == nil {
		return Todo{}, contractError("create", http.MethodPost, todosPath, errors.New("created todo has no id"))
	}
	return payload, nil
}

// Update replaces the record at id and returns the backend's echo.
func (c *Client) Update(ctx context.Context, id int64, record Todo) (Todo, error) {
	if c == nil {
		return Todo{}, fmt.Errorf("client is nil")
	}
	var payload Todo
	path := itemPath(id)
	if err := c.do(ctx, "update", http.MethodPut, path, record.WithoutID(), &payload, false); err != nil {
		return Todo{}, err
	}
	switch {
	case payload.ID == nil:
		return Todo{}, contractError("update", http.MethodPut, path, errors.New("updated todo has no id"))
	case *payload.ID != id:
		return Todo{}, contractError("update", http.MethodPut, path,
			fmt.Errorf("updated todo has id %d, want %d", *payload.ID, id))
	}
	return payload, nil
}

// contractError reports a well-formed response that breaks the id contract.
func contractError(op, method, path string, err error) *TransportError {
	return &TransportError{
		Op:      op,
		Method:  method,
		Path:    path,
		Kind:    KindDecode,
		Message: "decode response",
		Err:     err,
	}
}

// Delete removes the record at id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, "delete", http.MethodDelete, itemPath(id), nil, nil, false)
}

func itemPath(id int64) string {
	return todosPath + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, dest any, list bool) error {
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", path, "request_id", requestID, "err", err)
		return &TransportError{
			Op:      op,
			Method:  method,
			Path:    path,
			Kind:    KindNetwork,
			Message: "execute request",
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request done",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Op:      op,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Kind:    kindForStatus(resp.StatusCode),
			Message: errorDetail(resp.Body),
		}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Method: method, Path: path, Kind: KindNetwork, Message: "read response", Err: err}
	}
	if err := c.decode(raw, dest, list); err != nil {
		return &TransportError{
			Op:      op,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Kind:    KindDecode,
			Message: "decode response",
			Err:     err,
		}
	}
	return nil
}

func (c *Client) decode(raw []byte, dest any, list bool) error {
	if c.checkSchema {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		var doc any
		if err := decoder.Decode(&doc); err != nil {
			return err
		}
		if err := checkShape(doc, list); err != nil {
			return fmt.Errorf("unexpected todo shape: %w", err)
		}
	}
	return json.Unmarshal(raw, dest)
}

// errorDetail extracts FastAPI-style {"detail": ...} messages, falling back to the trimmed body.
func errorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base_url %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base_url %q: missing host", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
