// Package api is the HTTP client for the task-management backend.
//
// Every call carries a fresh X-Request-ID and, when a TokenSource is set
// and has a credential, an "Authorization: Bearer" header. Failures are
// returned as *Error values that unwrap to the package sentinels, so
// callers match them with errors.Is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/google/uuid"
)

const maxErrorBody = 64 << 10

// TokenSource supplies the bearer credential for outgoing requests.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
	timeout time.Duration

	mu     sync.RWMutex
	tokens TokenSource
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a client for the backend rooted at baseURL
// (e.g. "https://localhost:7083").
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		logger:  logging.Discard(),
		timeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "api")
	return c, nil
}

// SetTokenSource installs ts after construction. The session store needs
// the client to exist before it can be built, so the two are wired in
// this order.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+tok)
	}

	log := c.logger.With("request_id", requestID, "method", method, "path", path)
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn(ctx, "request failed", "error", err.Error())
		return &Error{Err: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	log.Debug(ctx, "request done", "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Err:        statusError(resp.StatusCode),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: err.Error(), Err: ErrBadResponse}
	}
	return nil
}

// errorMessage pulls a human message out of an error body. The backend
// answers with {"message": ...}, ASP.NET problem details ({"title": ...})
// or plain text. It returns "" when the body says nothing useful.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.Detail != "":
			return body.Detail
		case body.Title != "":
			return body.Title
		}
	}

	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") {
		return ""
	}
	return text
}

// Login exchanges email and password for a bearer credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/Auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode != 0 && apiErr.Message == "" {
			// The backend answers bad credentials with a bare 401.
			apiErr.Message = "authentication error"
		}
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{StatusCode: http.StatusOK, Message: "login response has no token", Err: ErrBadResponse}
	}
	return resp.Token, nil
}
