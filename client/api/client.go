// Package api is a typed client for the board REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"bragboard/client/session"
	cmnenv "bragboard/server/common/env"
	commonlog "bragboard/server/common/log"
)

const (
	IdempotencyHeader  = "Idempotency-Key"
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBodyBytes  = 4 << 10
)

// StatusError is returned for every non-2xx answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bragboard status %d", e.Code)
	}
	return fmt.Sprintf("bragboard status %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type idempotencyKeyContext struct{}

// WithIdempotencyKey makes mutations sent with ctx carry key instead of a
// freshly minted one. Repeats of one user action share a key so the server
// can reject the replay.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyContext{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyContext{}).(string)
	return key
}

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	newKey  func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient reads BRAGBOARD_HTTP_TIMEOUT_MS for the request timeout unless
// an option overrides it.
func NewClient(baseURL string, sess *session.Session, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if ms := cmnenv.Int("BRAGBOARD_HTTP_TIMEOUT_MS", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		session: sess,
		newKey:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *session.Session {
	return c.session
}

// WebSocketURL returns the push endpoint with the scheme switched to ws/wss.
func (c *Client) WebSocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/notifications"
}

// AuthHeader returns the bearer header for callers that open their own
// connections.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if token, ok := c.session.Token(); ok {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	req := request{method: method, path: path, query: query}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req.body = bytes.NewReader(raw)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, func(body io.Reader) error {
		if out == nil {
			_, err := io.Copy(io.Discard, body)
			return err
		}
		return json.NewDecoder(body).Decode(out)
	})
}

// NewIdempotencyKey mints a key for one logical user action.
func (c *Client) NewIdempotencyKey() string {
	return c.newKey()
}

// do sends req and hands a 2xx body to read. Mutations carry the
// Idempotency-Key from ctx, or a fresh one. A 401 on an authenticated call invalidates the session.
func (c *Client) do(ctx context.Context, req request, read func(io.Reader) error) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return err
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	token, authed := c.session.Token()
	if authed {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.method != http.MethodGet && req.method != http.MethodHead {
		key := idempotencyKeyFrom(ctx)
		if key == "" {
			key = c.newKey()
		}
		httpReq.Header.Set(IdempotencyHeader, key)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("bragboard %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Message: errorMessage(resp.Body)}
		if resp.StatusCode == http.StatusUnauthorized && authed {
			c.session.Invalidate(session.ReasonUnauthorized)
		}
		commonlog.Debugf("event=bragboard_client action=%s path=%s status=failed code=%d message=%q", req.method, req.path, resp.StatusCode, statusErr.Message)
		return statusErr
	}
	if read == nil {
		return nil
	}
	return read(resp.Body)
}

func errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(raw))
}
