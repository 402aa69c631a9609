package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	refreshPath    = "/auth/refresh"
)

// Config configures a backend client.
type Config struct {
	BaseURL string
	// HTTPClient is shared across sessions. A client with Timeout is built
	// when nil.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Tokens are the credentials of one session. They live in memory only.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client talks to the marketplace backend on behalf of one session.
//
// Protected requests that get a 401 trigger one token refresh and a single
// replay. Concurrent 401s share one in-flight refresh.
type Client struct {
	baseURL        string
	http           *http.Client
	refreshTimeout time.Duration
	logger         *slog.Logger

	mu     sync.RWMutex
	tokens Tokens
	gen    uint64

	flight singleflight.Group
}

// New builds a client.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           httpClient,
		refreshTimeout: timeout,
		logger:         logger.With("component", "api"),
	}
}

// SetTokens replaces the session tokens.
func (c *Client) SetTokens(t Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
	c.gen++
}

// ClearTokens forgets the session tokens.
func (c *Client) ClearTokens() {
	c.SetTokens(Tokens{})
}

// HasTokens reports whether an access token is held.
func (c *Client) HasTokens() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens.AccessToken != ""
}

func (c *Client) current() (string, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens.AccessToken, c.gen
}

type request struct {
	method    string
	path      string
	body      any
	protected bool
}

// envelope is the one canonical response shape. Payloads arrive under
// "data", under "payload", or bare; unwrapping happens here and nowhere else.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Payload    json.RawMessage `json:"payload"`
	Message    string          `json:"message"`
	Error      json.RawMessage `json:"error"`
	Code       string          `json:"code"`
	RedirectTo string          `json:"redirectTo"`

	raw []byte
}

func present(m json.RawMessage) bool {
	return len(m) > 0 && !bytes.Equal(m, []byte("null"))
}

func (e envelope) body() []byte {
	switch {
	case present(e.Data):
		return e.Data
	case present(e.Payload):
		return e.Payload
	default:
		return e.raw
	}
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	if !present(e.Error) {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}

func (e envelope) code() string {
	if e.Code != "" {
		return e.Code
	}
	var obj struct {
		Code string `json:"code"`
	}
	if present(e.Error) && json.Unmarshal(e.Error, &obj) == nil {
		return obj.Code
	}
	return ""
}

func decodeEnvelope(raw []byte) envelope {
	env := envelope{raw: raw}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return env
	}
	_ = json.Unmarshal(trimmed, &env)
	env.raw = raw
	return env
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	access, gen := c.current()
	status, env, err := c.send(ctx, r, access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && r.protected {
		if err := c.refreshFrom(ctx, gen); err != nil {
			return err
		}
		access, _ = c.current()
		status, env, err = c.send(ctx, r, access)
		if err != nil {
			return err
		}
		// A second 401 is an ordinary error; there is no further retry.
	}

	return c.decode(status, env, out)
}

func (c *Client) send(ctx context.Context, r request, access string) (int, envelope, error) {
	var body io.Reader
	if r.body != nil {
		buf, err := encodeBody(r.body)
		if err != nil {
			return 0, envelope{}, fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.protected && access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, envelope{}, fmt.Errorf("read %s %s: %w", r.method, r.path, err)
	}

	c.logger.Debug("backend call",
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp.StatusCode, decodeEnvelope(raw), nil
}

func encodeBody(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return []byte("{}"), nil
		}
		return raw, nil
	}
	return json.Marshal(v)
}

func (c *Client) decode(status int, env envelope, out any) error {
	if status >= 200 && status < 300 {
		if out == nil {
			return nil
		}
		body := env.body()
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	code := env.code()
	if status == http.StatusForbidden && code == CodeVerificationRequired && env.RedirectTo != "" {
		return &VerificationRequiredError{RedirectTo: env.RedirectTo, Message: env.message()}
	}

	msg := env.message()
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Code: code, Message: msg}
}

// Refresh exchanges the refresh token for a new token pair. Concurrent
// callers share one request.
func (c *Client) Refresh(ctx context.Context) error {
	_, gen := c.current()
	return c.refreshFrom(ctx, gen)
}

// refreshFrom refreshes unless the tokens have already moved past gen, which
// happens when a request raced with a refresh that has since completed.
//
// The shared refresh is detached from the caller that started it: a caller
// that gives up only stops waiting, it never fails the refresh for the
// other waiters or clears the tokens.
func (c *Client) refreshFrom(ctx context.Context, gen uint64) error {
	if _, now := c.current(); now != gen {
		return nil
	}
	ch := c.flight.DoChan("refresh", func() (any, error) {
		if _, now := c.current(); now != gen {
			return nil, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return nil, c.refresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("joined in-flight token refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) refresh(ctx context.Context) error {
	c.mu.RLock()
	refreshToken := c.tokens.RefreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		c.ClearTokens()
		return fmt.Errorf("%w: %w", ErrSessionExpired, ErrNoRefreshToken)
	}

	status, env, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   refreshPath,
		body:   map[string]string{"refreshToken": refreshToken},
	}, "")
	if err == nil {
		var next Tokens
		if err = c.decode(status, env, &next); err == nil && next.AccessToken == "" {
			err = fmt.Errorf("refresh returned no access token")
		}
		if err == nil {
			if next.RefreshToken == "" {
				next.RefreshToken = refreshToken
			}
			c.SetTokens(next)
			return nil
		}
	}

	c.logger.Info("token refresh failed", slog.Any("error", err))
	c.ClearTokens()
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}
