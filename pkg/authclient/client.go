package authclient

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
)

// DefaultTimeout bounds requests to the auth server
const DefaultTimeout = 30 * time.Second

// Client talks to the auth server and keeps the current session in memory
// and on disk in lockstep: a successful login updates both before returning,
// and a reader never observes one updated without the other.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *SessionStore

	mu      sync.Mutex
	session *Session

	// openidStarted makes LoginWithOpenID single-shot per attempt so a
	// double invocation issues only one redirect URL
	openidStarted bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the auth server at baseURL, hydrating the session
// from the store. A corrupt or missing session file starts logged out.
func New(baseURL string, store *SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}

	session, err := store.Load()
	if err != nil {
		slog.Warn("Failed to load persisted session, starting logged out", "err", err)
	}
	c.session = session

	return c
}

// Session returns the current session, or nil when logged out
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// IsAuthenticated reports whether a session token is held
func (c *Client) IsAuthenticated() bool {
	return c.Session() != nil
}

// apiError is the server's error body shape
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServerError is a non-2xx response from the auth server
type ServerError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// authResponse is the server's success body for register and login
type authResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    UserInfo `json:"user"`
}

// Register creates an account and stores the resulting session
func (c *Client) Register(ctx context.Context, email, password, name string) (*Session, error) {
	body := map[string]string{"email": email, "password": password, "name": name}

	var resp authResponse
	if err := c.postJSON(ctx, "/auth/register", body, &resp); err != nil {
		return nil, err
	}
	return c.setSession(resp)
}

// Login authenticates with email and password and stores the session
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := c.postJSON(ctx, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return c.setSession(resp)
}

// LoginWithOpenID fetches the provider authorization URL for a browser
// redirect. Only the first call per attempt returns a URL; the guard resets
// on CompleteOpenIDLogin or Logout.
func (c *Client) LoginWithOpenID(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.openidStarted {
		c.mu.Unlock()
		return "", fmt.Errorf("an OpenID login is already in progress")
	}
	c.openidStarted = true
	c.mu.Unlock()

	var resp struct {
		AuthURL string `json:"authUrl"`
	}
	if err := c.getJSON(ctx, "/auth/openid/login", "", &resp); err != nil {
		c.mu.Lock()
		c.openidStarted = false
		c.mu.Unlock()
		return "", err
	}
	return resp.AuthURL, nil
}

// CompleteOpenIDLogin exchanges the callback code for a session
func (c *Client) CompleteOpenIDLogin(ctx context.Context, code, state string) (*Session, error) {
	defer func() {
		c.mu.Lock()
		c.openidStarted = false
		c.mu.Unlock()
	}()

	path := fmt.Sprintf("/auth/openid/callback?code=%s&state=%s", code, state)
	var resp authResponse
	if err := c.getJSON(ctx, path, "", &resp); err != nil {
		return nil, err
	}
	return c.setSession(resp)
}

// Me fetches the authenticated user's record
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	session := c.Session()
	if session == nil {
		return nil, fmt.Errorf("not logged in")
	}

	var resp struct {
		User UserInfo `json:"user"`
	}
	if err := c.getJSON(ctx, "/auth/me", session.Token, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout clears the session unconditionally. A failure to remove the session
// file is logged but never surfaced; the in-memory session is always cleared.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = nil
	c.openidStarted = false
	if err := c.store.Clear(); err != nil {
		slog.Warn("Failed to remove session file", "err", err)
	}
}

// setSession updates memory and disk under one lock
func (c *Client) setSession(resp authResponse) (*Session, error) {
	session := &Session{Token: resp.Token, User: resp.User}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	c.session = session
	return session, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return &ServerError{StatusCode: resp.StatusCode, Reason: apiErr.Error, Message: apiErr.Message}
		}
		return &ServerError{StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
