// Package rest is the HTTP collaborator of the realtime core: login and
// registration, user search, contact listing, and DM history backfill. It
// shares the credential store with the realtime client but is otherwise
// independent of it.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sparkchat/chatwire"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rest: backend returned status %d", e.Status)
	}
	return fmt.Sprintf("rest: backend returned status %d: %s", e.Status, e.Message)
}

// Session is the result of a successful login or registration.
type Session struct {
	Token string            `json:"token"`
	User  chatwire.Identity `json:"user"`
}

// Client is a bearer-authenticated JSON client for the chat backend's REST
// surface. All methods attach the current token from the credential store
// when one is present.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  chatwire.TokenSource
}

// New creates a REST client for the backend at baseURL (e.g.
// "http://localhost:8080"). The token source may be nil for the
// unauthenticated auth endpoints only.
func New(baseURL string, tokens chatwire.TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}
}

// Login authenticates with username and password and returns the session.
// The caller is responsible for storing the token (see TokenStore).
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	body := map[string]string{"username": username, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Register creates an account and returns the session for it.
func (c *Client) Register(ctx context.Context, username, password, displayName string) (*Session, error) {
	body := map[string]string{
		"username":    username,
		"password":    password,
		"displayName": displayName,
	}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Logout invalidates the current session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// CurrentUser returns the identity the current token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (chatwire.Identity, error) {
	var user chatwire.Identity
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user)
	return user, err
}

// Users lists the current user's contacts.
func (c *Client) Users(ctx context.Context) ([]chatwire.Identity, error) {
	var users []chatwire.Identity
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &users)
	return users, err
}

// SearchUser looks a user up by exact username.
func (c *Client) SearchUser(ctx context.Context, username string) (chatwire.Identity, error) {
	var user chatwire.Identity
	path := "/api/users/search?username=" + url.QueryEscape(username)
	err := c.do(ctx, http.MethodGet, path, nil, &user)
	return user, err
}

// History returns the DM history with the given user, oldest first. The
// backend owns durable storage; the realtime core never sees these envelopes.
func (c *Client) History(ctx context.Context, username string) ([]chatwire.Envelope, error) {
	var history []chatwire.Envelope
	path := "/api/chat/dm/" + url.PathEscape(username)
	err := c.do(ctx, http.MethodGet, path, nil, &history)
	return history, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rest: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rest: decode response: %w", err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}
