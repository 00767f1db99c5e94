// Package apiclient implements authstate.Backend over the server's HTTP API
// and exposes the branch-scoped CRUD calls pages consume.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"branchops-backend/pkg/authstate"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

var _ authstate.Backend = (*Client)(nil)

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithToken seeds a previously persisted bearer token, the "existing session"
// the bootstrap probes for.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Token returns the current bearer token, "" when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  authstate.User `json:"user"`
}

type sessionResponse struct {
	User authstate.User `json:"user"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		r.SetAuthToken(token)
	}
	return r
}

// mapError turns a failed response into a sentinel the reconciliation core
// can discriminate on, falling back to a generic status error.
func mapError(resp *resty.Response) error {
	body, _ := resp.Error().(*errorBody)
	code := ""
	msg := resp.Status()
	if body != nil {
		code = body.Code
		if body.Error != "" {
			msg = body.Error
		}
	}

	switch code {
	case "PROFILE_NOT_FOUND":
		return authstate.ErrProfileNotFound
	case "PROFILE_EXISTS":
		return authstate.ErrProfileExists
	case "INVALID_CREDENTIALS":
		return authstate.ErrInvalidCredentials
	case "EMAIL_TAKEN":
		return authstate.ErrEmailTaken
	}
	return fmt.Errorf("api: %s (status %d)", msg, resp.StatusCode())
}

// GetSession probes whether the stored token is still a live session.
// A missing, expired or revoked token is "no session", not an error.
func (c *Client) GetSession(ctx context.Context) (*authstate.Session, error) {
	token := c.Token()
	if token == "" {
		return nil, nil
	}

	var out sessionResponse
	resp, err := c.request(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/api/auth/session")
	if err != nil {
		return nil, fmt.Errorf("session fetch: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		c.setToken("")
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, mapError(resp)
	}

	return &authstate.Session{Token: token, User: out.User}, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*authstate.Session, error) {
	var out authResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/api/auth/login")
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError(resp)
	}

	c.setToken(out.Token)
	return &authstate.Session{Token: out.Token, User: out.User}, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*authstate.SignUpResult, error) {
	var out authResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/api/auth/register")
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError(resp)
	}

	result := &authstate.SignUpResult{User: out.User}
	if out.Token != "" {
		c.setToken(out.Token)
		result.Session = &authstate.Session{Token: out.Token, User: out.User}
	}
	return result, nil
}

// SignOut revokes the token server-side. The local token is dropped even
// when the remote call fails, matching the controller's clear-regardless
// logout semantics.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return nil
	}
	defer c.setToken("")

	resp, err := c.request(ctx).
		SetError(&errorBody{}).
		Post("/api/auth/logout")
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if !resp.IsSuccess() && resp.StatusCode() != http.StatusUnauthorized {
		return mapError(resp)
	}
	return nil
}

func (c *Client) FetchProfile(ctx context.Context, userID string) (*authstate.Profile, error) {
	var out authstate.Profile
	resp, err := c.request(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/api/profiles/" + userID)
	if err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError(resp)
	}
	return &out, nil
}

func (c *Client) CreateProfile(ctx context.Context, p *authstate.Profile) error {
	resp, err := c.request(ctx).
		SetBody(p).
		SetError(&errorBody{}).
		Post("/api/profiles")
	if err != nil {
		return fmt.Errorf("profile create: %w", err)
	}
	if !resp.IsSuccess() {
		return mapError(resp)
	}
	return nil
}
