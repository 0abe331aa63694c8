package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Client signs in to the EmailRAG backend and keeps the resulting token in a
// TokenStore.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	session *SessionStore
}

// NewClient creates an auth client. hc may be nil.
func NewClient(baseURL string, hc *http.Client, store TokenStore) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		store:   store,
	}
}

// SetSessionStore sets the store cleared on Logout
func (c *Client) SetSessionStore(s *SessionStore) { c.session = s }

type credentials struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Login exchanges email and password for a session token and stores it
func (c *Client) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	return c.authenticate(ctx, "/auth/login", "Login failed", credentials{Email: email, Password: password})
}

// Signup registers a new account and stores the returned session token
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (*oauth2.Token, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, errors.New("Email and password are required")
	}
	return c.authenticate(ctx, "/auth/signup", "Signup failed",
		credentials{Email: email, Password: password, DisplayName: &displayName})
}

func (c *Client) authenticate(ctx context.Context, path, fallback string, body credentials) (*oauth2.Token, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Detail != "" {
			return nil, errors.New(e.Detail)
		}
		return nil, errors.New(fallback)
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil || tr.Token == "" {
		return nil, fmt.Errorf("%s: response carried no token", fallback)
	}
	token := &oauth2.Token{AccessToken: tr.Token, TokenType: "Bearer"}
	if c.store != nil {
		if err := c.store.Save(token); err != nil {
			return nil, err
		}
	}
	return token, nil
}

// Token returns the stored token or ErrNotAuthenticated
func (c *Client) Token() (*oauth2.Token, error) {
	if c.store == nil {
		return nil, ErrNotAuthenticated
	}
	return c.store.Load()
}

// Logout forgets the token and the remembered user id
func (c *Client) Logout() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Delete())
	}
	if c.session != nil {
		errs = append(errs, c.session.Clear())
	}
	return errors.Join(errs...)
}

// HTTPClient returns an http.Client that authenticates every request with
// the stored token. base supplies the transport and may be nil.
func (c *Client) HTTPClient(ctx context.Context, base *http.Client) (*http.Client, error) {
	token, err := c.Token()
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(ctx, base, token), nil
}
