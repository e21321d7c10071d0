// Package client is a typed Go client for the todo API. It keeps the login
// session and drops it whenever the server answers 401.
package client

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

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
)

var ErrUnauthorized = errors.New("client: unauthorized")

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// New returns a client for the API mounted at baseURL, e.g.
// "http://localhost:3000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		session: &Session{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

type authResponse struct {
	Token string          `json:"token"`
	User  user.PublicUser `json:"user"`
}

// Export is the payload of GET /me/export.
type Export struct {
	ExportedAt string          `json:"exportedAt"`
	User       user.PublicUser `json:"user"`
	Todos      []todo.Item     `json:"todos"`
}

// UpdateMe carries the profile fields to change; nil fields are not sent.
type UpdateMe struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	NewPassword     *string `json:"newPassword,omitempty"`
	CurrentPassword *string `json:"currentPassword,omitempty"`
}

// UpdateItem carries the item fields to change; nil fields are not sent.
type UpdateItem struct {
	Name      *string `json:"name,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (user.PublicUser, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, &resp)
	if err != nil {
		return user.PublicUser{}, err
	}

	c.session.Set(resp.Token, resp.User)
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (user.PublicUser, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return user.PublicUser{}, err
	}

	c.session.Set(resp.Token, resp.User)
	return resp.User, nil
}

// Logout only forgets the token; the server keeps no session.
func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) Me(ctx context.Context) (user.PublicUser, error) {
	var u user.PublicUser
	if err := c.do(ctx, http.MethodGet, "/me", nil, &u); err != nil {
		return user.PublicUser{}, err
	}

	c.session.setUser(u)
	return u, nil
}

func (c *Client) UpdateMe(ctx context.Context, in UpdateMe) (user.PublicUser, error) {
	var u user.PublicUser
	if err := c.do(ctx, http.MethodPatch, "/me", in, &u); err != nil {
		return user.PublicUser{}, err
	}

	c.session.setUser(u)
	return u, nil
}

// DeleteMe removes the account and every item in it, then logs out.
func (c *Client) DeleteMe(ctx context.Context, password string) error {
	if err := c.do(ctx, http.MethodDelete, "/me", map[string]string{"password": password}, nil); err != nil {
		return err
	}

	c.session.Clear()
	return nil
}

func (c *Client) ExportMe(ctx context.Context) (Export, error) {
	var out Export
	err := c.do(ctx, http.MethodGet, "/me/export", nil, &out)
	return out, err
}

func (c *Client) Items(ctx context.Context) ([]todo.Item, error) {
	items := make([]todo.Item, 0)
	if err := c.do(ctx, http.MethodGet, "/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddItem(ctx context.Context, name string) (todo.Item, error) {
	var it todo.Item
	err := c.do(ctx, http.MethodPost, "/items", map[string]string{"name": name}, &it)
	return it, err
}

func (c *Client) UpdateItem(ctx context.Context, id string, in UpdateItem) (todo.Item, error) {
	var it todo.Item
	err := c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), in, &it)
	return it, err
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Greeting(ctx context.Context) (string, error) {
	var out struct {
		Greeting string `json:"greeting"`
	}
	err := c.do(ctx, http.MethodGet, "/greeting", nil, &out)
	return out.Greeting, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(b, &payload); err != nil || payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}

	return &APIError{Status: resp.StatusCode, Message: payload.Error}
}
