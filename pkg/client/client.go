// Package client is a small HTTP client for the stokvel API. It attaches the
// bearer token to every request and, on a 401, performs exactly one token
// refresh before replaying the original request. Concurrent 401s share a
// single refresh.
package client

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
)

// ErrSessionExpired is returned once a refresh attempt fails; the stored
// session is cleared and the caller must log in again.
var ErrSessionExpired = errors.New("session expired, login required")

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session Session
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Login authenticates and stores the returned token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out Session
	err := c.doNoAuth(ctx, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return err
	}
	c.SetSession(out)
	return nil
}

// Do issues an authenticated request. body (if non-nil) is JSON-encoded; a
// 2xx response is decoded into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	used := c.Session().AccessToken
	resp, err := c.send(ctx, method, path, body, used)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		token, err := c.refreshOnce(ctx, used)
		if err != nil {
			return err
		}

		resp, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// refreshOnce exchanges the refresh token for a new pair. The mutex makes a
// burst of concurrent 401s perform one refresh: whoever arrives second sees a
// token that differs from the one it failed with and reuses it.
func (c *Client) refreshOnce(ctx context.Context, failedToken string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller already refreshed while we waited for the lock
	if c.session.AccessToken != "" && c.session.AccessToken != failedToken {
		return c.session.AccessToken, nil
	}

	if c.session.RefreshToken == "" {
		return "", ErrSessionExpired
	}

	var out Session
	err := c.doNoAuth(ctx, http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refresh_token": c.session.RefreshToken}, &out)
	if err != nil {
		c.session = Session{}
		return "", ErrSessionExpired
	}

	c.session = out
	return out.AccessToken, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

func (c *Client) doNoAuth(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError is the server's {error, code, message} body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

func decodeAPIError(resp *http.Response) error {
	ae := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(ae); err != nil || ae.Code == "" {
		ae.Code = "UNKNOWN"
		ae.Message = resp.Status
	}
	return ae
}
