package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second

	// maxErrorBody bounds the response body kept in an APIError.
	maxErrorBody = 4096

	apiPrefix = "/api/core/v1"
)

// Client talks to one control plane. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a client for host, e.g. "http://localhost:8000".
// A missing scheme defaults to http.
func New(host string) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidHost)
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	u, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHost, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no hostname", ErrInvalidHost, host)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// BaseURL returns the normalised control-plane URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Hostname returns the control-plane host without port. The broker runs on
// the same host.
func (c *Client) Hostname() string {
	if h := c.baseURL.Hostname(); h != "" {
		return h
	}
	return "localhost"
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session struct {
		Token string `json:"token"`
	} `json:"session"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/login", "", loginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.Session.Token == "" {
		return "", ErrMissingToken
	}
	return resp.Session.Token, nil
}

// DeviceExists reports whether the device is registered. A 404 is not an error.
func (c *Client) DeviceExists(ctx context.Context, token, name string) (bool, error) {
	err := c.do(ctx, http.MethodGet, devicePath(name), token, nil, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking device %s: %w", name, err)
}

// RegisterDevice creates a device.
func (c *Client) RegisterDevice(ctx context.Context, token string, payload any) error {
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/devices", token, payload, nil); err != nil {
		return fmt.Errorf("registering device: %w", err)
	}
	return nil
}

// UpdateDevice replaces the description of an existing device.
func (c *Client) UpdateDevice(ctx context.Context, token, name string, payload any) error {
	if err := c.do(ctx, http.MethodPost, devicePath(name), token, payload, nil); err != nil {
		return fmt.Errorf("updating device %s: %w", name, err)
	}
	return nil
}

// TriggerRegisterActions asks the control plane to regenerate action cards
// for every device.
func (c *Client) TriggerRegisterActions(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/devices/registerActions", token, nil, nil); err != nil {
		return fmt.Errorf("triggering registerActions: %w", err)
	}
	return nil
}

// RegenerateBoard regenerates the board of one device.
func (c *Client) RegenerateBoard(ctx context.Context, token, name string) error {
	if err := c.do(ctx, http.MethodGet, devicePath(name)+"/regenerateBoard", token, nil, nil); err != nil {
		return fmt.Errorf("regenerating board for %s: %w", name, err)
	}
	return nil
}

func devicePath(name string) string {
	return apiPrefix + "/devices/" + name
}

// do sends body as JSON and decodes a JSON response into out when out is
// non-nil. Empty or non-JSON success bodies are ignored.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	_ = json.Unmarshal(data, out)
	return nil
}
