package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// fakeVento is an in-memory control plane.
type fakeVento struct {
	mu       sync.Mutex
	requests []recordedRequest
	devices  map[string]bool
	failPath string
}

func newFakeVento(t *testing.T) (*fakeVento, *Client) {
	t.Helper()
	f := &fakeVento{devices: make(map[string]bool)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f, c
}

func (f *fakeVento) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query().Get("token"),
		auth:   r.Header.Get("Authorization"),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	failPath := f.failPath
	f.mu.Unlock()

	if r.URL.Path == failPath {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	switch {
	case r.URL.Path == "/api/core/v1/auth/login":
		if rec.body["password"] != "secret" {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"session":{"token":"tok-1","user":{"admin":true}}}`))
	case r.URL.Path == "/api/core/v1/devices" && r.Method == http.MethodPost:
		f.mu.Lock()
		f.devices[rec.body["name"].(string)] = true
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	case r.URL.Path == "/api/core/v1/devices/registerActions":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/api/core/v1/devices/pi1/regenerateBoard":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/api/core/v1/devices/pi1":
		f.mu.Lock()
		exists := f.devices["pi1"]
		f.mu.Unlock()
		if !exists {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`not json is fine`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeVento) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestNew(t *testing.T) {
	tests := []struct {
		host     string
		wantURL  string
		wantHost string
		wantErr  bool
	}{
		{host: "localhost:8000", wantURL: "http://localhost:8000", wantHost: "localhost"},
		{host: "https://vento.example.com/", wantURL: "https://vento.example.com", wantHost: "vento.example.com"},
		{host: "  http://10.0.0.5:8000  ", wantURL: "http://10.0.0.5:8000", wantHost: "10.0.0.5"},
		{host: "", wantErr: true},
		{host: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			c, err := New(tt.host)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHost) {
					t.Errorf("New(%q) error = %v, want ErrInvalidHost", tt.host, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.host, err)
			}
			if c.BaseURL() != tt.wantURL {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.wantURL)
			}
			if c.Hostname() != tt.wantHost {
				t.Errorf("Hostname() = %q, want %q", c.Hostname(), tt.wantHost)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f, c := newFakeVento(t)

	token, err := c.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "tok-1" {
		t.Errorf("Login() = %q, want tok-1", token)
	}

	req := f.last()
	if req.method != http.MethodPost || req.body["username"] != "admin" {
		t.Errorf("login request = %+v", req)
	}
	if req.auth != "" || req.query != "" {
		t.Error("login must not send a token")
	}
}

func TestLogin_Unauthorized(t *testing.T) {
	_, c := newFakeVento(t)

	_, err := c.Login(context.Background(), "admin", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Body != "invalid credentials" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	f, c := newFakeVento(t)
	ctx := context.Background()

	exists, err := c.DeviceExists(ctx, "tok-1", "pi1")
	if err != nil || exists {
		t.Fatalf("DeviceExists() = %v, %v; want false, nil", exists, err)
	}

	if err := c.RegisterDevice(ctx, "tok-1", map[string]string{"name": "pi1", "platform": "ventoagent-go"}); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	req := f.last()
	if req.auth != "Bearer tok-1" || req.query != "tok-1" {
		t.Errorf("token not sent in both header and query: %+v", req)
	}

	exists, err = c.DeviceExists(ctx, "tok-1", "pi1")
	if err != nil || !exists {
		t.Fatalf("DeviceExists() = %v, %v; want true, nil", exists, err)
	}

	if err := c.UpdateDevice(ctx, "tok-1", "pi1", map[string]any{"subsystem": []any{}}); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if req := f.last(); req.method != http.MethodPost || req.path != "/api/core/v1/devices/pi1" {
		t.Errorf("update request = %+v", req)
	}

	if err := c.TriggerRegisterActions(ctx, "tok-1"); err != nil {
		t.Errorf("TriggerRegisterActions() error = %v", err)
	}
	if err := c.RegenerateBoard(ctx, "tok-1", "pi1"); err != nil {
		t.Errorf("RegenerateBoard() error = %v", err)
	}
}

func TestDeviceExists_ServerError(t *testing.T) {
	f, c := newFakeVento(t)
	f.failPath = "/api/core/v1/devices/pi1"

	_, err := c.DeviceExists(context.Background(), "tok-1", "pi1")
	if err == nil || IsNotFound(err) {
		t.Fatalf("DeviceExists() error = %v, want non-404 APIError", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("error = %v, want status 500", err)
	}
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"session":{}}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if _, err := c.Login(context.Background(), "a", "b"); !errors.Is(err, ErrMissingToken) {
		t.Errorf("Login() error = %v, want ErrMissingToken", err)
	}
}

func TestAPIError_Message(t *testing.T) {
	if got := (&APIError{StatusCode: 500}).Error(); got != "vento api error 500" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{StatusCode: 404, Body: "nope"}).Error(); got != "vento api error 404: nope" {
		t.Errorf("Error() = %q", got)
	}
}
