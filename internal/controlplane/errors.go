package controlplane

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHost is returned by New for an unusable base URL.
	ErrInvalidHost = errors.New("controlplane: invalid host")

	// ErrMissingToken is returned when login succeeds without a session token.
	ErrMissingToken = errors.New("controlplane: login succeeded but token missing")
)

// APIError is returned for any response with status >= 400.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("vento api error %d", e.StatusCode)
	}
	return fmt.Sprintf("vento api error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
