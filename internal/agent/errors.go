package agent

import "errors"

var (
	// ErrRegistration wraps control-plane failures during startup.
	ErrRegistration = errors.New("device registration failed")

	// ErrTransport wraps connect and subscribe failures during startup.
	ErrTransport = errors.New("transport startup failed")
)
