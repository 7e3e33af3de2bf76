package process

import "errors"

var (
	// ErrTimeout is returned when the command outlives Config.Timeout.
	ErrTimeout = errors.New("process: command timed out")

	// ErrEmptyCommand is returned when Config.Binary is empty.
	ErrEmptyCommand = errors.New("process: empty command")
)
