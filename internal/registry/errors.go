package registry

import "errors"

var (
	// ErrInvalidDefinition is returned by Build for a definition without a name.
	ErrInvalidDefinition = errors.New("registry: invalid subsystem definition")

	// ErrNilHandler is returned by Build for an action without a handler.
	ErrNilHandler = errors.New("registry: action has no handler")
)
