package envelope

import "errors"

var (
	// ErrNotRoutable is returned by ParseTopic for topics outside the action grammar.
	ErrNotRoutable = errors.New("envelope: topic is not a routable action")

	// ErrNoReplyChannel is returned when replying to a request that carried
	// no request ID. It indicates a handler bug.
	ErrNoReplyChannel = errors.New("envelope: request has no reply channel")
)
