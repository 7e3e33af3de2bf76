package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is a parsed inbound action. It is immutable once built.
type Request struct {
	route   Route
	topic   string
	payload []byte
	reply   ReplyChannel
}

// NewRequest parses topic and binds a ReplyChannel when it carries a request ID.
// pub and logger may be nil for requests that will never reply.
func NewRequest(topic string, payload []byte, pub Publisher, logger Logger) (*Request, error) {
	route, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}

	req := &Request{
		route:   route,
		topic:   topic,
		payload: bytes.Clone(payload),
	}
	if route.RequestID != "" && pub != nil {
		req.reply = ReplyChannel{
			topic:     ReplyTopic(topic),
			publisher: pub,
			logger:    logger,
		}
	}
	return req, nil
}

// Device returns the device segment of the topic.
func (r *Request) Device() string { return r.route.Device }

// Subsystem returns the subsystem segment as received.
func (r *Request) Subsystem() string { return r.route.Subsystem }

// Action returns the action segment as received.
func (r *Request) Action() string { return r.route.Action }

// RequestID returns the correlation segment, or "" when no reply is expected.
func (r *Request) RequestID() string { return r.route.RequestID }

// Topic returns the originating topic.
func (r *Request) Topic() string { return r.topic }

// Payload returns a copy of the raw payload.
func (r *Request) Payload() []byte { return bytes.Clone(r.payload) }

// Text returns the payload as a trimmed string.
func (r *Request) Text() string {
	return strings.TrimSpace(string(r.payload))
}

// Decode unmarshals a JSON payload into v.
func (r *Request) Decode(v any) error {
	if err := json.Unmarshal(r.payload, v); err != nil {
		return fmt.Errorf("decoding %s/%s payload: %w", r.route.Subsystem, r.route.Action, err)
	}
	return nil
}

// Reply returns the request's reply channel. Its Send methods return
// ErrNoReplyChannel when the request had no request ID.
func (r *Request) Reply() ReplyChannel {
	return r.reply
}

// CanReply reports whether a reply destination exists.
func (r *Request) CanReply() bool {
	return r.reply.Available()
}

// Respond encodes v as JSON and publishes it on the reply channel.
func (r *Request) Respond(v any) error {
	return r.reply.SendJSON(v)
}
