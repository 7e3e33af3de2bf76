package envelope

import (
	"encoding/json"
	"fmt"
)

// ReplyQoS is used for every reply publish.
const ReplyQoS byte = 1

// Publisher is the transport capability a ReplyChannel needs.
// mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger interface for reply failures.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ReplyChannel publishes responses for one request. The zero value has no
// destination and every Send returns ErrNoReplyChannel.
type ReplyChannel struct {
	topic     string
	publisher Publisher
	logger    Logger
}

// Topic returns the reply destination, or "" when there is none.
func (r ReplyChannel) Topic() string {
	return r.topic
}

// Available reports whether the channel has a destination.
func (r ReplyChannel) Available() bool {
	return r.topic != "" && r.publisher != nil
}

// Send publishes payload to the reply topic.
//
// Publish failures are logged and swallowed: a lost reply never fails the
// handler. Sending more than once publishes again.
func (r ReplyChannel) Send(payload []byte) error {
	if !r.Available() {
		return ErrNoReplyChannel
	}
	if err := r.publisher.Publish(r.topic, payload, ReplyQoS, false); err != nil {
		r.log().Warn("reply publish failed", "topic", r.topic, "error", err)
	}
	return nil
}

// SendJSON encodes v as JSON and sends it.
func (r ReplyChannel) SendJSON(v any) error {
	if !r.Available() {
		return ErrNoReplyChannel
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding reply: %w", err)
	}
	return r.Send(data)
}

// SendError replies with {"error": message}.
func (r ReplyChannel) SendError(message string) error {
	return r.SendJSON(map[string]string{"error": message})
}

func (r ReplyChannel) log() Logger {
	if r.logger == nil {
		return noopLogger{}
	}
	return r.logger
}
