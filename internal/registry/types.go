package registry

import (
	"context"
	"time"

	"github.com/nerrad567/ventoagent/internal/envelope"
)

// Kind tags a subsystem for the control plane.
type Kind string

const (
	KindVirtual  Kind = "virtual"
	KindHardware Kind = "hardware"
)

// Mode is the interaction mode of an action.
type Mode string

const (
	// ModeFireAndForget actions never reply.
	ModeFireAndForget Mode = ""

	// ModeRequestReply actions reply when the request carries a request ID.
	ModeRequestReply Mode = "request-reply"
)

// ConnectionMQTT is the only connection type the agent advertises.
const ConnectionMQTT = "mqtt"

// CardProps are UI hints passed through to the control plane untouched.
type CardProps map[string]any

// PayloadSpec documents an action's payload. It is never validated.
type PayloadSpec struct {
	Type   string
	Schema map[string]any
	Value  any
}

// Handler handles one action request. A returned error is logged and, when
// the request can reply, sent back as {"error": message}.
type Handler func(ctx context.Context, req *envelope.Request) error

// MonitorFunc produces one monitor reading. The value is JSON-encoded and
// published on the monitor endpoint.
type MonitorFunc func(ctx context.Context) (any, error)

// Monitor describes a published value.
//
// Boot runs once at startup. Tick runs every Interval; a zero Interval uses
// the agent default and a negative one disables ticking. A monitor with
// neither function is still advertised.
type Monitor struct {
	Name        string
	Label       string
	Description string
	Endpoint    string
	Units       string
	Ephemeral   bool
	CardProps   CardProps

	Boot     MonitorFunc
	Tick     MonitorFunc
	Interval time.Duration
}

// Action describes a remotely invokable operation.
type Action struct {
	Name         string
	Label        string
	Description  string
	Endpoint     string
	Payload      PayloadSpec
	CardProps    CardProps
	Mode         Mode
	ReplyTimeout time.Duration

	Handler Handler
}

// Definition is one subsystem: a routing namespace with its monitors and actions.
type Definition struct {
	Name     string
	Kind     Kind
	Monitors []Monitor
	Actions  []Action
}

// Provider contributes a subsystem. Build is called once per agent run.
type Provider interface {
	Build(device string) (Definition, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(device string) (Definition, error)

// Build calls f.
func (f ProviderFunc) Build(device string) (Definition, error) {
	return f(device)
}
