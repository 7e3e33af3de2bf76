package gpio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/ventoagent/internal/envelope"
	"github.com/nerrad567/ventoagent/internal/registry"
)

const (
	// Name is the subsystem name used in topics.
	Name = "gpio"

	// DefaultChip is the first GPIO character device.
	DefaultChip = "gpiochip0"
)

var errZeroPin = errors.New("payload must include non-zero pin")

// Provider builds the gpio subsystem around a Controller.
type Provider struct {
	ctrl *Controller
}

// New returns a provider using ctrl.
func New(ctrl *Controller) *Provider {
	return &Provider{ctrl: ctrl}
}

// NewDefault wires the character-device driver and host detection.
func NewDefault() *Provider {
	return New(NewController(NewChipDriver(DefaultChip), IsRaspberryPi))
}

// Controller returns the underlying controller.
func (p *Provider) Controller() *Controller {
	return p.ctrl
}

// Build implements registry.Provider.
func (p *Provider) Build(_ string) (registry.Definition, error) {
	return registry.Definition{
		Name: Name,
		Kind: registry.KindHardware,
		Actions: []registry.Action{
			{
				Name:        "set_pin",
				Label:       "Drive GPIO Output",
				Description: "Drive a Raspberry Pi GPIO pin high or low using BCM numbering.",
				Payload: registry.PayloadSpec{
					Type: "json-schema",
					Schema: map[string]any{
						"type":     "object",
						"required": []string{"pin", "state"},
						"properties": map[string]any{
							"pin": pinSchema("Broadcom pin number (e.g. 17)."),
							"state": map[string]any{
								"type":        "boolean",
								"title":       "Output level",
								"description": "true = HIGH (3.3V). false = LOW (0V).",
								"default":     true,
							},
						},
					},
				},
				CardProps: registry.CardProps{"icon": "power", "color": "$green10"},
				Handler:   p.handleSetPin,
			},
			{
				Name:        "read_pin",
				Label:       "Read GPIO Input",
				Description: "Read the current digital level of a Raspberry Pi GPIO pin (BCM numbering).",
				Payload: registry.PayloadSpec{
					Type: "json-schema",
					Schema: map[string]any{
						"type":     "object",
						"required": []string{"pin"},
						"properties": map[string]any{
							"pin": pinSchema("Broadcom pin number (e.g. 4)."),
						},
					},
				},
				CardProps: registry.CardProps{"icon": "activity", "color": "$blue10"},
				Mode:      registry.ModeRequestReply,
				Handler:   p.handleReadPin,
			},
		},
	}, nil
}

func pinSchema(description string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"title":       "BCM pin",
		"description": description,
		"minimum":     0,
	}
}

type pinReply struct {
	Pin   int  `json:"pin"`
	State bool `json:"state"`
}

func (p *Provider) handleSetPin(_ context.Context, req *envelope.Request) error {
	fields, err := decodeFields(req)
	if err != nil {
		return err
	}
	pin, err := pinFrom(fields)
	if err != nil {
		return err
	}
	state, ok := firstBool(fields, "state", "value", "high")
	if !ok {
		return errors.New("missing state; provide true/false")
	}

	if err := p.ctrl.SetPin(pin, state); err != nil {
		return err
	}
	return respond(req, pinReply{Pin: pin, State: state})
}

func (p *Provider) handleReadPin(_ context.Context, req *envelope.Request) error {
	fields, err := decodeFields(req)
	if err != nil {
		return err
	}
	pin, err := pinFrom(fields)
	if err != nil {
		return err
	}

	state, err := p.ctrl.ReadPin(pin)
	if err != nil {
		return err
	}
	return respond(req, pinReply{Pin: pin, State: state})
}

func respond(req *envelope.Request, v any) error {
	if !req.CanReply() {
		return nil
	}
	return req.Respond(v)
}

// decodeFields treats an empty payload as {}.
func decodeFields(req *envelope.Request) (map[string]any, error) {
	fields := map[string]any{}
	if req.Text() == "" {
		return fields, nil
	}
	if err := req.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// pinFrom accepts a JSON number or numeric string. Missing, zero and
// non-integral values are rejected.
func pinFrom(fields map[string]any) (int, error) {
	switch v := fields["pin"].(type) {
	case nil:
		return 0, errZeroPin
	case float64:
		if v == 0 {
			return 0, errZeroPin
		}
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w %v", ErrInvalidPin, v)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, errZeroPin
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w %q", ErrInvalidPin, v)
		}
		if n == 0 {
			return 0, errZeroPin
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w %v", ErrInvalidPin, v)
	}
}

// firstBool returns the first boolean among keys.
func firstBool(fields map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		if b, ok := fields[key].(bool); ok {
			return b, true
		}
	}
	return false, false
}
