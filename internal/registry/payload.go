package registry

// Platform identifies this agent implementation in the device description.
const Platform = "ventoagent-go"

// DevicePayload is the device description sent to the control plane.
type DevicePayload struct {
	Name       string             `json:"name"`
	Platform   string             `json:"platform"`
	Subsystems []SubsystemPayload `json:"subsystem"`
}

// SubsystemPayload describes one subsystem.
type SubsystemPayload struct {
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Monitors []MonitorPayload `json:"monitors"`
	Actions  []ActionPayload  `json:"actions"`
}

// ActionPayload describes one action.
type ActionPayload struct {
	Name           string          `json:"name"`
	Label          string          `json:"label"`
	Description    string          `json:"description"`
	Endpoint       string          `json:"endpoint"`
	ConnectionType string          `json:"connectionType"`
	Payload        PayloadSpecJSON `json:"payload"`
	CardProps      CardProps       `json:"cardProps,omitempty"`
	Mode           string          `json:"mode,omitempty"`
	ReplyTimeoutMs int64           `json:"replyTimeoutMs,omitempty"`
}

// PayloadSpecJSON is the wire form of PayloadSpec.
type PayloadSpecJSON struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema,omitempty"`
	Value  any            `json:"value,omitempty"`
}

// MonitorPayload describes one monitor.
type MonitorPayload struct {
	Name           string    `json:"name"`
	Label          string    `json:"label"`
	Description    string    `json:"description"`
	Endpoint       string    `json:"endpoint"`
	ConnectionType string    `json:"connectionType"`
	Ephemeral      bool      `json:"ephemeral"`
	Units          string    `json:"units,omitempty"`
	CardProps      CardProps `json:"cardProps,omitempty"`
}

// DevicePayload derives the device description, preserving registration order.
func (r *Registry) DevicePayload() DevicePayload {
	p := DevicePayload{
		Name:       r.device,
		Platform:   Platform,
		Subsystems: make([]SubsystemPayload, 0, len(r.defs)),
	}

	for _, def := range r.defs {
		sp := SubsystemPayload{
			Name:     def.Name,
			Type:     string(def.Kind),
			Monitors: make([]MonitorPayload, 0, len(def.Monitors)),
			Actions:  make([]ActionPayload, 0, len(def.Actions)),
		}
		for _, m := range def.Monitors {
			sp.Monitors = append(sp.Monitors, MonitorPayload{
				Name:           m.Name,
				Label:          m.Label,
				Description:    m.Description,
				Endpoint:       m.Endpoint,
				ConnectionType: ConnectionMQTT,
				Ephemeral:      m.Ephemeral,
				Units:          m.Units,
				CardProps:      m.CardProps,
			})
		}
		for _, a := range def.Actions {
			payloadType := a.Payload.Type
			if payloadType == "" {
				payloadType = "string"
			}
			sp.Actions = append(sp.Actions, ActionPayload{
				Name:           a.Name,
				Label:          a.Label,
				Description:    a.Description,
				Endpoint:       a.Endpoint,
				ConnectionType: ConnectionMQTT,
				Payload: PayloadSpecJSON{
					Type:   payloadType,
					Schema: a.Payload.Schema,
					Value:  a.Payload.Value,
				},
				CardProps:      a.CardProps,
				Mode:           string(a.Mode),
				ReplyTimeoutMs: a.ReplyTimeout.Milliseconds(),
			})
		}
		p.Subsystems = append(p.Subsystems, sp)
	}
	return p
}

// Registration is the minimal payload used to create a device before the
// full description is sent.
func (r *Registry) Registration() map[string]string {
	return map[string]string{
		"name":     r.device,
		"platform": Platform,
	}
}
