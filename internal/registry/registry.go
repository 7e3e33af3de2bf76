package registry

import (
	"fmt"
	"strings"

	"github.com/nerrad567/ventoagent/internal/envelope"
)

// Key is the dispatch key: subsystem and action, lower-cased.
type Key struct {
	Subsystem string
	Action    string
}

// NewKey normalises a (subsystem, action) pair.
func NewKey(subsystem, action string) Key {
	return Key{
		Subsystem: strings.ToLower(subsystem),
		Action:    strings.ToLower(action),
	}
}

// String returns "subsystem:action".
func (k Key) String() string {
	return k.Subsystem + ":" + k.Action
}

// MonitorRef is a monitor together with the subsystem that owns it.
type MonitorRef struct {
	Subsystem string
	Monitor   Monitor
}

// Registry is the immutable set of subsystems for one agent run.
type Registry struct {
	device string
	defs   []Definition
	table  map[Key]Handler
}

// Build calls every provider in order and derives the dispatch table.
//
// Missing endpoints are filled from the subsystem and action/monitor names.
// If two actions share a key the later one wins.
func Build(device string, providers ...Provider) (*Registry, error) {
	r := &Registry{
		device: device,
		table:  make(map[Key]Handler),
	}

	for i, p := range providers {
		def, err := p.Build(device)
		if err != nil {
			return nil, fmt.Errorf("building subsystem %d: %w", i, err)
		}
		if err := r.add(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(def Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}

	def.Monitors = append([]Monitor(nil), def.Monitors...)
	for i := range def.Monitors {
		m := &def.Monitors[i]
		if m.Endpoint == "" {
			m.Endpoint = envelope.MonitorEndpoint(def.Name, m.Name)
		}
	}

	def.Actions = append([]Action(nil), def.Actions...)
	for i := range def.Actions {
		a := &def.Actions[i]
		if a.Handler == nil {
			return fmt.Errorf("%w: %s/%s", ErrNilHandler, def.Name, a.Name)
		}
		if a.Endpoint == "" {
			a.Endpoint = envelope.ActionEndpoint(def.Name, a.Name)
		}
		r.table[NewKey(def.Name, a.Name)] = a.Handler
	}

	r.defs = append(r.defs, def)
	return nil
}

// Device returns the device name the registry was built for.
func (r *Registry) Device() string {
	return r.device
}

// Definitions returns the subsystems in registration order.
func (r *Registry) Definitions() []Definition {
	return append([]Definition(nil), r.defs...)
}

// Lookup returns the handler bound to (subsystem, action), ignoring case.
func (r *Registry) Lookup(subsystem, action string) (Handler, bool) {
	h, ok := r.table[NewKey(subsystem, action)]
	return h, ok
}

// Keys returns the number of distinct dispatch keys.
func (r *Registry) Keys() int {
	return len(r.table)
}

// Monitors returns every monitor in registration order.
func (r *Registry) Monitors() []MonitorRef {
	var refs []MonitorRef
	for _, def := range r.defs {
		for _, m := range def.Monitors {
			refs = append(refs, MonitorRef{Subsystem: def.Name, Monitor: m})
		}
	}
	return refs
}
