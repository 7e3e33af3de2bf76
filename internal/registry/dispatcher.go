package registry

import (
	"context"
	"fmt"

	"github.com/nerrad567/ventoagent/internal/envelope"
)

// Logger interface for dispatcher logging.
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

// Dispatcher routes requests to the handlers of a Registry.
//
// Thread Safety:
//   - Dispatch may be called concurrently; the table is never written after Build.
type Dispatcher struct {
	registry *Registry
	logger   Logger
}

// NewDispatcher creates a dispatcher over r.
func NewDispatcher(r *Registry) *Dispatcher {
	return &Dispatcher{
		registry: r,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for handler failures.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Dispatch runs the handler bound to the request's (subsystem, action).
//
// It returns false, doing nothing else, when no handler is bound. Otherwise it
// returns true: a handler error or panic is logged and, if the request can
// reply, answered with {"error": message}.
func (d *Dispatcher) Dispatch(ctx context.Context, req *envelope.Request) bool {
	handler, ok := d.registry.Lookup(req.Subsystem(), req.Action())
	if !ok {
		return false
	}

	if err := d.invoke(ctx, handler, req); err != nil {
		d.logger.Error("action handler failed",
			"key", NewKey(req.Subsystem(), req.Action()).String(),
			"topic", req.Topic(),
			"error", err,
		)
		if req.CanReply() {
			_ = req.Reply().SendError(err.Error())
		}
	}
	return true
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, req *envelope.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, req)
}
