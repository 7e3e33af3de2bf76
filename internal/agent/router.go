package agent

import (
	"context"

	"github.com/nerrad567/ventoagent/internal/envelope"
	"github.com/nerrad567/ventoagent/internal/infrastructure/logging"
	"github.com/nerrad567/ventoagent/internal/registry"
)

// router turns inbound MQTT messages into dispatched requests.
type router struct {
	dispatcher *registry.Dispatcher
	publisher  envelope.Publisher
	logger     *logging.Logger
	ctx        context.Context
}

// handle never returns an error: malformed topics are dropped and handler
// failures are dealt with by the dispatcher.
func (r *router) handle(topic string, payload []byte) error {
	req, err := envelope.NewRequest(topic, payload, r.publisher, r.logger)
	if err != nil {
		r.logger.Debug("dropping message", "topic", topic, "error", err)
		return nil
	}

	if !r.dispatcher.Dispatch(r.ctx, req) {
		r.logger.Info("unhandled action",
			"subsystem", req.Subsystem(),
			"action", req.Action(),
			"payload", req.Text(),
		)
	}
	return nil
}
