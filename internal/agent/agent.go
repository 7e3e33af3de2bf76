package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/ventoagent/internal/envelope"
	"github.com/nerrad567/ventoagent/internal/infrastructure/logging"
	"github.com/nerrad567/ventoagent/internal/infrastructure/mqtt"
	"github.com/nerrad567/ventoagent/internal/monitor"
	"github.com/nerrad567/ventoagent/internal/registry"
	"github.com/nerrad567/ventoagent/internal/status"
)

// subscribeQoS is used for the action wildcard subscription.
const subscribeQoS byte = 1

// Registrar is the control-plane surface the agent needs.
// controlplane.Client satisfies it.
type Registrar interface {
	DeviceExists(ctx context.Context, token, name string) (bool, error)
	RegisterDevice(ctx context.Context, token string, payload any) error
	UpdateDevice(ctx context.Context, token, name string, payload any) error
	TriggerRegisterActions(ctx context.Context, token string) error
	RegenerateBoard(ctx context.Context, token, name string) error
}

// Transport is the broker connection. mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	SetOnConnect(callback func(reconnect bool))
	HealthCheck(ctx context.Context) error
	Close() error
}

// DialFunc opens the transport. It is called once per Run, after the
// device has been registered.
type DialFunc func(ctx context.Context) (Transport, error)

// Options configures an Agent.
type Options struct {
	DeviceName string
	Token      string

	Providers []registry.Provider
	Registrar Registrar
	Dial      DialFunc

	// MonitorInterval is the default for monitors without their own interval.
	MonitorInterval time.Duration

	SkipRegisterActions bool

	// Once stops after the boot monitors have been published.
	Once bool

	// Sink mirrors monitor samples, e.g. to InfluxDB. Optional.
	Sink monitor.SampleSink

	// StatusListen enables the local status server when non-empty.
	StatusListen string

	// InfluxHealth is reported by the status server when set.
	InfluxHealth status.HealthChecker

	Version string
	Logger  *logging.Logger
}

// Agent runs one device.
type Agent struct {
	opts   Options
	logger *logging.Logger
}

// New validates opts.
func New(opts Options) (*Agent, error) {
	if opts.DeviceName == "" {
		return nil, errors.New("device name is required")
	}
	if opts.Registrar == nil {
		return nil, errors.New("registrar is required")
	}
	if opts.Dial == nil {
		return nil, errors.New("dial function is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{
		opts:   opts,
		logger: logger.ForDevice(opts.DeviceName),
	}, nil
}

// Run executes the agent until ctx is cancelled, or until boot monitors are
// published when Options.Once is set. Startup failures are returned.
func (a *Agent) Run(ctx context.Context) error {
	device := a.opts.DeviceName

	reg, err := registry.Build(device, a.opts.Providers...)
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}
	a.logger.Info("registry built",
		"subsystems", len(reg.Definitions()),
		"actions", reg.Keys(),
		"monitors", len(reg.Monitors()),
	)

	if err := a.ensureDevice(ctx, reg); err != nil {
		return err
	}

	transport, err := a.opts.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: connecting: %w", ErrTransport, err)
	}
	defer func() {
		a.logger.Info("disconnecting from MQTT")
		if closeErr := transport.Close(); closeErr != nil {
			a.logger.Error("error closing MQTT", "error", closeErr)
		}
	}()

	// Handlers keep running after shutdown starts; they are never interrupted.
	handlerCtx := context.WithoutCancel(ctx)
	dispatcher := registry.NewDispatcher(reg)
	dispatcher.SetLogger(a.logger)
	router := &router{
		dispatcher: dispatcher,
		publisher:  transport,
		logger:     a.logger,
		ctx:        handlerCtx,
	}

	filter := envelope.ActionFilter(device)
	if err := transport.Subscribe(filter, subscribeQoS, router.handle); err != nil {
		return fmt.Errorf("%w: subscribing to %s: %w", ErrTransport, filter, err)
	}
	a.logger.Info("connected to mqtt", "subscription", filter)

	sched := monitor.New(device, reg.Monitors(), transport, a.opts.MonitorInterval)
	sched.SetLogger(a.logger)
	if a.opts.Sink != nil {
		sched.SetSink(a.opts.Sink)
	}

	transport.SetOnConnect(func(reconnect bool) {
		if !reconnect || ctx.Err() != nil {
			return
		}
		a.logger.Info("reconnected, re-publishing boot monitors")
		go sched.PublishBoot(ctx)
	})

	published := sched.PublishBoot(ctx)
	a.logger.Info("boot monitors published", "count", published)
	if a.opts.Once {
		return nil
	}

	if a.opts.StatusListen != "" {
		srv, err := status.New(status.Deps{
			Listen:   a.opts.StatusListen,
			Logger:   a.logger,
			Version:  a.opts.Version,
			MQTT:     transport,
			InfluxDB: a.opts.InfluxHealth,
			Registry: reg,
			Monitors: sched,
		})
		if err != nil {
			return fmt.Errorf("creating status server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				a.logger.Error("error closing status server", "error", closeErr)
			}
		}()
	}

	started := sched.Start(ctx)
	a.logger.Info("agent running", "periodic_monitors", started)

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	sched.Wait()
	return nil
}

// ensureDevice updates an existing device, or registers a new one, uploads
// its description, triggers action registration and regenerates its board.
// Only the last two steps may fail without aborting startup.
func (a *Agent) ensureDevice(ctx context.Context, reg *registry.Registry) error {
	name := a.opts.DeviceName
	token := a.opts.Token
	description := reg.DevicePayload()

	exists, err := a.opts.Registrar.DeviceExists(ctx, token, name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	if exists {
		if err := a.opts.Registrar.UpdateDevice(ctx, token, name, description); err != nil {
			return fmt.Errorf("%w: %w", ErrRegistration, err)
		}
		a.logger.Info("device updated")
		return nil
	}

	a.logger.Info("device not found, registering")
	if err := a.opts.Registrar.RegisterDevice(ctx, token, reg.Registration()); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistration, err)
	}
	if err := a.opts.Registrar.UpdateDevice(ctx, token, name, description); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	if !a.opts.SkipRegisterActions {
		if err := a.opts.Registrar.TriggerRegisterActions(ctx, token); err != nil {
			a.logger.Warn("failed to trigger registerActions", "error", err)
		}
		if err := a.opts.Registrar.RegenerateBoard(ctx, token, name); err != nil {
			a.logger.Warn("failed to regenerate board", "error", err)
		}
	}
	return nil
}
