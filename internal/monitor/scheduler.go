package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/ventoagent/internal/envelope"
	"github.com/nerrad567/ventoagent/internal/registry"
)

// PublishQoS is used for monitor readings.
const PublishQoS byte = 1

// Publisher is the transport capability the scheduler needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// SampleSink receives every successfully published reading.
// influxdb.Client satisfies it.
type SampleSink interface {
	WriteMonitorSample(device, subsystem, monitor, units string, value any, ts time.Time)
}

// Logger interface for scheduler logging.
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

// Scheduler runs the boot and periodic publishers of a registry.
//
// Thread Safety:
//   - PublishBoot and Stats may run concurrently with the tick goroutines.
type Scheduler struct {
	device          string
	monitors        []registry.MonitorRef
	publisher       Publisher
	defaultInterval time.Duration

	sink   SampleSink
	logger Logger

	stats   map[string]*Stat
	statsMu sync.RWMutex

	wg      sync.WaitGroup
	started bool
	startMu sync.Mutex
}

// New creates a scheduler for the monitors of device. defaultInterval is
// used by monitors that do not set their own.
func New(device string, monitors []registry.MonitorRef, pub Publisher, defaultInterval time.Duration) *Scheduler {
	s := &Scheduler{
		device:          device,
		monitors:        monitors,
		publisher:       pub,
		defaultInterval: defaultInterval,
		logger:          noopLogger{},
		stats:           make(map[string]*Stat, len(monitors)),
	}
	for _, ref := range monitors {
		s.stats[statKey(ref)] = &Stat{
			Subsystem: ref.Subsystem,
			Monitor:   ref.Monitor.Name,
			Endpoint:  ref.Monitor.Endpoint,
			Interval:  ResolveInterval(ref.Monitor, defaultInterval),
		}
	}
	return s
}

// SetLogger sets the logger for publish failures.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// SetSink sets an optional sink that mirrors every published reading.
func (s *Scheduler) SetSink(sink SampleSink) {
	s.sink = sink
}

// ResolveInterval returns the tick interval of m: its own Interval when
// non-zero, otherwise def. A result <= 0 means the monitor never ticks.
func ResolveInterval(m registry.Monitor, def time.Duration) time.Duration {
	if m.Interval != 0 {
		return m.Interval
	}
	return def
}

// PublishBoot runs every boot function once, in registration order.
// Failures are logged and do not stop the remaining monitors.
// It returns the number of readings published.
func (s *Scheduler) PublishBoot(ctx context.Context) int {
	published := 0
	for _, ref := range s.monitors {
		if ref.Monitor.Boot == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if s.fire(ctx, ref, ref.Monitor.Boot) {
			published++
		}
	}
	return published
}

// Start launches one goroutine per ticking monitor with a positive interval.
// The goroutines exit once ctx is cancelled; use Wait to join them.
// Start is a no-op after the first call. It returns the number of tasks started.
func (s *Scheduler) Start(ctx context.Context) int {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return 0
	}
	s.started = true

	n := 0
	for _, ref := range s.monitors {
		if ref.Monitor.Tick == nil {
			continue
		}
		interval := ResolveInterval(ref.Monitor, s.defaultInterval)
		if interval <= 0 {
			s.logger.Debug("monitor ticking disabled",
				"subsystem", ref.Subsystem,
				"monitor", ref.Monitor.Name,
			)
			continue
		}
		s.wg.Add(1)
		go s.tickLoop(ctx, ref, interval)
		n++
	}
	return n
}

// Wait blocks until every tick goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) tickLoop(ctx context.Context, ref registry.MonitorRef, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Both cases may be ready at once; never fire after stop.
			if ctx.Err() != nil {
				return
			}
			s.fire(ctx, ref, ref.Monitor.Tick)
		}
	}
}

// fire produces and publishes one reading. It reports whether the reading
// reached the transport.
func (s *Scheduler) fire(ctx context.Context, ref registry.MonitorRef, fn registry.MonitorFunc) bool {
	value, err := s.produce(ctx, fn)
	if err != nil {
		s.recordFailure(ref, err)
		s.logger.Warn("monitor failed",
			"subsystem", ref.Subsystem,
			"monitor", ref.Monitor.Name,
			"error", err,
		)
		return false
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.recordFailure(ref, err)
		s.logger.Warn("monitor value not encodable",
			"subsystem", ref.Subsystem,
			"monitor", ref.Monitor.Name,
			"error", err,
		)
		return false
	}

	topic := envelope.DeviceTopic(s.device, ref.Monitor.Endpoint)
	if err := s.publisher.Publish(topic, payload, PublishQoS, false); err != nil {
		s.recordFailure(ref, err)
		s.logger.Warn("monitor publish failed",
			"topic", topic,
			"error", err,
		)
		return false
	}

	now := time.Now()
	s.recordSuccess(ref, now)
	if s.sink != nil {
		s.sink.WriteMonitorSample(s.device, ref.Subsystem, ref.Monitor.Name, ref.Monitor.Units, value, now)
	}
	return true
}

func (s *Scheduler) produce(ctx context.Context, fn registry.MonitorFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor panic: %v", r)
		}
	}()
	return fn(ctx)
}
