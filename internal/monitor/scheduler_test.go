package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/ventoagent/internal/registry"
)

// mockPublisher records published topics and payloads.
type mockPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []string
	failOn   string
}

func (m *mockPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if topic == m.failOn {
		return errors.New("broker unavailable")
	}
	m.topics = append(m.topics, topic)
	m.payloads = append(m.payloads, string(payload))
	return nil
}

func (m *mockPublisher) published() ([]string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topics...), append([]string(nil), m.payloads...)
}

func (m *mockPublisher) countTopic(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type mockSink struct {
	mu      sync.Mutex
	samples []string
}

func (m *mockSink) WriteMonitorSample(device, subsystem, monitor, _ string, _ any, _ time.Time) {
	m.mu.Lock()
	m.samples = append(m.samples, device+"/"+subsystem+"/"+monitor)
	m.mu.Unlock()
}

func value(v any) registry.MonitorFunc {
	return func(context.Context) (any, error) { return v, nil }
}

func ref(subsystem string, m registry.Monitor) registry.MonitorRef {
	if m.Endpoint == "" {
		m.Endpoint = "/" + subsystem + "/monitors/" + m.Name
	}
	return registry.MonitorRef{Subsystem: subsystem, Monitor: m}
}

// =============================================================================
// Boot Tests
// =============================================================================

func TestPublishBoot_OrderAndIsolation(t *testing.T) {
	pub := &mockPublisher{failOn: "devices/pi1/system/monitors/unreachable"}
	monitors := []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "memory_total", Boot: value("8192")}),
		ref("system", registry.Monitor{Name: "broken", Boot: func(context.Context) (any, error) {
			return nil, errors.New("no /proc")
		}}),
		ref("system", registry.Monitor{Name: "panics", Boot: func(context.Context) (any, error) {
			panic("boom")
		}}),
		ref("system", registry.Monitor{Name: "unreachable", Boot: value("x")}),
		ref("system", registry.Monitor{Name: "tick_only", Tick: value("1")}),
		ref("system", registry.Monitor{Name: "inert"}),
		ref("gpio", registry.Monitor{Name: "chip", Boot: value("gpiochip0")}),
	}

	s := New("pi1", monitors, pub, time.Second)
	if got := s.PublishBoot(context.Background()); got != 2 {
		t.Errorf("PublishBoot() = %d, want 2", got)
	}

	topics, payloads := pub.published()
	wantTopics := []string{
		"devices/pi1/system/monitors/memory_total",
		"devices/pi1/gpio/monitors/chip",
	}
	wantPayloads := []string{`"8192"`, `"gpiochip0"`}
	if len(topics) != len(wantTopics) {
		t.Fatalf("published topics = %v, want %v", topics, wantTopics)
	}
	for i := range wantTopics {
		if topics[i] != wantTopics[i] || payloads[i] != wantPayloads[i] {
			t.Errorf("publish[%d] = %s %s, want %s %s", i, topics[i], payloads[i], wantTopics[i], wantPayloads[i])
		}
	}

	for _, st := range s.Stats() {
		switch st.Monitor {
		case "broken", "panics", "unreachable":
			if st.Failures != 1 || st.LastError == "" {
				t.Errorf("stat %s = %+v, want one failure", st.Monitor, st)
			}
		case "memory_total", "chip":
			if st.Published != 1 {
				t.Errorf("stat %s published = %d, want 1", st.Monitor, st.Published)
			}
		}
	}
}

func TestPublishBoot_SinkMirrorsSuccesses(t *testing.T) {
	pub := &mockPublisher{}
	sink := &mockSink{}
	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "cpu_cores", Boot: value("4")}),
		ref("system", registry.Monitor{Name: "bad", Boot: func(context.Context) (any, error) { return nil, errors.New("x") }}),
	}, pub, time.Second)
	s.SetSink(sink)

	s.PublishBoot(context.Background())

	if len(sink.samples) != 1 || sink.samples[0] != "pi1/system/cpu_cores" {
		t.Errorf("sink samples = %v", sink.samples)
	}
}

// =============================================================================
// Interval Tests
// =============================================================================

func TestResolveInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		def      time.Duration
		want     time.Duration
	}{
		{"own interval", 5 * time.Second, 30 * time.Second, 5 * time.Second},
		{"falls back to default", 0, 30 * time.Second, 30 * time.Second},
		{"zero everywhere", 0, 0, 0},
		{"negative disables", -time.Second, 30 * time.Second, -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveInterval(registry.Monitor{Interval: tt.interval}, tt.def)
			if got != tt.want {
				t.Errorf("ResolveInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStart_ZeroIntervalNeverFires(t *testing.T) {
	var calls atomic.Int64
	tick := func(context.Context) (any, error) {
		calls.Add(1)
		return "x", nil
	}

	pub := &mockPublisher{}
	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "zero", Tick: tick}),
		ref("system", registry.Monitor{Name: "negative", Tick: tick, Interval: -time.Millisecond}),
	}, pub, 0)

	ctx, cancel := context.WithCancel(context.Background())
	if got := s.Start(ctx); got != 0 {
		t.Errorf("Start() = %d, want 0 tasks", got)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Wait()

	if calls.Load() != 0 {
		t.Errorf("tick calls = %d, want 0", calls.Load())
	}
}

func TestStart_FiresPeriodicallyAndStops(t *testing.T) {
	pub := &mockPublisher{}
	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "memory_used", Tick: value("1024"), Interval: 10 * time.Millisecond}),
	}, pub, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if got := s.Start(ctx); got != 1 {
		t.Fatalf("Start() = %d, want 1", got)
	}

	time.Sleep(105 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick goroutine did not exit after cancel")
	}

	n := pub.countTopic("devices/pi1/system/monitors/memory_used")
	if n < 3 || n > 12 {
		t.Errorf("ticks = %d, want roughly 10", n)
	}

	time.Sleep(30 * time.Millisecond)
	if after := pub.countTopic("devices/pi1/system/monitors/memory_used"); after != n {
		t.Errorf("ticks after stop = %d, want %d", after, n)
	}
}

func TestStart_SlowMonitorDoesNotBlockOthers(t *testing.T) {
	pub := &mockPublisher{}
	release := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "slow", nil
	}

	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "slow", Tick: slow, Interval: 5 * time.Millisecond}),
		ref("system", registry.Monitor{Name: "fast", Tick: value("fast"), Interval: 5 * time.Millisecond}),
	}, pub, 0)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	cancel()
	close(release)
	s.Wait()

	if n := pub.countTopic("devices/pi1/system/monitors/fast"); n < 3 {
		t.Errorf("fast monitor ticks = %d, want >= 3 while slow monitor is blocked", n)
	}
}

func TestStart_FailingTickKeepsLooping(t *testing.T) {
	var calls atomic.Int64
	failing := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("sensor offline")
	}

	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "sensor", Tick: failing, Interval: 5 * time.Millisecond}),
	}, &mockPublisher{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Wait()

	if calls.Load() < 3 {
		t.Errorf("tick calls = %d, want >= 3", calls.Load())
	}
	stats := s.Stats()
	if len(stats) != 1 || stats[0].Failures != calls.Load() {
		t.Errorf("stats = %+v, want failures = %d", stats, calls.Load())
	}
}

func TestStart_OnlyOnce(t *testing.T) {
	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "m", Tick: value(1), Interval: time.Hour}),
	}, &mockPublisher{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if got := s.Start(ctx); got != 1 {
		t.Errorf("first Start() = %d, want 1", got)
	}
	if got := s.Start(ctx); got != 0 {
		t.Errorf("second Start() = %d, want 0", got)
	}
	cancel()
	s.Wait()
}

func TestStart_CancelledBeforeFirstTick(t *testing.T) {
	var calls atomic.Int64
	s := New("pi1", []registry.MonitorRef{
		ref("system", registry.Monitor{Name: "m", Interval: 50 * time.Millisecond, Tick: func(context.Context) (any, error) {
			calls.Add(1)
			return 1, nil
		}}),
	}, &mockPublisher{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Wait()

	if calls.Load() != 0 {
		t.Errorf("tick calls = %d, want 0", calls.Load())
	}
}
