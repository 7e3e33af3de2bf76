package gpio

import (
	"fmt"
	"sync"
)

// State is the controller's initialisation state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Driver performs pin I/O.
type Driver interface {
	// Init checks the hardware is usable. It is called at most once.
	Init() error
	SetPin(pin int, high bool) error
	ReadPin(pin int) (bool, error)
}

// Logger interface for controller state changes.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Controller serialises access to the GPIO driver and owns the lazy
// initialisation state machine. Failed is terminal.
type Controller struct {
	driver Driver
	detect func() bool
	logger Logger

	mu    sync.Mutex
	state State
	err   error
}

// NewController returns an uninitialised controller. detect reports whether
// GPIO hardware is expected on this host.
func NewController(driver Driver, detect func() bool) *Controller {
	return &Controller{
		driver: driver,
		detect: detect,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for state changes.
func (c *Controller) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger != nil {
		c.logger = logger
	}
}

// State returns the current state and the cached failure, if any.
func (c *Controller) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}

// SetPin drives pin high or low.
func (c *Controller) SetPin(pin int, high bool) error {
	if err := c.acquire(pin); err != nil {
		return err
	}
	defer c.mu.Unlock()
	return c.driver.SetPin(pin, high)
}

// ReadPin returns the digital level of pin.
func (c *Controller) ReadPin(pin int) (bool, error) {
	if err := c.acquire(pin); err != nil {
		return false, err
	}
	defer c.mu.Unlock()
	return c.driver.ReadPin(pin)
}

// acquire validates pin, initialises on first use and, on success, returns
// with c.mu held.
func (c *Controller) acquire(pin int) error {
	if pin < 0 {
		return fmt.Errorf("%w %d", ErrInvalidPin, pin)
	}

	c.mu.Lock()
	if c.state == StateUninitialized {
		c.initLocked()
	}
	if c.state == StateFailed {
		err := c.err
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Controller) initLocked() {
	if !c.detect() {
		c.fail(ErrNotRaspberryPi)
		return
	}
	if err := c.driver.Init(); err != nil {
		c.fail(fmt.Errorf("GPIO init failed: %w", err))
		return
	}
	c.state = StateReady
	c.logger.Info("GPIO started ok")
}

func (c *Controller) fail(err error) {
	c.state = StateFailed
	c.err = err
	c.logger.Warn("GPIO unavailable", "error", err)
}
