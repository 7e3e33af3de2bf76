package gpio

import "errors"

var (
	// ErrNotRaspberryPi is the sticky init failure on other hosts.
	ErrNotRaspberryPi = errors.New("GPIO not available: not running on Raspberry Pi")

	// ErrInvalidPin is returned for negative pin numbers.
	ErrInvalidPin = errors.New("invalid pin")

	// ErrUnsupported is returned by the driver on non-Linux builds.
	ErrUnsupported = errors.New("gpio: character device not supported on this platform")
)
