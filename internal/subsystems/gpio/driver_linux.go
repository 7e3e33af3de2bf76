//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "ventoagent"

// ChipDriver drives lines on one GPIO character device.
type ChipDriver struct {
	chip string
}

// NewChipDriver returns a driver for chip, e.g. "gpiochip0".
func NewChipDriver(chip string) *ChipDriver {
	return &ChipDriver{chip: chip}
}

// Init opens the chip once to confirm it exists and is accessible.
func (d *ChipDriver) Init() error {
	c, err := gpiocdev.NewChip(d.chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return fmt.Errorf("opening %s: %w", d.chip, err)
	}
	return c.Close()
}

// SetPin requests the line as an output at the desired level, then releases it.
func (d *ChipDriver) SetPin(pin int, high bool) error {
	value := 0
	if high {
		value = 1
	}
	l, err := gpiocdev.RequestLine(d.chip, pin, gpiocdev.AsOutput(value), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return fmt.Errorf("requesting %s line %d: %w", d.chip, pin, err)
	}
	defer l.Close()
	if err := l.SetValue(value); err != nil {
		return fmt.Errorf("setting line %d: %w", pin, err)
	}
	return nil
}

// ReadPin requests the line as an input and reads it.
func (d *ChipDriver) ReadPin(pin int) (bool, error) {
	l, err := gpiocdev.RequestLine(d.chip, pin, gpiocdev.AsInput, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return false, fmt.Errorf("requesting %s line %d: %w", d.chip, pin, err)
	}
	defer l.Close()
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("reading line %d: %w", pin, err)
	}
	return v != 0, nil
}
