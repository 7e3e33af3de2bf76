// Package gpio provides the "gpio" hardware subsystem for Raspberry Pi hosts.
//
// Pins use BCM numbering and are driven through the Linux GPIO character
// device (/dev/gpiochip0) via go-gpiocdev. Each request claims the line,
// acts on it and releases it again.
//
// The Controller initialises lazily on first use. A failed initialisation
// is remembered and returned to every later caller; the agent must be
// restarted to retry.
package gpio
