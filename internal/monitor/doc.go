// Package monitor publishes monitor readings.
//
// Boot monitors are published once, sequentially, in registration order.
// Each ticking monitor then gets its own goroutine that publishes every
// interval until the run context is cancelled. A slow or failing monitor
// never delays another.
package monitor
