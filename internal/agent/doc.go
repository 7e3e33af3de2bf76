// Package agent wires the registry, the MQTT transport and the monitor
// scheduler into one running device agent.
//
// Run performs the startup sequence in order: build the subsystem registry,
// upsert the device on the control plane, connect and subscribe to
// devices/{device}/+/actions/#, publish boot monitors, start periodic
// monitors, then block until the context is cancelled. The transport is
// closed on every exit path once it has been opened.
package agent
