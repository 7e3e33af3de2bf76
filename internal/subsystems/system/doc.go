// Package system provides the "system" subsystem: host metrics published as
// monitors, plus actions to print, run shell commands and manage files
// relative to the agent's base directory.
//
// Memory, CPU and OS figures come from gopsutil. Commands run through
// internal/process in their own process group with a bounded timeout.
package system
