// Package status serves a small read-only HTTP endpoint describing the
// running agent: broker connectivity, the device description sent to the
// control plane, and per-monitor publish counters.
//
// The server is optional and binds to loopback by default:
//
//	srv, err := status.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package status
