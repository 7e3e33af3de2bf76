// Package controlplane is the HTTP client for the Vento control plane.
//
// It logs the agent in, checks whether the device exists and creates or
// updates its description. Every authenticated call carries the session
// token both as a Bearer header and as a ?token= query parameter, since
// the control plane accepts either depending on the route.
package controlplane
