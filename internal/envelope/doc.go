// Package envelope turns transport topics into routable action requests.
//
// Inbound action topics follow
//
//	devices/{device}/{subsystem}/actions/{action}[/{requestID}]
//
// A request with a request ID carries a ReplyChannel that publishes to the
// same topic with "/reply" appended. Topics ending in "reply" are never
// parsed as requests, so the agent cannot route its own replies.
//
// Parsing is pure; only ReplyChannel performs I/O, through a Publisher.
package envelope
