// Package logging provides structured logging for the agent.
//
// It wraps log/slog with the agent's defaults: text output for operators
// watching a terminal, JSON when the agent runs under a supervisor, and
// service/version/device fields on every entry.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stdout"   # stdout, stderr, discard
//
// Never log the session token. It is also the MQTT password.
package logging
