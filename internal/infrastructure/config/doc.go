// Package config handles loading, validating and saving the agent configuration.
//
// This package manages:
//   - Loading configuration from a YAML file (missing file means defaults)
//   - Overriding with VENTOAGENT_* environment variables
//   - Applying command-line overrides
//   - Validation of required fields
//   - Atomic persistence of the login token and generated device name
//
// Security Considerations:
//   - The session token is stored in the config file; it is written with mode 0600
//   - Prefer VENTOAGENT_TOKEN on shared hosts
//
// Usage:
//
//	cfg, err := config.Load("ventoagent.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.ApplyOverrides(config.Overrides{DeviceName: "pi1"})
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
