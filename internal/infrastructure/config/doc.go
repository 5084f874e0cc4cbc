// Package config loads and validates the telemetry core configuration.
//
// Precedence is defaults, then the YAML file, then TELEMETRY_* environment
// variables. Secrets (JWT secret, InfluxDB token, broker and Redis
// passwords) are expected from the environment.
//
// Usage:
//
//	cfg, err := config.Load(config.PathFromEnv())
//	if err != nil {
//	    return err
//	}
package config
