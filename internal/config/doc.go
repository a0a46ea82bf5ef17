// Package config loads, normalizes, and validates the TOML configuration
// shared by the API server, worker daemon, and CLI.
package config
