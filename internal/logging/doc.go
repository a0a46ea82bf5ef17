// Package logging wires log/slog with console and JSON handlers plus the
// standardized field keys used across the worker, router, and API.
package logging
