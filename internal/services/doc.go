// Package services defines shared utilities consumed by the worker pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, workspace IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform across download, extraction, and transcription.
package services
