// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The router uses the reported duration to choose between the local and
// remote transcription providers. A failed probe is not fatal: callers
// treat the duration as unknown and fall back to the local provider.
//
// Key types:
//   - Prober: executes ffprobe with a swappable subprocess hook
//   - Result: parsed ffprobe output containing streams and format metadata
//
// Primary entry points:
//   - Prober.Inspect: executes ffprobe and returns a parsed Result
//   - Prober.DurationSeconds: duration probe with unknown fallback
package ffprobe
