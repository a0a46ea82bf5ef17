// Package transcribe turns audio files into transcripts. The router picks a
// provider based on the probed media duration; providers do the actual
// speech-to-text work.
package transcribe

import (
	"context"
	"time"

	"reelscribe/internal/jobs"
)

// Request describes one transcription task handed to a provider.
type Request struct {
	// AudioPath is the extracted audio file to transcribe.
	AudioPath string
	// VideoPath is the downloaded source video, used for duration probing.
	// May be empty when the caller only has audio.
	VideoPath string
	// DurationSeconds is the probed media duration, 0 when unknown.
	DurationSeconds float64
	// Language is an optional BCP-47 hint forwarded to the provider.
	Language string
	// Prompt is optional context text forwarded to the provider.
	Prompt string
}

// Result is a completed transcription.
type Result struct {
	Text            string
	Segments        []jobs.Segment
	DurationSeconds float64
	Provider        string
	Elapsed         time.Duration
}

// Provider produces a transcript for a single audio file.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}
