package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Channels  int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type commandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober runs ffprobe inspections.
type Prober struct {
	binary  string
	timeout time.Duration
	run     commandOutput
}

// NewProber creates a prober using the given ffprobe binary name.
func NewProber(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{
		binary: binary,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// WithCommandOutput overrides subprocess execution. Used by tests.
func (p *Prober) WithCommandOutput(run commandOutput) {
	if run != nil {
		p.run = run
	}
}

// WithTimeout bounds each ffprobe invocation. Zero means no bound beyond
// the caller's context.
func (p *Prober) WithTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	output, err := p.run(ctx, p.binary,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// DurationSeconds returns the media duration in seconds. It reports false
// when the probe failed to determine a usable duration, which callers treat
// as unknown rather than an error.
func (p *Prober) DurationSeconds(ctx context.Context, path string) (float64, bool) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, false
	}
	duration, ok := result.DurationSeconds()
	return duration, ok
}

// DurationSeconds returns the container duration, falling back to the longest
// stream duration when the container does not report one.
func (r Result) DurationSeconds() (float64, bool) {
	if duration, ok := parsePositiveFloat(r.Format.Duration); ok {
		return duration, true
	}
	best := 0.0
	for _, stream := range r.Streams {
		if duration, ok := parsePositiveFloat(stream.Duration); ok && duration > best {
			best = duration
		}
	}
	if best > 0 {
		return best, true
	}
	return 0, false
}

// HasAudio reports whether the container carries at least one audio stream.
func (r Result) HasAudio() bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return true
		}
	}
	return false
}

func parsePositiveFloat(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
