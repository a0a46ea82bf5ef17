package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelscribe/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Processor runs the ffmpeg operations the transcription pipeline needs:
// pulling the audio track out of a downloaded video, shrinking audio for
// upload, and slicing long audio into fixed-length chunks.
type Processor struct {
	binary  string
	timeout time.Duration
	run     commandRunner
}

// NewProcessor creates a processor using the given ffmpeg binary name.
func NewProcessor(binary string) *Processor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Processor{
		binary: binary,
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			output, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
			}
			return nil
		},
	}
}

// WithCommandRunner overrides subprocess execution. Used by tests.
func (p *Processor) WithCommandRunner(run commandRunner) {
	if run != nil {
		p.run = run
	}
}

// WithTimeout bounds each ffmpeg invocation. Zero means no bound beyond
// the caller's context.
func (p *Processor) WithTimeout(timeout time.Duration) {
	p.timeout = timeout
}

func (p *Processor) exec(ctx context.Context, operation string, args ...string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.run(ctx, p.binary, args...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "audio", operation, "ffmpeg timed out", err)
		}
		return services.Wrap(services.ErrExternalTool, "audio", operation, "ffmpeg failed", err)
	}
	return nil
}

func verifyOutput(operation, path string) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "audio", operation, "ffmpeg produced no output", err)
	}
	return nil
}

// Extract pulls the audio track from videoPath into an MP3 file next to it
// and returns the new path.
func (p *Processor) Extract(ctx context.Context, videoPath string) (string, error) {
	audioPath := replaceExt(videoPath, ".mp3")
	err := p.exec(ctx, "extract",
		"-y", "-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		audioPath)
	if err != nil {
		return "", err
	}
	if err := verifyOutput("extract", audioPath); err != nil {
		return "", err
	}
	return audioPath, nil
}

// EncodeForUpload re-encodes audioPath into a compact mono 16 kHz MP3 suited
// for upload to the remote provider and returns the new path.
func (p *Processor) EncodeForUpload(ctx context.Context, audioPath string) (string, error) {
	outPath := suffixPath(audioPath, "_upload", ".mp3")
	err := p.exec(ctx, "encode_for_upload",
		"-y", "-i", audioPath,
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "48k",
		outPath)
	if err != nil {
		return "", err
	}
	if err := verifyOutput("encode_for_upload", outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// ExtractChunk copies the [startSeconds, startSeconds+chunkSeconds) slice of
// audioPath into its own MP3 file and returns the new path.
func (p *Processor) ExtractChunk(ctx context.Context, audioPath string, index int, startSeconds, chunkSeconds float64) (string, error) {
	outPath := suffixPath(audioPath, fmt.Sprintf("_chunk%03d", index), ".mp3")
	err := p.exec(ctx, "extract_chunk",
		"-y",
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(chunkSeconds),
		"-i", audioPath,
		"-acodec", "copy",
		outPath)
	if err != nil {
		return "", err
	}
	if err := verifyOutput("extract_chunk", outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

func replaceExt(path, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ext
}

func suffixPath(path, suffix, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + suffix + ext
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
