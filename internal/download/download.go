// Package download fetches remote videos with yt-dlp.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelscribe/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Downloader fetches remote videos into a working directory.
type Downloader struct {
	binary string
	run    commandRunner
}

// NewDownloader creates a downloader using the given yt-dlp binary name.
func NewDownloader(binary string) *Downloader {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{
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
func (d *Downloader) WithCommandRunner(run commandRunner) {
	if run != nil {
		d.run = run
	}
}

// Fetch downloads the video at url into destDir as <jobID>.mp4 and returns
// the resulting path. A tool failure or an empty download is reported as an
// external-tool error so the job records a download failure.
func (d *Downloader) Fetch(ctx context.Context, url, destDir, jobID string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", services.Wrap(services.ErrValidation, "download", "fetch", "empty url", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "download", "fetch", "create download directory", err)
	}

	videoPath := filepath.Join(destDir, jobID+".mp4")
	err := d.run(ctx, d.binary,
		"--no-playlist",
		"--no-progress",
		"-f", "mp4/bv*+ba/b",
		"--merge-output-format", "mp4",
		"-o", videoPath,
		"--", url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "download", "fetch", "download timed out", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", "yt-dlp failed", err)
	}

	info, statErr := os.Stat(videoPath)
	if statErr != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", "download produced no file", statErr)
	}
	return videoPath, nil
}
