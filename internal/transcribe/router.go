package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelscribe/internal/logging"
)

// DurationProber reports the duration of a media file, with ok=false when the
// probe could not determine one.
type DurationProber interface {
	DurationSeconds(ctx context.Context, path string) (float64, bool)
}

// Router chooses a provider per request: short media (or media whose duration
// cannot be determined) goes to the cheap local provider, long media goes to
// the remote provider, which can absorb chunked uploads.
type Router struct {
	prober           DurationProber
	local            Provider
	remote           Provider
	thresholdSeconds float64
	logger           *slog.Logger
}

// NewRouter wires the routing policy.
func NewRouter(prober DurationProber, local, remote Provider, thresholdSeconds float64, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		prober:           prober,
		local:            local,
		remote:           remote,
		thresholdSeconds: thresholdSeconds,
		logger:           logger.With(logging.String(logging.FieldComponent, "transcribe")),
	}
}

// Transcribe probes the source video and dispatches to the chosen provider.
// Media at or above the threshold duration is remote; everything else,
// including unprobeable media, is local. Requests without a video fall back
// to probing the audio file.
func (r *Router) Transcribe(ctx context.Context, req Request) (Result, error) {
	probePath := req.VideoPath
	if probePath == "" {
		probePath = req.AudioPath
	}
	duration, known := r.prober.DurationSeconds(ctx, probePath)
	if known {
		req.DurationSeconds = duration
	} else {
		req.DurationSeconds = 0
	}

	provider := r.local
	if known && duration >= r.thresholdSeconds {
		provider = r.remote
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("routing transcription",
		logging.String(logging.FieldProvider, provider.Name()),
		logging.Float64("duration_seconds", req.DurationSeconds),
		logging.Bool("duration_known", known))

	started := time.Now()
	result, err := provider.Transcribe(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: %w", provider.Name(), err)
	}
	result.Provider = provider.Name()
	result.Elapsed = time.Since(started)
	if result.DurationSeconds == 0 && known {
		result.DurationSeconds = duration
	}
	return result, nil
}
