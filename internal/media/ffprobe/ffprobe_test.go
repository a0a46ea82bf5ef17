package ffprobe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultDurationFromFormat(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}, {CodecType: "audio", Duration: "100.0"}},
		Format:  Format{Duration: "123.45"},
	}
	duration, ok := result.DurationSeconds()
	if !ok || duration != 123.45 {
		t.Fatalf("duration = %v ok=%v, want 123.45", duration, ok)
	}
	if !result.HasAudio() {
		t.Fatal("HasAudio = false with an audio stream present")
	}
}

func TestResultDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "88.5"},
			{CodecType: "video", Duration: "90.25"},
		},
	}
	duration, ok := result.DurationSeconds()
	if !ok || duration != 90.25 {
		t.Fatalf("duration = %v ok=%v, want 90.25", duration, ok)
	}
}

func TestResultDurationUnknown(t *testing.T) {
	for _, format := range []Format{{}, {Duration: "bad"}, {Duration: "-5"}, {Duration: "0"}} {
		if _, ok := (Result{Format: format}).DurationSeconds(); ok {
			t.Fatalf("duration %q reported as known", format.Duration)
		}
	}
}

func TestProberInspectParsesJSON(t *testing.T) {
	prober := NewProber("ffprobe")
	var gotArgs []string
	prober.WithCommandOutput(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(`{"format":{"duration":"45.0"},"streams":[{"codec_type":"audio"}]}`), nil
	})

	duration, ok := prober.DurationSeconds(context.Background(), "/tmp/video.mp4")
	if !ok || duration != 45.0 {
		t.Fatalf("duration = %v ok=%v, want 45", duration, ok)
	}
	if gotArgs[0] != "ffprobe" || gotArgs[len(gotArgs)-1] != "/tmp/video.mp4" {
		t.Fatalf("unexpected invocation: %v", gotArgs)
	}
}

func TestProberTimeoutBoundsInvocation(t *testing.T) {
	prober := NewProber("ffprobe")
	prober.WithTimeout(30 * time.Second)
	var deadlineSet bool
	prober.WithCommandOutput(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		_, deadlineSet = ctx.Deadline()
		return []byte(`{"format":{"duration":"10.0"}}`), nil
	})

	if _, ok := prober.DurationSeconds(context.Background(), "/tmp/video.mp4"); !ok {
		t.Fatal("probe failed")
	}
	if !deadlineSet {
		t.Fatal("invocation context has no deadline")
	}
}

func TestProberInspectFailureReportsUnknown(t *testing.T) {
	prober := NewProber("")
	prober.WithCommandOutput(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	if _, ok := prober.DurationSeconds(context.Background(), "/tmp/video.mp4"); ok {
		t.Fatal("probe failure reported a known duration")
	}
}

func TestProberInspectEmptyPath(t *testing.T) {
	prober := NewProber("ffprobe")
	if _, err := prober.Inspect(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
