package transcribe

import (
	"context"
	"errors"
	"testing"
)

type stubProber struct {
	duration   float64
	known      bool
	probedPath string
}

func (s *stubProber) DurationSeconds(_ context.Context, path string) (float64, bool) {
	s.probedPath = path
	return s.duration, s.known
}

type stubProvider struct {
	name   string
	calls  int
	result Result
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Transcribe(_ context.Context, _ Request) (Result, error) {
	s.calls++
	return s.result, s.err
}

func newStubs() (*stubProvider, *stubProvider) {
	local := &stubProvider{name: "whisperd", result: Result{Text: "local"}}
	remote := &stubProvider{name: "openai", result: Result{Text: "remote"}}
	return local, remote
}

func TestRouterShortMediaGoesLocal(t *testing.T) {
	local, remote := newStubs()
	router := NewRouter(&stubProber{duration: 45, known: true}, local, remote, 90, nil)

	result, err := router.Transcribe(context.Background(), Request{AudioPath: "/tmp/a.mp3"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if local.calls != 1 || remote.calls != 0 {
		t.Fatalf("calls local=%d remote=%d, want local only", local.calls, remote.calls)
	}
	if result.Provider != "whisperd" {
		t.Fatalf("provider = %q", result.Provider)
	}
	if result.DurationSeconds != 45 {
		t.Fatalf("duration = %v, want 45", result.DurationSeconds)
	}
}

func TestRouterThresholdDurationGoesRemote(t *testing.T) {
	local, remote := newStubs()
	router := NewRouter(&stubProber{duration: 90, known: true}, local, remote, 90, nil)

	result, err := router.Transcribe(context.Background(), Request{AudioPath: "/tmp/a.mp3"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if remote.calls != 1 || local.calls != 0 {
		t.Fatalf("calls local=%d remote=%d, want remote only", local.calls, remote.calls)
	}
	if result.Provider != "openai" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

func TestRouterUnknownDurationGoesLocal(t *testing.T) {
	local, remote := newStubs()
	router := NewRouter(&stubProber{known: false}, local, remote, 90, nil)

	if _, err := router.Transcribe(context.Background(), Request{AudioPath: "/tmp/a.mp3"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if local.calls != 1 || remote.calls != 0 {
		t.Fatalf("calls local=%d remote=%d, want local only", local.calls, remote.calls)
	}
}

func TestRouterProbesVideoFirst(t *testing.T) {
	local, remote := newStubs()
	prober := &stubProber{duration: 45, known: true}
	router := NewRouter(prober, local, remote, 90, nil)

	req := Request{AudioPath: "/tmp/a.mp3", VideoPath: "/tmp/a.mp4"}
	if _, err := router.Transcribe(context.Background(), req); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if prober.probedPath != "/tmp/a.mp4" {
		t.Fatalf("probed %q, want the source video", prober.probedPath)
	}

	prober.probedPath = ""
	if _, err := router.Transcribe(context.Background(), Request{AudioPath: "/tmp/a.mp3"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if prober.probedPath != "/tmp/a.mp3" {
		t.Fatalf("probed %q, want the audio fallback", prober.probedPath)
	}
}

func TestRouterSurfacesProviderError(t *testing.T) {
	local, remote := newStubs()
	boom := errors.New("boom")
	local.err = boom
	router := NewRouter(&stubProber{duration: 10, known: true}, local, remote, 90, nil)

	_, err := router.Transcribe(context.Background(), Request{AudioPath: "/tmp/a.mp3"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
