package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelscribe/internal/docstore"
	"reelscribe/internal/fingerprint"
	"reelscribe/internal/services"
	"reelscribe/internal/workqueue"
)

func newService(t *testing.T) (*Service, *docstore.Memory, *workqueue.MemoryQueue) {
	t.Helper()
	store := docstore.NewMemory()
	queue := workqueue.NewMemory(16, 20*time.Millisecond)
	t.Cleanup(func() { queue.Close() })
	return NewService(store, queue, "sources_reels", "source_jobs", nil), store, queue
}

func TestSubmitCreatesReelJobAndMessage(t *testing.T) {
	svc, store, queue := newService(t)
	ctx := context.Background()

	resp, err := svc.Submit(ctx, Request{
		WorkspaceID: "ws1",
		URL:         "https://example.com/v/1",
		Source:      "instagram",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID == "" || resp.AlreadyTranscribed {
		t.Fatalf("resp = %+v", resp)
	}
	if want := fingerprint.FromURL("https://example.com/v/1"); resp.ReelID != want {
		t.Fatalf("reelID = %q, want fingerprint %q", resp.ReelID, want)
	}

	reel, err := store.Get(ctx, docstore.Key{Workspace: "ws1", Collection: "sources_reels", ID: resp.ReelID})
	if err != nil {
		t.Fatalf("get reel: %v", err)
	}
	if status, _ := reel.String("status"); status != "pending_transcription" {
		t.Fatalf("reel status = %q", status)
	}

	job, err := store.Get(ctx, docstore.Key{Workspace: "ws1", Collection: "source_jobs", ID: resp.JobID})
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if status, _ := job.String("status"); status != "queued" {
		t.Fatalf("job status = %q", status)
	}
	if attempts, _ := job.Int("attempts"); attempts != 0 {
		t.Fatalf("attempts = %d", attempts)
	}

	m, ok, err := queue.Dequeue(ctx)
	if err != nil || !ok {
		t.Fatalf("Dequeue: ok=%v err=%v", ok, err)
	}
	if m.JobID != resp.JobID || m.WorkspaceID != "ws1" {
		t.Fatalf("message = %+v", m)
	}
}

func TestSubmitExplicitReelID(t *testing.T) {
	svc, _, _ := newService(t)
	resp, err := svc.Submit(context.Background(), Request{
		WorkspaceID: "ws1",
		URL:         "https://example.com/v/1",
		ReelID:      "custom-reel",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.ReelID != "custom-reel" {
		t.Fatalf("reelID = %q", resp.ReelID)
	}
}

func TestSubmitSkipsTranscribedReel(t *testing.T) {
	svc, store, queue := newService(t)
	ctx := context.Background()
	reelID := fingerprint.FromURL("https://example.com/v/1")
	key := docstore.Key{Workspace: "ws1", Collection: "sources_reels", ID: reelID}
	if err := store.Set(ctx, key, docstore.Document{"transcriptText": "done already"}, false); err != nil {
		t.Fatalf("seed reel: %v", err)
	}

	resp, err := svc.Submit(ctx, Request{WorkspaceID: "ws1", URL: "https://example.com/v/1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.AlreadyTranscribed || resp.JobID == "" {
		t.Fatalf("resp = %+v", resp)
	}
	job, err := svc.Job(ctx, "ws1", resp.JobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if string(job.Status) != "completed" {
		t.Fatalf("job status = %q, want completed", job.Status)
	}
	if _, ok, _ := queue.Dequeue(ctx); ok {
		t.Fatal("job enqueued for transcribed reel")
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newService(t)
	for name, req := range map[string]Request{
		"missing workspace": {URL: "https://example.com/v/1"},
		"missing url":       {WorkspaceID: "ws1"},
		"bad scheme":        {WorkspaceID: "ws1", URL: "ftp://example.com/v"},
		"not a url":         {WorkspaceID: "ws1", URL: "://nope"},
	} {
		if _, err := svc.Submit(context.Background(), req); !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestSubmitResubmissionKeepsReel(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, Request{WorkspaceID: "ws1", URL: "https://example.com/v/1"})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := svc.Submit(ctx, Request{WorkspaceID: "ws1", URL: "https://example.com/v/1"})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if first.ReelID != second.ReelID {
		t.Fatalf("reel ids differ: %q vs %q", first.ReelID, second.ReelID)
	}
	if first.JobID == second.JobID {
		t.Fatal("job ids should differ per submission")
	}
	if _, err := store.Get(ctx, docstore.Key{Workspace: "ws1", Collection: "source_jobs", ID: second.JobID}); err != nil {
		t.Fatalf("second job missing: %v", err)
	}
}

func TestJobLookup(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	resp, err := svc.Submit(ctx, Request{WorkspaceID: "ws1", URL: "https://example.com/v/1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job, err := svc.Job(ctx, "ws1", resp.JobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.JobID != resp.JobID || string(job.Status) != "queued" {
		t.Fatalf("job = %+v", job)
	}

	if _, err := svc.Job(ctx, "ws1", "ghost"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
