package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelscribe/internal/config"
	"reelscribe/internal/docstore"
	"reelscribe/internal/testsupport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func TestNewAndRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	first, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	defer first.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- first.Run(ctx)
	}()
	time.Sleep(100 * time.Millisecond)

	secondCfg := testConfig(t)
	secondCfg.Paths.LockFile = cfg.Paths.LockFile
	second, err := New(context.Background(), secondCfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close(context.Background())

	if err := second.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("first daemon did not stop")
	}
}

func TestOpenStoreReadsSeededJobs(t *testing.T) {
	cfg := testConfig(t)
	seeded := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedJob(t, seeded, cfg, "ws1", "job-1", "reel-1", "https://example.com/v/1")
	if err := seeded.Close(context.Background()); err != nil {
		t.Fatalf("close seed store: %v", err)
	}

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close(context.Background())

	doc, err := store.Get(context.Background(), docstore.Key{Workspace: "ws1", Collection: cfg.Store.JobsCollection, ID: "job-1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status, _ := doc.String("status"); status != "queued" {
		t.Fatalf("status = %q, want queued", status)
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "cassandra"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
