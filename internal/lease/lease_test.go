package lease

import (
	"context"
	"sync"
	"testing"
	"time"

	"reelscribe/internal/docstore"
)

func jobKey(id string) docstore.Key {
	return docstore.Key{Workspace: "ws1", Collection: "source_jobs", ID: id}
}

func seedJob(t *testing.T, store docstore.Store, id string, doc docstore.Document) {
	t.Helper()
	if doc == nil {
		doc = docstore.Document{}
	}
	if _, ok := doc["status"]; !ok {
		doc["status"] = "queued"
	}
	if err := store.Set(context.Background(), jobKey(id), doc, false); err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func TestAcquireMissingJob(t *testing.T) {
	store := docstore.NewMemory()
	mgr := NewManager(store, 5*time.Minute, nil)

	result, err := mgr.Acquire(context.Background(), jobKey("missing"))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.Granted || result.Reason != ReasonNotFound {
		t.Fatalf("result = %+v, want not_found denial", result)
	}
}

func TestAcquireCompletedJob(t *testing.T) {
	store := docstore.NewMemory()
	seedJob(t, store, "job-1", docstore.Document{"status": "completed", "attempts": 2})
	mgr := NewManager(store, 5*time.Minute, nil)

	result, err := mgr.Acquire(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.Granted || result.Reason != ReasonCompleted {
		t.Fatalf("result = %+v, want completed denial", result)
	}

	doc, err := store.Get(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if attempts, _ := doc.Int("attempts"); attempts != 2 {
		t.Fatalf("attempts changed on denied acquire: %d", attempts)
	}
}

func TestAcquireGrantsAndStampsLease(t *testing.T) {
	store := docstore.NewMemory()
	seedJob(t, store, "job-1", nil)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mgr := NewManager(store, 5*time.Minute, nil, WithClock(func() time.Time { return now }))

	result, err := mgr.Acquire(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !result.Granted || result.Reason != ReasonGranted {
		t.Fatalf("result = %+v, want grant", result)
	}
	if result.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", result.Attempts)
	}
	if want := now.Add(5 * time.Minute); !result.LeaseUntil.Equal(want) {
		t.Fatalf("leaseUntil = %v, want %v", result.LeaseUntil, want)
	}

	doc, err := store.Get(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status, _ := doc.String("status"); status != "running" {
		t.Fatalf("status = %q, want running", status)
	}
	leaseUntil, ok := doc.Time("leaseUntil")
	if !ok || !leaseUntil.Equal(now.Add(5*time.Minute)) {
		t.Fatalf("stored leaseUntil = %v ok=%v", leaseUntil, ok)
	}
}

func TestAcquireDeniedWhileLeaseActive(t *testing.T) {
	store := docstore.NewMemory()
	seedJob(t, store, "job-1", nil)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	mgr := NewManager(store, 5*time.Minute, nil, WithClock(func() time.Time { return *clock }))

	if _, err := mgr.Acquire(context.Background(), jobKey("job-1")); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	result, err := mgr.Acquire(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if result.Granted || result.Reason != ReasonLeased {
		t.Fatalf("result = %+v, want leased denial", result)
	}

	doc, _ := store.Get(context.Background(), jobKey("job-1"))
	if attempts, _ := doc.Int("attempts"); attempts != 1 {
		t.Fatalf("attempts = %d after denied acquire, want 1", attempts)
	}
}

func TestAcquireAfterExpiryIncrementsAttempts(t *testing.T) {
	store := docstore.NewMemory()
	seedJob(t, store, "job-1", nil)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	mgr := NewManager(store, 5*time.Minute, nil, WithClock(func() time.Time { return *clock }))

	if _, err := mgr.Acquire(context.Background(), jobKey("job-1")); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	// Advance past expiry: the stale lease no longer blocks acquisition.
	later := now.Add(5*time.Minute + time.Second)
	clock = &later

	result, err := mgr.Acquire(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if !result.Granted {
		t.Fatalf("result = %+v, want grant after expiry", result)
	}
	if result.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", result.Attempts)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	store := docstore.NewMemory()
	seedJob(t, store, "job-1", nil)
	mgr := NewManager(store, 5*time.Minute, nil)

	if _, err := mgr.Acquire(context.Background(), jobKey("job-1")); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := mgr.Release(context.Background(), jobKey("job-1")); err != nil {
		t.Fatalf("Release: %v", err)
	}

	result, err := mgr.Acquire(context.Background(), jobKey("job-1"))
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !result.Granted || result.Attempts != 2 {
		t.Fatalf("result = %+v, want second grant", result)
	}
}

func TestConcurrentAcquireGrantsExactlyOnce(t *testing.T) {
	store := docstore.NewMemory()
	seedJob(t, store, "job-1", nil)
	mgr := NewManager(store, 5*time.Minute, nil)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan Result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := mgr.Acquire(context.Background(), jobKey("job-1"))
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	grants := 0
	for result := range results {
		if result.Granted {
			grants++
		} else if result.Reason != ReasonLeased {
			t.Errorf("denial reason = %q, want leased", result.Reason)
		}
	}
	if grants != 1 {
		t.Fatalf("grants = %d, want exactly 1", grants)
	}

	doc, _ := store.Get(context.Background(), jobKey("job-1"))
	if attempts, _ := doc.Int("attempts"); attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}
