package testsupport

import (
	"context"
	"testing"

	"reelscribe/internal/config"
	"reelscribe/internal/docstore"
	"reelscribe/internal/docstore/sqlitedoc"
)

// MustOpenStore opens the sqlite document store from the test config and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) docstore.Store {
	t.Helper()

	store, err := sqlitedoc.Open(cfg.Store.SQLitePath)
	if err != nil {
		t.Fatalf("sqlitedoc.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

// SeedJob writes a queued job document for tests using the provided store.
func SeedJob(t testing.TB, store docstore.Store, cfg *config.Config, workspaceID, jobID, reelID, reelURL string) {
	t.Helper()

	key := docstore.Key{Workspace: workspaceID, Collection: cfg.Store.JobsCollection, ID: jobID}
	doc := docstore.Document{
		"jobId":    jobID,
		"reelId":   reelID,
		"reelUrl":  reelURL,
		"status":   "queued",
		"attempts": 0,
	}
	if err := store.Set(context.Background(), key, doc, false); err != nil {
		t.Fatalf("seed job %s: %v", jobID, err)
	}
}
