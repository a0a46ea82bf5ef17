package mongodoc

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"reelscribe/internal/docstore"
)

func TestNormalizeValueDateTime(t *testing.T) {
	when := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	got := normalizeValue(primitive.NewDateTimeFromTime(when))
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("normalizeValue returned %T, want time.Time", got)
	}
	if !ts.Equal(when) {
		t.Fatalf("ts = %v, want %v", ts, when)
	}
}

func TestNormalizeValueNested(t *testing.T) {
	raw := bson.M{
		"segments": primitive.A{
			bson.D{{Key: "start", Value: 0.0}, {Key: "text", Value: "hello"}},
		},
	}
	got := normalizeValue(raw).(map[string]any)
	segments, ok := got["segments"].([]any)
	if !ok || len(segments) != 1 {
		t.Fatalf("segments = %#v", got["segments"])
	}
	seg, ok := segments[0].(map[string]any)
	if !ok {
		t.Fatalf("segment = %#v", segments[0])
	}
	if seg["text"] != "hello" {
		t.Fatalf("text = %v, want hello", seg["text"])
	}
}

func TestDocIDScopesWorkspace(t *testing.T) {
	key := docstore.Key{Workspace: "ws1", Collection: "source_jobs", ID: "job-1"}
	if got := docID(key); got != "ws1/job-1" {
		t.Fatalf("docID = %q", got)
	}
	other := docstore.Key{Workspace: "ws2", Collection: "source_jobs", ID: "job-1"}
	if docID(key) == docID(other) {
		t.Fatal("documents in different workspaces collide")
	}
}
