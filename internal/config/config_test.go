package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Jobs.LeaseSeconds != defaultLeaseSeconds {
		t.Fatalf("unexpected lease seconds %d", cfg.Jobs.LeaseSeconds)
	}
	if cfg.Transcription.UploadCeilingBytes != defaultUploadCeilingBytes {
		t.Fatalf("unexpected ceiling %d", cfg.Transcription.UploadCeilingBytes)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
tmp_dir = "` + dir + `/tmp"

[jobs]
lease_seconds = 600
max_attempts = 5

[transcription]
local_threshold_seconds = 45
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s (exists), got %s %v", path, resolved, exists)
	}
	if cfg.Jobs.LeaseSeconds != 600 {
		t.Fatalf("lease_seconds = %d, want 600", cfg.Jobs.LeaseSeconds)
	}
	if cfg.Jobs.MaxAttempts != 5 {
		t.Fatalf("max_attempts = %d, want 5", cfg.Jobs.MaxAttempts)
	}
	if cfg.Transcription.LocalThresholdSeconds != 45 {
		t.Fatalf("local_threshold_seconds = %d, want 45", cfg.Transcription.LocalThresholdSeconds)
	}
	// Unset sections keep defaults.
	if cfg.Queue.Name != defaultQueueName {
		t.Fatalf("queue name = %q, want default", cfg.Queue.Name)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "dynamo"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "store.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestValidateRequiresMongoURI(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "mongo"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing mongo_uri")
	}
}

func TestValidateRequiresAuthSecret(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = true
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "auth.secret") {
		t.Fatalf("expected auth secret error, got %v", err)
	}
}

func TestValidateLeaseFloor(t *testing.T) {
	cfg := Default()
	cfg.Jobs.LeaseSeconds = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected lease floor error")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
}
