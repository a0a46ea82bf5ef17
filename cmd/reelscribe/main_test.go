package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[paths]
tmp_dir = %q
log_dir = %q
lock_file = %q

[store]
backend = "sqlite"
sqlite_path = %q

[queue]
use_embedded = true
`,
		filepath.Join(dir, "tmp"),
		filepath.Join(dir, "log"),
		filepath.Join(dir, "daemon.lock"),
		filepath.Join(dir, "docs.db"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "valid") {
		t.Fatalf("output = %q", out)
	}
}

func TestSubmitAndStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath,
		"submit", "https://example.com/v/1", "--workspace", "ws1", "--source", "instagram")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Queued job ") {
		t.Fatalf("output = %q", out)
	}
	fields := strings.Fields(out)
	var jobID string
	for i, f := range fields {
		if f == "job" && i+1 < len(fields) {
			jobID = fields[i+1]
			break
		}
	}
	if jobID == "" {
		t.Fatalf("could not find job id in %q", out)
	}

	out, err = runCommand(t, "--config", configPath, "status", jobID, "--workspace", "ws1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "queued") {
		t.Fatalf("status output = %q", out)
	}
}

func TestSubmitRequiresWorkspace(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, "--config", configPath, "submit", "https://example.com/v/1"); err == nil {
		t.Fatal("submit without --workspace should fail")
	}
}
