package testsupport

import (
	"path/filepath"
	"testing"

	"reelscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test,
// an on-disk sqlite store and the embedded queue so nothing external is
// needed. It applies any provided options last.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.TmpDir = filepath.Join(base, "tmp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LockFile = filepath.Join(base, "daemon.lock")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Store.Backend = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(base, "docs.db")
	cfg.Queue.UseEmbedded = true
	cfg.Jobs.Workers = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers sets the worker pool size on the test config.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.Workers = n
	}
}

// WithAuth enables API authentication with the given HS256 secret.
func WithAuth(secret string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.Secret = secret
	}
}
