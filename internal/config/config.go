package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	TmpDir   string `toml:"tmp_dir"`
	LogDir   string `toml:"log_dir"`
	LockFile string `toml:"lock_file"`
	APIBind  string `toml:"api_bind"`
}

// Store selects and configures the document store backend.
type Store struct {
	Backend         string `toml:"backend"` // "sqlite" or "mongo"
	SQLitePath      string `toml:"sqlite_path"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	ReelsCollection string `toml:"reels_collection"`
	JobsCollection  string `toml:"jobs_collection"`
}

// Queue configures the Redis work queue.
type Queue struct {
	RedisURL    string `toml:"redis_url"`
	Name        string `toml:"name"`
	PopTimeout  int    `toml:"pop_timeout_seconds"`
	UseEmbedded bool   `toml:"use_embedded"` // in-process queue for single-node setups
}

// Jobs contains lease and retry policy settings.
type Jobs struct {
	LeaseSeconds int `toml:"lease_seconds"`
	MaxAttempts  int `toml:"max_attempts"`
	Workers      int `toml:"workers"`
}

// Transcription contains routing and chunking settings.
type Transcription struct {
	LocalThresholdSeconds int    `toml:"local_threshold_seconds"`
	ChunkSeconds          int    `toml:"chunk_seconds"`
	UploadCeilingBytes    int64  `toml:"upload_ceiling_bytes"`
	Language              string `toml:"language"`
	Prompt                string `toml:"prompt"`
}

// LocalProvider configures the self-hosted transcription service.
type LocalProvider struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RemoteProvider configures the hosted transcription API.
type RemoteProvider struct {
	URL            string  `toml:"url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
	RetryBaseMS    int     `toml:"retry_base_ms"`
	RetryMult      float64 `toml:"retry_multiplier"`
}

// Media contains timeouts for external media tools.
type Media struct {
	DownloadTimeout int `toml:"download_timeout_seconds"`
	ExtractTimeout  int `toml:"extract_timeout_seconds"`
	ProbeTimeout    int `toml:"probe_timeout_seconds"`
	EncodeTimeout   int `toml:"encode_timeout_seconds"`
}

// Auth configures bearer token verification for the API.
type Auth struct {
	Enabled              bool   `toml:"enabled"`
	Secret               string `toml:"secret"`
	Issuer               string `toml:"issuer"`
	Audience             string `toml:"audience"`
	RequireInternalClaim bool   `toml:"require_internal_claim"`
}

// Notifications configures optional ntfy push notifications for job events.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelscribe.
//
// Configuration sections by subsystem:
//   - Paths: temp/log directories, daemon lock file, API bind address
//   - Store: document store backend (embedded sqlite or mongo)
//   - Queue: Redis work queue connection and queue name
//   - Jobs: lease duration, retry budget, worker count
//   - Transcription: provider routing threshold, chunking, upload ceiling
//   - Local / Remote: transcription provider endpoints
//   - Media: timeouts for yt-dlp, ffmpeg, and ffprobe invocations
//   - Auth: bearer token verification for the HTTP API
//   - Logging: log format and level
type Config struct {
	Paths         Paths          `toml:"paths"`
	Store         Store          `toml:"store"`
	Queue         Queue          `toml:"queue"`
	Jobs          Jobs           `toml:"jobs"`
	Transcription Transcription  `toml:"transcription"`
	Local         LocalProvider  `toml:"local_provider"`
	Remote        RemoteProvider `toml:"remote_provider"`
	Media         Media          `toml:"media"`
	Auth          Auth           `toml:"auth"`
	Notifications Notifications  `toml:"notifications"`
	Logging       Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TmpDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DownloaderBinary returns the downloader executable name.
func (c *Config) DownloaderBinary() string {
	return "yt-dlp"
}

// FFmpegBinary returns the ffmpeg executable name used for audio processing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
