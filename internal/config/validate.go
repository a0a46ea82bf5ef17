package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "sqlite":
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path must be set for the sqlite backend")
		}
	case "mongo":
		if strings.TrimSpace(c.Store.MongoURI) == "" {
			return errors.New("store.mongo_uri must be set for the mongo backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"sqlite\" or \"mongo\", got %q", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if !c.Queue.UseEmbedded && strings.TrimSpace(c.Queue.RedisURL) == "" {
		return errors.New("queue.redis_url must be set when queue.use_embedded is false")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.LeaseSeconds < 30 {
		return errors.New("jobs.lease_seconds must be at least 30; it must cover the worst-case pipeline latency")
	}
	if c.Jobs.MaxAttempts < 1 {
		return errors.New("jobs.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.ChunkSeconds < 10 {
		return errors.New("transcription.chunk_seconds must be at least 10")
	}
	if c.Remote.RetryMult <= 1 {
		return errors.New("remote_provider.retry_multiplier must be greater than 1")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !c.Auth.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelscribe/config.toml"
		}
		return fmt.Errorf("auth.secret is required when auth.enabled is true. Edit %s (create with 'reelscribe config init') or set auth.enabled = false", defaultPath)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
