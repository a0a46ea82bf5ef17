package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeJobs()
	c.normalizeTranscription()
	c.normalizeProviders()
	c.normalizeMedia()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TmpDir) == "" {
		c.Paths.TmpDir = defaultTmpDir
	}
	if c.Paths.TmpDir, err = expandPath(c.Paths.TmpDir); err != nil {
		return fmt.Errorf("paths.tmp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = defaultLockFile
	}
	if c.Paths.LockFile, err = expandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	var err error
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = defaultSQLitePath
	}
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	if strings.TrimSpace(c.Store.MongoDatabase) == "" {
		c.Store.MongoDatabase = defaultMongoDatabase
	}
	if strings.TrimSpace(c.Store.ReelsCollection) == "" {
		c.Store.ReelsCollection = defaultReelsCollection
	}
	if strings.TrimSpace(c.Store.JobsCollection) == "" {
		c.Store.JobsCollection = defaultJobsCollection
	}
	return nil
}

func (c *Config) normalizeQueue() {
	if strings.TrimSpace(c.Queue.RedisURL) == "" {
		c.Queue.RedisURL = defaultRedisURL
	}
	if strings.TrimSpace(c.Queue.Name) == "" {
		c.Queue.Name = defaultQueueName
	}
	if c.Queue.PopTimeout <= 0 {
		c.Queue.PopTimeout = defaultQueuePopTimeout
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.LeaseSeconds <= 0 {
		c.Jobs.LeaseSeconds = defaultLeaseSeconds
	}
	if c.Jobs.MaxAttempts <= 0 {
		c.Jobs.MaxAttempts = defaultMaxAttempts
	}
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = defaultWorkers
	}
}

func (c *Config) normalizeTranscription() {
	if c.Transcription.LocalThresholdSeconds <= 0 {
		c.Transcription.LocalThresholdSeconds = defaultLocalThresholdSeconds
	}
	if c.Transcription.ChunkSeconds <= 0 {
		c.Transcription.ChunkSeconds = defaultChunkSeconds
	}
	if c.Transcription.UploadCeilingBytes <= 0 {
		c.Transcription.UploadCeilingBytes = defaultUploadCeilingBytes
	}
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	c.Transcription.Prompt = strings.TrimSpace(c.Transcription.Prompt)
}

func (c *Config) normalizeProviders() {
	if strings.TrimSpace(c.Local.URL) == "" {
		c.Local.URL = defaultLocalProviderURL
	}
	if c.Local.TimeoutSeconds <= 0 {
		c.Local.TimeoutSeconds = defaultLocalTimeoutSeconds
	}
	if strings.TrimSpace(c.Remote.URL) == "" {
		c.Remote.URL = defaultRemoteProviderURL
	}
	if strings.TrimSpace(c.Remote.Model) == "" {
		c.Remote.Model = defaultRemoteModel
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeoutSeconds
	}
	if c.Remote.RetryAttempts <= 0 {
		c.Remote.RetryAttempts = defaultRemoteRetryAttempts
	}
	if c.Remote.RetryBaseMS <= 0 {
		c.Remote.RetryBaseMS = defaultRemoteRetryBaseMS
	}
	if c.Remote.RetryMult <= 1 {
		c.Remote.RetryMult = defaultRemoteRetryMult
	}
	c.Remote.APIKey = strings.TrimSpace(c.Remote.APIKey)
}

func (c *Config) normalizeMedia() {
	if c.Media.DownloadTimeout <= 0 {
		c.Media.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Media.ExtractTimeout <= 0 {
		c.Media.ExtractTimeout = defaultExtractTimeout
	}
	if c.Media.ProbeTimeout <= 0 {
		c.Media.ProbeTimeout = defaultProbeTimeout
	}
	if c.Media.EncodeTimeout <= 0 {
		c.Media.EncodeTimeout = defaultEncodeTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.TimeoutSeconds <= 0 {
		c.Notifications.TimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
