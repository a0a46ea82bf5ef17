package config

const (
	defaultTmpDir                = "/tmp/reelscribe"
	defaultLogDir                = "~/.local/share/reelscribe/logs"
	defaultLockFile              = "~/.local/share/reelscribe/reelscribed.lock"
	defaultAPIBind               = "127.0.0.1:8420"
	defaultStoreBackend          = "sqlite"
	defaultSQLitePath            = "~/.local/share/reelscribe/docs.db"
	defaultMongoDatabase         = "reelscribe"
	defaultReelsCollection       = "sources_reels"
	defaultJobsCollection        = "source_jobs"
	defaultRedisURL              = "redis://localhost:6379/0"
	defaultQueueName             = "sources"
	defaultQueuePopTimeout       = 5
	defaultLeaseSeconds          = 300
	defaultMaxAttempts           = 3
	defaultWorkers               = 2
	defaultLocalThresholdSeconds = 90
	defaultChunkSeconds          = 120
	defaultUploadCeilingBytes    = 25 * 1024 * 1024
	defaultLocalProviderURL      = "http://localhost:9000/transcribe"
	defaultLocalTimeoutSeconds   = 900
	defaultRemoteProviderURL     = "https://api.openai.com/v1/audio/transcriptions"
	defaultRemoteModel           = "whisper-1"
	defaultRemoteTimeoutSeconds  = 900
	defaultRemoteRetryAttempts   = 4
	defaultRemoteRetryBaseMS     = 1500
	defaultRemoteRetryMult       = 2.0
	defaultDownloadTimeout       = 180
	defaultExtractTimeout        = 120
	defaultProbeTimeout          = 30
	defaultEncodeTimeout         = 450
	defaultNtfyTimeoutSeconds    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TmpDir:   defaultTmpDir,
			LogDir:   defaultLogDir,
			LockFile: defaultLockFile,
			APIBind:  defaultAPIBind,
		},
		Store: Store{
			Backend:         defaultStoreBackend,
			SQLitePath:      defaultSQLitePath,
			MongoDatabase:   defaultMongoDatabase,
			ReelsCollection: defaultReelsCollection,
			JobsCollection:  defaultJobsCollection,
		},
		Queue: Queue{
			RedisURL:   defaultRedisURL,
			Name:       defaultQueueName,
			PopTimeout: defaultQueuePopTimeout,
		},
		Jobs: Jobs{
			LeaseSeconds: defaultLeaseSeconds,
			MaxAttempts:  defaultMaxAttempts,
			Workers:      defaultWorkers,
		},
		Transcription: Transcription{
			LocalThresholdSeconds: defaultLocalThresholdSeconds,
			ChunkSeconds:          defaultChunkSeconds,
			UploadCeilingBytes:    defaultUploadCeilingBytes,
		},
		Local: LocalProvider{
			URL:            defaultLocalProviderURL,
			TimeoutSeconds: defaultLocalTimeoutSeconds,
		},
		Remote: RemoteProvider{
			URL:            defaultRemoteProviderURL,
			Model:          defaultRemoteModel,
			TimeoutSeconds: defaultRemoteTimeoutSeconds,
			RetryAttempts:  defaultRemoteRetryAttempts,
			RetryBaseMS:    defaultRemoteRetryBaseMS,
			RetryMult:      defaultRemoteRetryMult,
		},
		Media: Media{
			DownloadTimeout: defaultDownloadTimeout,
			ExtractTimeout:  defaultExtractTimeout,
			ProbeTimeout:    defaultProbeTimeout,
			EncodeTimeout:   defaultEncodeTimeout,
		},
		Auth: Auth{},
		Notifications: Notifications{
			TimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
