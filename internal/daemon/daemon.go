// Package daemon assembles the running service: document store, work queue,
// worker pool and HTTP API, guarded by a lock file so only one instance runs
// per machine.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reelscribe/internal/api"
	"reelscribe/internal/auth"
	"reelscribe/internal/config"
	"reelscribe/internal/docstore"
	"reelscribe/internal/docstore/mongodoc"
	"reelscribe/internal/docstore/sqlitedoc"
	"reelscribe/internal/download"
	"reelscribe/internal/lease"
	"reelscribe/internal/logging"
	"reelscribe/internal/media/audio"
	"reelscribe/internal/media/ffprobe"
	"reelscribe/internal/notifications"
	"reelscribe/internal/submit"
	"reelscribe/internal/transcribe"
	"reelscribe/internal/transcribe/openai"
	"reelscribe/internal/transcribe/whisperd"
	"reelscribe/internal/worker"
	"reelscribe/internal/workqueue"
)

// ErrAlreadyRunning indicates another daemon instance holds the lock file.
var ErrAlreadyRunning = errors.New("daemon: another instance is already running")

// Daemon owns the long-running components.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store  docstore.Store
	queue  workqueue.Queue
	pool   *worker.Pool
	server *api.Server
	lock   *flock.Flock

	closeOnce sync.Once
}

// New builds the daemon from configuration. OpenStore and OpenQueue pick the
// configured backends; everything downstream is deterministic wiring.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queue, err := OpenQueue(ctx, cfg)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	leases := lease.NewManager(store, time.Duration(cfg.Jobs.LeaseSeconds)*time.Second, logger)
	prober := ffprobe.NewProber(cfg.FFprobeBinary())
	prober.WithTimeout(time.Duration(cfg.Media.ProbeTimeout) * time.Second)
	processor := audio.NewProcessor(cfg.FFmpegBinary())
	processor.WithTimeout(time.Duration(cfg.Media.EncodeTimeout) * time.Second)
	downloader := download.NewDownloader(cfg.DownloaderBinary())

	local := whisperd.NewClient(cfg.Local.URL, time.Duration(cfg.Local.TimeoutSeconds)*time.Second)
	remote := openai.NewClient(openai.Config{
		URL:     cfg.Remote.URL,
		APIKey:  cfg.Remote.APIKey,
		Model:   cfg.Remote.Model,
		Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		Retry: openai.RetryPolicy{
			Attempts: cfg.Remote.RetryAttempts,
			Base:     time.Duration(cfg.Remote.RetryBaseMS) * time.Millisecond,
			Mult:     cfg.Remote.RetryMult,
		},
		UploadCeilingBytes: cfg.Transcription.UploadCeilingBytes,
		ChunkSeconds:       float64(cfg.Transcription.ChunkSeconds),
	}, processor, prober)
	router := transcribe.NewRouter(prober, local, remote, float64(cfg.Transcription.LocalThresholdSeconds), logger)

	orchestrator, err := worker.NewOrchestrator(worker.Options{
		Store:           store,
		Queue:           queue,
		Leases:          leases,
		Fetcher:         downloader,
		Extractor:       processor,
		Transcriber:     router,
		ReelsCollection: cfg.Store.ReelsCollection,
		JobsCollection:  cfg.Store.JobsCollection,
		WorkDir:         cfg.Paths.TmpDir,
		MaxAttempts:     cfg.Jobs.MaxAttempts,
		Timeouts: worker.Timeouts{
			Download: time.Duration(cfg.Media.DownloadTimeout) * time.Second,
			Extract:  time.Duration(cfg.Media.ExtractTimeout) * time.Second,
		},
		Language: cfg.Transcription.Language,
		Prompt:   cfg.Transcription.Prompt,
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	})
	if err != nil {
		_ = queue.Close()
		_ = store.Close(ctx)
		return nil, err
	}

	submitter := submit.NewService(store, queue, cfg.Store.ReelsCollection, cfg.Store.JobsCollection, logger)

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		verifier, err = auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.RequireInternalClaim)
		if err != nil {
			_ = queue.Close()
			_ = store.Close(ctx)
			return nil, err
		}
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:  store,
		queue:  queue,
		pool:   worker.NewPool(queue, orchestrator, cfg.Jobs.Workers, logger),
		server: api.NewServer(submitter, verifier, logger),
		lock:   flock.New(cfg.Paths.LockFile),
	}, nil
}

// OpenStore opens the configured document store backend.
func OpenStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return sqlitedoc.Open(cfg.Store.SQLitePath)
	case "mongo":
		return mongodoc.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenQueue opens the configured work queue backend.
func OpenQueue(ctx context.Context, cfg *config.Config) (workqueue.Queue, error) {
	popTimeout := time.Duration(cfg.Queue.PopTimeout) * time.Second
	if cfg.Queue.UseEmbedded {
		return workqueue.NewMemory(0, popTimeout), nil
	}
	return workqueue.NewRedis(ctx, cfg.Queue.RedisURL, cfg.Queue.Name, popTimeout)
}

// Run holds the daemon until ctx is cancelled. It refuses to start when
// another instance already holds the lock file.
func (d *Daemon) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.cfg.Paths.LockFile), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock file: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer d.lock.Unlock() //nolint:errcheck

	d.logger.Info("daemon starting",
		logging.String("store", d.cfg.Store.Backend),
		logging.Int("workers", d.cfg.Jobs.Workers),
		logging.String("api_bind", d.cfg.Paths.APIBind))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.server.ListenAndServe(runCtx, d.cfg.Paths.APIBind)
	}()

	poolDone := make(chan struct{})
	go func() {
		d.pool.Run(runCtx)
		close(poolDone)
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		// API died; stop the workers too.
		cancel()
	case <-runCtx.Done():
		runErr = <-errCh
	}
	<-poolDone
	d.logger.Info("daemon stopped")
	return runErr
}

// Close releases the store and queue.
func (d *Daemon) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		if qErr := d.queue.Close(); qErr != nil {
			err = qErr
		}
		if sErr := d.store.Close(ctx); sErr != nil && err == nil {
			err = sErr
		}
	})
	return err
}
