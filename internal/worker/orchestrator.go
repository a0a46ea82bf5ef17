// Package worker runs transcription jobs pulled from the queue. The
// orchestrator owns the full job lifecycle: lease, idempotency check,
// download, audio extraction, transcription, result writes, and temp file
// cleanup. The pool fans the loop out over a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"reelscribe/internal/docstore"
	"reelscribe/internal/download"
	"reelscribe/internal/jobs"
	"reelscribe/internal/lease"
	"reelscribe/internal/logging"
	"reelscribe/internal/media/audio"
	"reelscribe/internal/services"
	"reelscribe/internal/transcribe"
	"reelscribe/internal/workqueue"
)

// Transcriber routes one audio file to a provider. Satisfied by
// transcribe.Router.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// Fetcher downloads a remote video. Satisfied by download.Downloader.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir, jobID string) (string, error)
}

var _ Fetcher = (*download.Downloader)(nil)

// Extractor pulls the audio track from a video. Satisfied by
// audio.Processor.
type Extractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

var _ Extractor = (*audio.Processor)(nil)

// Notifier publishes job outcomes. Satisfied by notifications.Service.
type Notifier interface {
	NotifyJobCompleted(ctx context.Context, jobID, provider string, duration float64) error
	NotifyJobFailed(ctx context.Context, jobID string, attempts int, cause error) error
}

// Timeouts bounds each pipeline stage.
type Timeouts struct {
	Download time.Duration
	Extract  time.Duration
}

// Options wires an Orchestrator.
type Options struct {
	Store           docstore.Store
	Queue           workqueue.Queue
	Leases          *lease.Manager
	Fetcher         Fetcher
	Extractor       Extractor
	Transcriber     Transcriber
	ReelsCollection string
	JobsCollection  string
	WorkDir         string
	MaxAttempts     int
	Timeouts        Timeouts
	Language        string
	Prompt          string
	Notifier        Notifier
	Logger          *slog.Logger
}

// Orchestrator processes one queue message at a time.
type Orchestrator struct {
	store           docstore.Store
	queue           workqueue.Queue
	leases          *lease.Manager
	fetcher         Fetcher
	extractor       Extractor
	transcriber     Transcriber
	reelsCollection string
	jobsCollection  string
	workDir         string
	maxAttempts     int
	timeouts        Timeouts
	language        string
	prompt          string
	notifier        Notifier
	logger          *slog.Logger
	now             func() time.Time
}

// NewOrchestrator validates the wiring and builds an orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Store == nil || opts.Queue == nil || opts.Leases == nil {
		return nil, errors.New("worker: store, queue and lease manager are required")
	}
	if opts.Fetcher == nil || opts.Extractor == nil || opts.Transcriber == nil {
		return nil, errors.New("worker: fetcher, extractor and transcriber are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &Orchestrator{
		store:           opts.Store,
		queue:           opts.Queue,
		leases:          opts.Leases,
		fetcher:         opts.Fetcher,
		extractor:       opts.Extractor,
		transcriber:     opts.Transcriber,
		reelsCollection: opts.ReelsCollection,
		jobsCollection:  opts.JobsCollection,
		workDir:         opts.WorkDir,
		maxAttempts:     opts.MaxAttempts,
		timeouts:        opts.Timeouts,
		language:        opts.Language,
		prompt:          opts.Prompt,
		notifier:        opts.Notifier,
		logger:          logger.With(logging.String(logging.FieldComponent, "worker")),
		now:             time.Now,
	}, nil
}

func (o *Orchestrator) jobKey(m workqueue.Message) docstore.Key {
	return docstore.Key{Workspace: m.WorkspaceID, Collection: o.jobsCollection, ID: m.JobID}
}

func (o *Orchestrator) reelKey(workspaceID, reelID string) docstore.Key {
	return docstore.Key{Workspace: workspaceID, Collection: o.reelsCollection, ID: reelID}
}

// Process handles one queue message end to end. Errors during the pipeline
// mark the job failed and, while attempts remain, put it back on the queue;
// only infrastructure errors (store or queue unavailable) are returned.
func (o *Orchestrator) Process(ctx context.Context, m workqueue.Message) error {
	if err := m.Validate(); err != nil {
		o.logger.Warn("dropping malformed queue message", logging.Error(err))
		return nil
	}
	ctx = services.WithJobID(ctx, m.JobID)
	ctx = services.WithWorkspaceID(ctx, m.WorkspaceID)
	logger := logging.WithContext(ctx, o.logger)

	grant, err := o.leases.Acquire(ctx, o.jobKey(m))
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !grant.Granted {
		switch grant.Reason {
		case lease.ReasonLeased:
			logger.Debug("job leased elsewhere, requeueing")
			return o.queue.Enqueue(ctx, m)
		case lease.ReasonCompleted:
			logger.Debug("job already completed")
		case lease.ReasonNotFound:
			logger.Warn("queued job has no document, dropping")
		}
		return nil
	}
	logger = logger.With(logging.Int("attempt", grant.Attempts))
	logger.Info("job started")

	job, err := o.loadJob(ctx, m)
	if err != nil {
		return o.fail(ctx, m, grant.Attempts, err)
	}

	// A reel that already has a transcript needs no work; this makes
	// duplicate submissions and redelivered messages harmless.
	reelKey := o.reelKey(m.WorkspaceID, job.ReelID)
	if done, checkErr := o.reelTranscribed(ctx, reelKey); checkErr != nil {
		return o.fail(ctx, m, grant.Attempts, checkErr)
	} else if done {
		logger.Info("reel already transcribed, completing job")
		return o.complete(ctx, m)
	}

	result, runErr := o.runPipeline(ctx, m, job)
	if runErr != nil {
		logger.Error("job failed", logging.Error(runErr))
		return o.fail(ctx, m, grant.Attempts, runErr)
	}

	if err := o.writeTranscript(ctx, reelKey, result); err != nil {
		return o.fail(ctx, m, grant.Attempts, err)
	}
	if err := o.complete(ctx, m); err != nil {
		return err
	}
	logger.Info("job completed",
		logging.String(logging.FieldProvider, result.Provider),
		logging.Float64("duration_seconds", result.DurationSeconds),
		logging.Duration("elapsed", result.Elapsed))
	if o.notifier != nil {
		if err := o.notifier.NotifyJobCompleted(ctx, m.JobID, result.Provider, result.DurationSeconds); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func (o *Orchestrator) loadJob(ctx context.Context, m workqueue.Message) (jobs.Job, error) {
	doc, err := o.store.Get(ctx, o.jobKey(m))
	if err != nil {
		return jobs.Job{}, fmt.Errorf("load job: %w", err)
	}
	var job jobs.Job
	if err := doc.Decode(&job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job: %w", err)
	}
	if strings.TrimSpace(job.ReelID) == "" || strings.TrimSpace(job.ReelURL) == "" {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "worker", "load_job", "job document missing reelId or reelUrl", nil)
	}
	return job, nil
}

func (o *Orchestrator) reelTranscribed(ctx context.Context, key docstore.Key) (bool, error) {
	doc, err := o.store.Get(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load reel: %w", err)
	}
	text, _ := doc.String("transcriptText")
	return strings.TrimSpace(text) != "", nil
}

// runPipeline downloads the video, extracts its audio and transcribes it.
// Both temp files are removed before returning, success or not.
func (o *Orchestrator) runPipeline(ctx context.Context, m workqueue.Message, job jobs.Job) (transcribe.Result, error) {
	downloadCtx, cancelDownload := stageContext(ctx, "download", o.timeouts.Download)
	videoPath, err := o.fetcher.Fetch(downloadCtx, job.ReelURL, o.workDir, m.JobID)
	cancelDownload()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("download: %w", err)
	}
	defer os.Remove(videoPath)

	extractCtx, cancelExtract := stageContext(ctx, "extract", o.timeouts.Extract)
	audioPath, err := o.extractor.Extract(extractCtx, videoPath)
	cancelExtract()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("extract audio: %w", err)
	}
	defer os.Remove(audioPath)

	result, err := o.transcriber.Transcribe(services.WithStage(ctx, "transcribe"), transcribe.Request{
		AudioPath: audioPath,
		VideoPath: videoPath,
		Language:  o.language,
		Prompt:    o.prompt,
	})
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("transcribe: %w", err)
	}
	return result, nil
}

func stageContext(ctx context.Context, stage string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx = services.WithStage(ctx, stage)
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) writeTranscript(ctx context.Context, key docstore.Key, result transcribe.Result) error {
	now := o.now().UTC().Format(time.RFC3339Nano)
	update := docstore.Document{
		"transcriptText":     result.Text,
		"transcriptSegments": result.Segments,
		"provider":           result.Provider,
		"status":             "transcribed",
		"updatedAt":          now,
	}
	if result.DurationSeconds > 0 {
		update["durationSeconds"] = result.DurationSeconds
	}
	if err := o.store.Set(ctx, key, update, true); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// complete marks the job done and expires its lease in one write.
func (o *Orchestrator) complete(ctx context.Context, m workqueue.Message) error {
	now := o.now().UTC().Format(time.RFC3339Nano)
	update := docstore.Document{
		"status":     string(jobs.StatusCompleted),
		"error":      "",
		"leaseUntil": now,
		"updatedAt":  now,
	}
	if err := o.store.Set(ctx, o.jobKey(m), update, true); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// fail records the failure, releases the lease and requeues the job while
// attempts remain.
func (o *Orchestrator) fail(ctx context.Context, m workqueue.Message, attempts int, cause error) error {
	now := o.now().UTC().Format(time.RFC3339Nano)
	update := docstore.Document{
		"status":     string(jobs.StatusFailed),
		"error":      cause.Error(),
		"leaseUntil": now,
		"updatedAt":  now,
	}
	if err := o.store.Set(ctx, o.jobKey(m), update, true); err != nil {
		return fmt.Errorf("record job failure: %w", err)
	}
	if attempts < o.maxAttempts {
		if err := o.queue.Enqueue(ctx, m); err != nil {
			return fmt.Errorf("requeue failed job: %w", err)
		}
		return nil
	}
	// Out of attempts: the job stays failed, so this is worth telling a
	// human about.
	if o.notifier != nil {
		if err := o.notifier.NotifyJobFailed(ctx, m.JobID, attempts, cause); err != nil {
			logging.WithContext(ctx, o.logger).Warn("failure notification failed", logging.Error(err))
		}
	}
	return nil
}
