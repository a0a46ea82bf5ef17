// Package submit registers reels for transcription. It writes the reel and
// job documents and pushes the job onto the work queue; both the HTTP API and
// the CLI go through this service.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelscribe/internal/docstore"
	"reelscribe/internal/fingerprint"
	"reelscribe/internal/jobs"
	"reelscribe/internal/logging"
	"reelscribe/internal/services"
	"reelscribe/internal/workqueue"
)

// Request describes a transcription submission.
type Request struct {
	WorkspaceID string
	URL         string
	// ReelID identifies the reel document. When empty, a stable id is
	// derived from the URL so resubmitting the same link targets the same
	// reel.
	ReelID string
	Source string
}

// Response reports what the submission did.
type Response struct {
	JobID  string
	ReelID string
	// AlreadyTranscribed is true when the reel already has a transcript;
	// the returned job is recorded as completed and nothing is queued.
	AlreadyTranscribed bool
}

// Service accepts submissions and hands them to the worker fleet.
type Service struct {
	store           docstore.Store
	queue           workqueue.Queue
	reelsCollection string
	jobsCollection  string
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
}

// NewService wires a submission service.
func NewService(store docstore.Store, queue workqueue.Queue, reelsCollection, jobsCollection string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:           store,
		queue:           queue,
		reelsCollection: reelsCollection,
		jobsCollection:  jobsCollection,
		logger:          logger.With(logging.String(logging.FieldComponent, "submit")),
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return services.Wrap(services.ErrValidation, "submit", "validate", "workspaceId is required", nil)
	}
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return services.Wrap(services.ErrValidation, "submit", "validate", "url is required", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "submit", "validate", fmt.Sprintf("invalid url %q", raw), err)
	}
	return nil
}

// Submit registers the reel and enqueues a transcription job for it. A reel
// that already carries a transcript is left untouched; the submission is
// answered with an immediately completed job.
func (s *Service) Submit(ctx context.Context, req Request) (Response, error) {
	if err := validate(req); err != nil {
		return Response{}, err
	}
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	reelURL := strings.TrimSpace(req.URL)
	reelID := strings.TrimSpace(req.ReelID)
	if reelID == "" {
		reelID = fingerprint.FromURL(reelURL)
	}
	ctx = services.WithWorkspaceID(ctx, workspaceID)

	reelKey := docstore.Key{Workspace: workspaceID, Collection: s.reelsCollection, ID: reelID}
	existing, err := s.store.Get(ctx, reelKey)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return Response{}, fmt.Errorf("load reel: %w", err)
	}
	if existing != nil {
		if text, _ := existing.String("transcriptText"); strings.TrimSpace(text) != "" {
			// Record a completed job anyway so the caller has a jobId to
			// poll; no work is queued for it.
			jobID, err := s.writeCompletedJob(ctx, workspaceID, reelID, reelURL)
			if err != nil {
				return Response{}, err
			}
			return Response{JobID: jobID, ReelID: reelID, AlreadyTranscribed: true}, nil
		}
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	reelDoc := docstore.Document{
		"reelId":      reelID,
		"workspaceId": workspaceID,
		"reelUrl":     reelURL,
		"status":      "pending_transcription",
		"updatedAt":   now,
	}
	if req.Source != "" {
		reelDoc["source"] = req.Source
	}
	if existing == nil {
		reelDoc["createdAt"] = now
	}
	if err := s.store.Set(ctx, reelKey, reelDoc, true); err != nil {
		return Response{}, fmt.Errorf("write reel: %w", err)
	}

	jobID := s.newID()
	jobKey := docstore.Key{Workspace: workspaceID, Collection: s.jobsCollection, ID: jobID}
	jobDoc := docstore.Document{
		"jobId":       jobID,
		"workspaceId": workspaceID,
		"reelId":      reelID,
		"reelUrl":     reelURL,
		"status":      string(jobs.StatusQueued),
		"attempts":    0,
		"createdAt":   now,
		"updatedAt":   now,
	}
	if req.Source != "" {
		jobDoc["source"] = req.Source
	}
	if err := s.store.Set(ctx, jobKey, jobDoc, false); err != nil {
		return Response{}, fmt.Errorf("write job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, workqueue.Message{JobID: jobID, WorkspaceID: workspaceID}); err != nil {
		return Response{}, fmt.Errorf("enqueue job: %w", err)
	}
	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldWorkspaceID, workspaceID),
		logging.String("reel_id", reelID))
	return Response{JobID: jobID, ReelID: reelID}, nil
}

func (s *Service) writeCompletedJob(ctx context.Context, workspaceID, reelID, reelURL string) (string, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)
	jobID := s.newID()
	jobKey := docstore.Key{Workspace: workspaceID, Collection: s.jobsCollection, ID: jobID}
	jobDoc := docstore.Document{
		"jobId":       jobID,
		"workspaceId": workspaceID,
		"reelId":      reelID,
		"reelUrl":     reelURL,
		"status":      string(jobs.StatusCompleted),
		"attempts":    0,
		"createdAt":   now,
		"updatedAt":   now,
	}
	if err := s.store.Set(ctx, jobKey, jobDoc, false); err != nil {
		return "", fmt.Errorf("write job: %w", err)
	}
	return jobID, nil
}

// Job fetches a job document by id.
func (s *Service) Job(ctx context.Context, workspaceID, jobID string) (jobs.Job, error) {
	key := docstore.Key{Workspace: strings.TrimSpace(workspaceID), Collection: s.jobsCollection, ID: strings.TrimSpace(jobID)}
	doc, err := s.store.Get(ctx, key)
	if err != nil {
		return jobs.Job{}, err
	}
	var job jobs.Job
	if err := doc.Decode(&job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
