// Package lease implements exclusive, expiring job ownership on top of the
// document store. A worker must hold the lease on a job before running it;
// leases expire on their own so a crashed worker never strands a job.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelscribe/internal/docstore"
	"reelscribe/internal/jobs"
	"reelscribe/internal/logging"
)

// Reason explains why an acquisition was denied.
type Reason string

const (
	ReasonGranted   Reason = "granted"
	ReasonNotFound  Reason = "not_found"
	ReasonCompleted Reason = "completed"
	ReasonLeased    Reason = "leased"
)

// Result reports the outcome of an Acquire call.
type Result struct {
	Granted bool
	Reason  Reason
	// Attempts is the attempt count after acquisition. Only meaningful when
	// Granted is true.
	Attempts int
	// LeaseUntil is the expiry of the granted lease.
	LeaseUntil time.Time
}

// Manager grants and releases job leases.
type Manager struct {
	store    docstore.Store
	duration time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a lease manager with the given lease duration.
func NewManager(store docstore.Store, duration time.Duration, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		store:    store,
		duration: duration,
		logger:   logger.With(logging.String(logging.FieldComponent, "lease")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire attempts to take the lease on the job identified by key. The whole
// decision runs inside one store transaction, so two concurrent workers can
// never both be granted a live lease on the same job. A grant increments the
// job's attempt count exactly once and stamps leaseUntil.
func (m *Manager) Acquire(ctx context.Context, key docstore.Key) (Result, error) {
	var result Result
	err := m.store.Transaction(ctx, key, func(tx docstore.Tx) error {
		doc, err := tx.Get(ctx, key)
		if errors.Is(err, docstore.ErrNotFound) {
			result = Result{Reason: ReasonNotFound}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read job %s: %w", key, err)
		}

		status, _ := doc.String("status")
		if status == string(jobs.StatusCompleted) {
			result = Result{Reason: ReasonCompleted}
			return nil
		}

		now := m.now().UTC()
		if leaseUntil, ok := doc.Time("leaseUntil"); ok && leaseUntil.After(now) {
			result = Result{Reason: ReasonLeased}
			return nil
		}

		attempts, _ := doc.Int("attempts")
		attempts++
		expiry := now.Add(m.duration)
		update := docstore.Document{
			"status":     string(jobs.StatusRunning),
			"attempts":   attempts,
			"leaseUntil": expiry.Format(time.RFC3339Nano),
			"updatedAt":  now.Format(time.RFC3339Nano),
		}
		if err := tx.Set(ctx, key, update, true); err != nil {
			return fmt.Errorf("write lease for %s: %w", key, err)
		}
		result = Result{
			Granted:    true,
			Reason:     ReasonGranted,
			Attempts:   attempts,
			LeaseUntil: expiry,
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if result.Granted {
		m.logger.Debug("lease granted",
			logging.String(logging.FieldJobID, key.ID),
			logging.Int("attempts", result.Attempts))
	}
	return result, nil
}

// Release expires the lease immediately so the job can be picked up again.
// The caller is responsible for writing the job's final status alongside or
// before releasing.
func (m *Manager) Release(ctx context.Context, key docstore.Key) error {
	now := m.now().UTC()
	update := docstore.Document{
		"leaseUntil": now.Format(time.RFC3339Nano),
		"updatedAt":  now.Format(time.RFC3339Nano),
	}
	if err := m.store.Set(ctx, key, update, true); err != nil {
		return fmt.Errorf("release lease for %s: %w", key, err)
	}
	return nil
}
