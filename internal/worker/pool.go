package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reelscribe/internal/logging"
	"reelscribe/internal/workqueue"
)

// dequeueErrorDelay keeps workers from hammering an unreachable queue.
const dequeueErrorDelay = time.Second

// Pool runs a fixed number of workers against the queue until the context is
// cancelled.
type Pool struct {
	queue        workqueue.Queue
	orchestrator *Orchestrator
	workers      int
	errorDelay   time.Duration
	logger       *slog.Logger
}

// NewPool creates a pool of size workers.
func NewPool(queue workqueue.Queue, orchestrator *Orchestrator, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		queue:        queue,
		orchestrator: orchestrator,
		workers:      workers,
		errorDelay:   dequeueErrorDelay,
		logger:       logger.With(logging.String(logging.FieldComponent, "workerpool")),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight jobs to finish.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	logger := p.logger.With(logging.Int("worker", id))
	logger.Info("worker started")
	for {
		if ctx.Err() != nil {
			logger.Info("worker stopping")
			return
		}
		m, ok, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, workqueue.ErrClosed) {
				logger.Info("worker stopping")
				return
			}
			logger.Error("dequeue failed", logging.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(p.errorDelay):
			}
			continue
		}
		if !ok {
			continue
		}
		if err := p.orchestrator.Process(ctx, m); err != nil {
			logger.Error("job processing failed",
				logging.String(logging.FieldJobID, m.JobID),
				logging.Error(err))
		}
	}
}
