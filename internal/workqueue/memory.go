package workqueue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when operating on a closed in-memory queue.
var ErrClosed = errors.New("workqueue: queue closed")

// MemoryQueue is an in-process Queue for tests and embedded mode.
type MemoryQueue struct {
	ch         chan Message
	popTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewMemory creates an in-memory queue holding up to capacity pending
// messages.
func NewMemory(capacity int, popTimeout time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	if popTimeout <= 0 {
		popTimeout = 100 * time.Millisecond
	}
	return &MemoryQueue{
		ch:         make(chan Message, capacity),
		popTimeout: popTimeout,
	}
}

// Enqueue pushes a message onto the queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.mu.Unlock()

	select {
	case q.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue pops the next message, waiting up to the pop timeout.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Message, bool, error) {
	timer := time.NewTimer(q.popTimeout)
	defer timer.Stop()
	select {
	case m, ok := <-q.ch:
		if !ok {
			return Message{}, false, ErrClosed
		}
		return m, true, nil
	case <-timer.C:
		return Message{}, false, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}

// Close shuts the queue; pending messages may still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
