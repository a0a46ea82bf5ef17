// Package workqueue carries job references from submitters to workers.
// The production backend is a Redis list; an in-process channel backend
// serves tests and the embedded single-binary mode.
package workqueue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is the payload pushed onto the queue for each submitted job.
type Message struct {
	JobID       string `json:"jobId"`
	WorkspaceID string `json:"workspaceId"`
}

// Validate checks the message carries both identifiers.
func (m Message) Validate() error {
	if m.JobID == "" {
		return fmt.Errorf("workqueue: message missing jobId")
	}
	if m.WorkspaceID == "" {
		return fmt.Errorf("workqueue: message missing workspaceId")
	}
	return nil
}

func encodeMessage(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode queue message: %w", err)
	}
	return payload, nil
}

func decodeMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("decode queue message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Queue is a FIFO job queue.
type Queue interface {
	// Enqueue pushes a message onto the queue.
	Enqueue(ctx context.Context, m Message) error
	// Dequeue pops the next message, blocking up to the backend's pop
	// timeout. ok is false when the timeout elapsed with nothing queued.
	Dequeue(ctx context.Context) (m Message, ok bool, err error)
	// Close releases backend resources.
	Close() error
}
