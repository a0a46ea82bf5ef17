package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further processing will happen for a status.
// A failed job is terminal only once its retry budget is exhausted, which the
// record alone cannot tell; Completed is the only always-terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Ref identifies a job document inside a workspace.
type Ref struct {
	WorkspaceID string
	JobID       string
}

// Job is the persisted job record. JobID, WorkspaceID, ReelID, ReelURL, and
// Source are immutable after creation; the lease manager and orchestrator own
// the remaining fields.
type Job struct {
	JobID       string     `json:"jobId"`
	WorkspaceID string     `json:"workspaceId"`
	ReelID      string     `json:"reelId"`
	ReelURL     string     `json:"reelUrl"`
	Source      string     `json:"source"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	LeaseUntil  *time.Time `json:"leaseUntil,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Segment is one time-aligned span of transcript text, ordered by Start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Reel is the persisted source-video record. Multiple jobs may reference the
// same reel; once it carries a transcript, later jobs complete without work.
type Reel struct {
	ReelID             string         `json:"reelId"`
	WorkspaceID        string         `json:"workspaceId"`
	Source             string         `json:"source"`
	ReelURL            string         `json:"reelUrl"`
	Status             string         `json:"status"`
	TranscriptText     string         `json:"transcriptText,omitempty"`
	TranscriptSegments []Segment      `json:"transcriptSegments,omitempty"`
	DurationSeconds    float64        `json:"durationSeconds,omitempty"`
	PostedAt           string         `json:"postedAt,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}
