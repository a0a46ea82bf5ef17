package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelscribe/internal/config"
)

const userAgent = "reelscribe/0.1.0"

// Service defines the notification surface exposed to the worker pipeline.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID, provider string, duration float64) error
	NotifyJobFailed(ctx context.Context, jobID string, attempts int, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID, provider string, duration float64) error {
	jobID = strings.TrimSpace(jobID)
	provider = strings.TrimSpace(provider)
	if provider == "" {
		provider = "unknown"
	}
	message := fmt.Sprintf("Transcription complete: %s (%s)", jobID, provider)
	if duration > 0 {
		message = fmt.Sprintf("%s\nDuration: %s", message, formatDuration(duration))
	}
	data := payload{
		title:   "Reelscribe - Transcribed",
		message: message,
		tags:    []string{"reelscribe", "transcribe", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID string, attempts int, cause error) error {
	jobID = strings.TrimSpace(jobID)
	var builder strings.Builder
	fmt.Fprintf(&builder, "Job failed: %s (attempt %d)", jobID, attempts)
	builder.WriteString("\n")
	if cause != nil {
		builder.WriteString(strings.TrimSpace(cause.Error()))
	} else {
		builder.WriteString("unknown error")
	}

	data := payload{
		title:    "Reelscribe - Job Failed",
		message:  builder.String(),
		tags:     []string{"reelscribe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reelscribe - Test",
		message:  "Notification system test",
		tags:     []string{"reelscribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string, float64) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, int, error) error         { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
