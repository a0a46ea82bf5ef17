package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelscribe/internal/config"
	"reelscribe/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobCompleted(context.Background(), "job-1", "whisperd", 42); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsJobEvents(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "job completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyJobCompleted(context.Background(), "job-1", "openai", 95)
			},
			expectTitle:   "Reelscribe - Transcribed",
			expectMessage: "Transcription complete: job-1 (openai)\nDuration: 1m35s",
			expectTags:    "reelscribe,transcribe,completed",
		},
		{
			name: "job completed without duration",
			notify: func(svc notifications.Service) error {
				return svc.NotifyJobCompleted(context.Background(), "job-2", "", 0)
			},
			expectTitle:   "Reelscribe - Transcribed",
			expectMessage: "Transcription complete: job-2 (unknown)",
			expectTags:    "reelscribe,transcribe,completed",
		},
		{
			name: "job failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyJobFailed(context.Background(), "job-3", 2, errors.New("download failed"))
			},
			expectTitle:    "Reelscribe - Job Failed",
			expectMessage:  "Job failed: job-3 (attempt 2)\ndownload failed",
			expectTags:     "reelscribe,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Reelscribe - Test",
			expectMessage:  "Notification system test",
			expectTags:     "reelscribe,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				got.title = r.Header.Get("Title")
				got.tags = r.Header.Get("Tags")
				got.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				got.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.TimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
