// Package whisperd is the client for a locally hosted whisper transcription
// service. It uploads the whole audio file in one request; the service is
// only used for short media, so there is no chunking here.
package whisperd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelscribe/internal/jobs"
	"reelscribe/internal/services"
	"reelscribe/internal/transcribe"
)

const userAgent = "reelscribe/0.1.0"

// Client talks to a whisperd-compatible HTTP endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient creates a local provider client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in logs and stored transcripts.
func (c *Client) Name() string {
	return "whisperd"
}

type response struct {
	Text           string         `json:"text"`
	Transcript     string         `json:"transcript"`
	TranscriptText string         `json:"transcriptText"`
	Segments       []jobs.Segment `json:"segments"`
}

func (r response) transcriptText() string {
	for _, candidate := range []string{r.Text, r.Transcript, r.TranscriptText} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// Transcribe uploads the audio file and returns the parsed transcript. A
// response without transcript text is an error: an empty transcript would
// otherwise mark the reel completed with nothing in it.
func (c *Client) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	body, contentType, err := buildUpload(req)
	if err != nil {
		return transcribe.Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return transcribe.Result{}, services.Wrap(services.ErrConfiguration, "whisperd", "transcribe", "build request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return transcribe.Result{}, services.Wrap(services.ErrTransient, "whisperd", "transcribe", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return transcribe.Result{}, services.Wrap(services.ErrExternalTool, "whisperd", "transcribe",
			fmt.Sprintf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return transcribe.Result{}, services.Wrap(services.ErrExternalTool, "whisperd", "transcribe", "decode response", err)
	}
	text := parsed.transcriptText()
	if text == "" {
		return transcribe.Result{}, services.Wrap(services.ErrExternalTool, "whisperd", "transcribe", "response missing transcript text", nil)
	}
	return transcribe.Result{
		Text:            text,
		Segments:        parsed.Segments,
		DurationSeconds: req.DurationSeconds,
	}, nil
}

func buildUpload(req transcribe.Request) (io.Reader, string, error) {
	file, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, "whisperd", "transcribe", "open audio file", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "whisperd", "transcribe", "build upload", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "whisperd", "transcribe", "read audio file", err)
	}
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	if req.Prompt != "" {
		_ = writer.WriteField("prompt", req.Prompt)
	}
	if err := writer.Close(); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "whisperd", "transcribe", "finalize upload", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
