// Package openai is the remote transcription provider. Long media routes
// here; the client keeps uploads under the API's size ceiling by re-encoding
// and, when that is not enough, slicing the audio into fixed-length chunks
// whose transcripts are merged back into one timeline.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelscribe/internal/jobs"
	"reelscribe/internal/media/audio"
	"reelscribe/internal/services"
	"reelscribe/internal/transcribe"
)

const userAgent = "reelscribe/0.1.0"

// RetryPolicy controls per-request retries against the API.
type RetryPolicy struct {
	// Attempts is the total number of tries per request.
	Attempts int
	// Base is the delay before the first retry.
	Base time.Duration
	// Mult grows the delay between consecutive retries. Must be > 1 so
	// delays strictly increase.
	Mult float64
}

// Config carries the client settings.
type Config struct {
	URL                string
	APIKey             string
	Model              string
	Timeout            time.Duration
	Retry              RetryPolicy
	UploadCeilingBytes int64
	ChunkSeconds       float64
}

// Client uploads audio to an OpenAI-compatible transcription endpoint.
type Client struct {
	cfg       Config
	client    *http.Client
	processor *audio.Processor
	prober    transcribe.DurationProber
	sleep     func(ctx context.Context, d time.Duration) error
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

// WithSleeper overrides the retry delay function. Used by tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient creates the remote provider. The processor handles the ffmpeg
// work for re-encoding and chunking; the prober re-measures audio when the
// caller could not determine a duration.
func NewClient(cfg Config, processor *audio.Processor, prober transcribe.DurationProber, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 1
	}
	if cfg.Retry.Mult <= 1 {
		cfg.Retry.Mult = 2
	}
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = 120
	}
	c := &Client{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		processor: processor,
		prober:    prober,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in logs and stored transcripts.
func (c *Client) Name() string {
	return "openai"
}

// Transcribe sends the audio to the API. Files over the upload ceiling are
// re-encoded first; if the compact encoding still exceeds the ceiling the
// audio is transcribed chunk by chunk and the results merged. Intermediate
// files are removed before returning, on every path.
func (c *Client) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	size, err := fileSize(req.AudioPath)
	if err != nil {
		return transcribe.Result{}, services.Wrap(services.ErrValidation, "openai", "transcribe", "stat audio file", err)
	}

	uploadPath := req.AudioPath
	if size > c.cfg.UploadCeilingBytes {
		encoded, encErr := c.processor.EncodeForUpload(ctx, req.AudioPath)
		if encErr != nil {
			return transcribe.Result{}, encErr
		}
		defer os.Remove(encoded)
		uploadPath = encoded
		if size, err = fileSize(encoded); err != nil {
			return transcribe.Result{}, services.Wrap(services.ErrValidation, "openai", "transcribe", "stat encoded audio", err)
		}
	}

	if size <= c.cfg.UploadCeilingBytes {
		resp, callErr := c.call(ctx, uploadPath, req)
		if callErr != nil {
			return transcribe.Result{}, callErr
		}
		if strings.TrimSpace(resp.text()) == "" {
			return transcribe.Result{}, services.Wrap(services.ErrExternalTool, "openai", "transcribe", "response missing transcript text", nil)
		}
		return transcribe.Result{
			Text:            strings.TrimSpace(resp.text()),
			Segments:        resp.Segments,
			DurationSeconds: req.DurationSeconds,
		}, nil
	}
	return c.transcribeChunked(ctx, uploadPath, req)
}

// transcribeChunked slices the audio into fixed-length chunks, transcribes
// each, shifts segment timestamps by the chunk start, and joins the texts in
// chunk order. A failed chunk fails the whole transcription.
func (c *Client) transcribeChunked(ctx context.Context, audioPath string, req transcribe.Request) (transcribe.Result, error) {
	duration := req.DurationSeconds
	if duration <= 0 && c.prober != nil {
		if probed, ok := c.prober.DurationSeconds(ctx, audioPath); ok {
			duration = probed
		}
	}
	if duration <= 0 {
		return transcribe.Result{}, services.Wrap(services.ErrValidation, "openai", "transcribe_chunked", "audio duration unknown, cannot chunk", nil)
	}

	chunkCount := int(math.Ceil(duration / c.cfg.ChunkSeconds))
	texts := make([]string, 0, chunkCount)
	var segments []jobs.Segment

	for i := 0; i < chunkCount; i++ {
		start := float64(i) * c.cfg.ChunkSeconds
		chunkPath, err := c.processor.ExtractChunk(ctx, audioPath, i, start, c.cfg.ChunkSeconds)
		if err != nil {
			return transcribe.Result{}, err
		}
		resp, callErr := c.call(ctx, chunkPath, req)
		os.Remove(chunkPath)
		if callErr != nil {
			return transcribe.Result{}, fmt.Errorf("chunk %d: %w", i, callErr)
		}
		if text := strings.TrimSpace(resp.text()); text != "" {
			texts = append(texts, text)
		}
		for _, seg := range resp.Segments {
			segments = append(segments, jobs.Segment{
				Start: seg.Start + start,
				End:   seg.End + start,
				Text:  seg.Text,
			})
		}
	}

	return transcribe.Result{
		Text:            strings.Join(texts, " "),
		Segments:        segments,
		DurationSeconds: duration,
	}, nil
}

type apiResponse struct {
	// Text is a pointer so a response that omits it entirely can be told
	// apart from a legitimately silent chunk.
	Text     *string        `json:"text"`
	Segments []jobs.Segment `json:"segments"`
}

func (r apiResponse) text() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

// call performs one transcription request with retries. Network errors and
// retryable statuses back off exponentially; any other API error is final.
func (c *Client) call(ctx context.Context, path string, req transcribe.Request) (apiResponse, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.Retry.Attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.cfg.Retry.Base) * math.Pow(c.cfg.Retry.Mult, float64(attempt-1)))
			if err := c.sleep(ctx, delay); err != nil {
				return apiResponse{}, services.Wrap(services.ErrTimeout, "openai", "call", "retry wait interrupted", err)
			}
		}

		resp, retryable, err := c.doRequest(ctx, path, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return apiResponse{}, err
		}
	}
	return apiResponse{}, services.Wrap(services.ErrTransient, "openai", "call",
		fmt.Sprintf("giving up after %d attempts", c.cfg.Retry.Attempts), lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) doRequest(ctx context.Context, path string, req transcribe.Request) (apiResponse, bool, error) {
	body, contentType, err := c.buildUpload(path, req)
	if err != nil {
		return apiResponse{}, false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return apiResponse{}, false, services.Wrap(services.ErrConfiguration, "openai", "call", "build request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", userAgent)
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return apiResponse{}, true, services.Wrap(services.ErrTransient, "openai", "call", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		wrapped := services.Wrap(services.ErrExternalTool, "openai", "call",
			fmt.Sprintf("api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
		return apiResponse{}, retryableStatus(resp.StatusCode), wrapped
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return apiResponse{}, false, services.Wrap(services.ErrExternalTool, "openai", "call", "decode response", err)
	}
	if parsed.Text == nil {
		return apiResponse{}, false, services.Wrap(services.ErrExternalTool, "openai", "call", "response missing transcript text", nil)
	}
	return parsed, false, nil
}

func (c *Client) buildUpload(path string, req transcribe.Request) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, "openai", "call", "open audio file", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "openai", "call", "build upload", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "openai", "call", "read audio file", err)
	}
	_ = writer.WriteField("model", c.cfg.Model)
	_ = writer.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	if req.Prompt != "" {
		_ = writer.WriteField("prompt", req.Prompt)
	}
	if err := writer.Close(); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "openai", "call", "finalize upload", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
