// Package api exposes the HTTP surface: submitting transcription jobs,
// polling their status, and a health probe.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reelscribe/internal/auth"
	"reelscribe/internal/docstore"
	"reelscribe/internal/logging"
	"reelscribe/internal/services"
	"reelscribe/internal/submit"
)

// Server hosts the HTTP API.
type Server struct {
	submitter *submit.Service
	verifier  *auth.Verifier
	logger    *slog.Logger
	engine    *gin.Engine
	http      *http.Server
}

// NewServer builds the router. verifier may be nil, which disables
// authentication (local development).
func NewServer(submitter *submit.Service, verifier *auth.Verifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), correlate)

	s := &Server{
		submitter: submitter,
		verifier:  verifier,
		logger:    logger.With(logging.String(logging.FieldComponent, "api")),
		engine:    engine,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/v1", s.requireAuth)
	v1.POST("/transcribe", s.handleSubmit)
	v1.GET("/jobs/:id", s.handleJob)
}

// Handler returns the underlying handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()
	s.logger.Info("api listening", logging.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// correlate tags each request with a correlation id, honoring one supplied by
// the caller, and echoes it back in the response.
func correlate(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
	if id == "" {
		id = uuid.NewString()
	}
	c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
	c.Header("X-Request-ID", id)
	c.Next()
}

func (s *Server) requireAuth(c *gin.Context) {
	if s.verifier == nil {
		c.Next()
		return
	}
	token, ok := auth.FromAuthorizationHeader(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Set("subject", claims.Subject)
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type submitRequest struct {
	WorkspaceID string `json:"workspaceId"`
	URL         string `json:"url"`
	ReelID      string `json:"reelId"`
	Source      string `json:"source"`
}

type submitResponse struct {
	JobID              string `json:"jobId,omitempty"`
	ReelID             string `json:"reelId"`
	AlreadyTranscribed bool   `json:"alreadyTranscribed"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	resp, err := s.submitter.Submit(c.Request.Context(), submit.Request{
		WorkspaceID: req.WorkspaceID,
		URL:         req.URL,
		ReelID:      req.ReelID,
		Source:      req.Source,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.WithContext(c.Request.Context(), s.logger).Error("submit failed", logging.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
		return
	}
	status := http.StatusAccepted
	if resp.AlreadyTranscribed {
		status = http.StatusOK
	}
	c.JSON(status, submitResponse{
		JobID:              resp.JobID,
		ReelID:             resp.ReelID,
		AlreadyTranscribed: resp.AlreadyTranscribed,
	})
}

func (s *Server) handleJob(c *gin.Context) {
	workspaceID := strings.TrimSpace(c.Query("workspaceId"))
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspaceId query parameter is required"})
		return
	}
	job, err := s.submitter.Job(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		logging.WithContext(c.Request.Context(), s.logger).Error("job lookup failed", logging.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, job)
}
