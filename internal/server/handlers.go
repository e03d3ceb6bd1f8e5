package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/orchestrator"
	"github.com/tinkervoid/transcriber/internal/status"
)

// StatusReader is the read side of the status store used by polling
// endpoints.
type StatusReader interface {
	GetJobStatus(ctx context.Context, jobID string) (*status.JobStatus, error)
	GetTranscriptionResult(ctx context.Context, recordingID string) (*status.TranscriptionStatus, error)
}

// Readiness reports whether the inference engine is loaded.
type Readiness interface {
	Ready() bool
}

// Handlers holds the route implementations and their dependencies.
type Handlers struct {
	runner  *orchestrator.Runner
	tracker *orchestrator.Tracker
	guard   Readiness
	store   StatusReader
	log     *logger.Logger
}

// NewHandlers wires the API routes to the pipeline.
func NewHandlers(runner *orchestrator.Runner, tracker *orchestrator.Tracker, guard Readiness, store StatusReader, log *logger.Logger) *Handlers {
	return &Handlers{
		runner:  runner,
		tracker: tracker,
		guard:   guard,
		store:   store,
		log:     log.WithComponent("handlers"),
	}
}

// Register attaches all routes to the engine.
func (h *Handlers) Register(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.POST("/transcribe", h.Transcribe)
	engine.POST("/transcribe/batch", h.TranscribeBatch)
	engine.GET("/job/:job_id", h.JobStatus)
	engine.GET("/result/:recording_id", h.TranscriptionResult)
}

// Health reports liveness plus model readiness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.guard.Ready(),
	})
}

// Transcribe handles a single synchronous transcription request. The
// readiness check runs before any network call so an unloaded model answers
// instantly.
func (h *Handlers) Transcribe(c *gin.Context) {
	var req orchestrator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validation(err.Error()))
		return
	}

	if !h.guard.Ready() {
		writeError(c, apperrors.NotReady())
		return
	}

	payload, err := h.runner.TranscribeFile(c.Request.Context(), req.FileURL)
	if err != nil {
		writeError(c, err)
		return
	}
	payload.RecordingID = req.RecordingID

	c.JSON(http.StatusOK, payload)
}

// TranscribeBatch accepts an array of requests, persists the job record, and
// answers immediately while a tracked goroutine works through the batch.
func (h *Handlers) TranscribeBatch(c *gin.Context) {
	var requests []orchestrator.Request
	if err := c.ShouldBindJSON(&requests); err != nil {
		writeError(c, apperrors.Validation(err.Error()))
		return
	}
	if len(requests) == 0 {
		writeError(c, apperrors.Validation("batch must contain at least one request"))
		return
	}

	jobID, err := h.runner.StartBatch(c.Request.Context(), h.tracker, requests)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": string(status.JobQueued),
		"count":  len(requests),
	})
}

// JobStatus returns batch progress for pollers.
func (h *Handlers) JobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	st, err := h.store.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// TranscriptionResult returns the terminal record for one recording.
func (h *Handlers) TranscriptionResult(c *gin.Context) {
	recordingID := c.Param("recording_id")

	st, err := h.store.GetTranscriptionResult(c.Request.Context(), recordingID)
	if err != nil {
		writeError(c, err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// writeError maps an error onto the flat {"error": message} contract using
// the application error's HTTP status, defaulting to 500.
func writeError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
