// Package orchestrator sequences transcription work end-to-end: fetch,
// normalize+transcribe, persist, callback. Batch jobs run as tracked
// background tasks with per-item failure isolation.
package orchestrator

import (
	"context"

	"github.com/tinkervoid/transcriber/internal/engine"
	"github.com/tinkervoid/transcriber/internal/status"
)

// Request is one transcription request, immutable once accepted.
type Request struct {
	FileURL     string `json:"file_url" binding:"required"`
	RecordingID string `json:"recording_id" binding:"required"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// ResultPayload is the full transcription result for one recording. It is
// both the synchronous response body and the callback POST body.
type ResultPayload struct {
	RecordingID string           `json:"recording_id"`
	Text        string           `json:"text"`
	Segments    []engine.Segment `json:"segments"`
	Duration    float64          `json:"duration"`
}

// BlobFetcher resolves file references and materializes objects locally.
type BlobFetcher interface {
	ResolveKey(fileURL string) string
	DownloadToFile(ctx context.Context, key string) (string, error)
}

// Transcriber is the guarded inference entry point.
type Transcriber interface {
	Ready() bool
	Transcribe(ctx context.Context, localPath string) (*engine.Result, error)
}

// StatusStore persists job-progress and per-recording result records.
type StatusStore interface {
	SetJobStatus(ctx context.Context, jobID string, st status.JobStatus) error
	SetTranscriptionResult(ctx context.Context, recordingID string, st status.TranscriptionStatus) error
}

// Notifier delivers completed results to callback URLs.
type Notifier interface {
	Notify(ctx context.Context, url string, payload interface{}) error
}
