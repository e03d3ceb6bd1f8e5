package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/status"
)

// Runner executes transcription requests against the shared pipeline.
type Runner struct {
	blobs    BlobFetcher
	guard    Transcriber
	store    StatusStore
	notifier Notifier
	log      *logger.Logger
}

// NewRunner wires the pipeline dependencies together.
func NewRunner(blobs BlobFetcher, guard Transcriber, store StatusStore, notifier Notifier, log *logger.Logger) *Runner {
	return &Runner{
		blobs:    blobs,
		guard:    guard,
		store:    store,
		notifier: notifier,
		log:      log.WithComponent("orchestrator"),
	}
}

// TranscribeFile downloads the referenced object, transcribes it, and cleans
// up the local copy. This is the shared path for synchronous requests, batch
// items, and queue-delivered messages.
func (r *Runner) TranscribeFile(ctx context.Context, fileURL string) (*ResultPayload, error) {
	key := r.blobs.ResolveKey(fileURL)

	localPath, err := r.blobs.DownloadToFile(ctx, key)
	if err != nil {
		return nil, err
	}
	defer os.Remove(localPath)

	result, err := r.guard.Transcribe(ctx, localPath)
	if err != nil {
		return nil, err
	}

	return &ResultPayload{
		Text:     result.Text,
		Segments: result.Segments,
		Duration: result.Duration,
	}, nil
}

// StartBatch creates the job record and hands the batch to the tracker as a
// background task. The queued write is the one store error that propagates to
// the caller: a job the caller cannot poll for was never accepted.
func (r *Runner) StartBatch(ctx context.Context, tracker *Tracker, requests []Request) (string, error) {
	jobID := uuid.New().String()
	total := len(requests)

	err := r.store.SetJobStatus(ctx, jobID, status.JobStatus{
		Status:  status.JobQueued,
		Current: status.IntPtr(0),
		Total:   status.IntPtr(total),
	})
	if err != nil {
		return "", err
	}

	r.log.Info("Batch job queued", map[string]interface{}{
		logger.FieldJobID: jobID,
		"count":           total,
	})

	tracker.Go("batch "+jobID, func(bg context.Context) {
		r.Run(bg, jobID, requests)
	})
	return jobID, nil
}

// Run processes a batch strictly in order. A failed item is recorded and the
// batch moves on; progress and result writes are logged and swallowed so a
// flaky store never aborts transcription. When ctx is cancelled between items
// the job is marked interrupted instead of completed.
func (r *Runner) Run(ctx context.Context, jobID string, requests []Request) {
	total := len(requests)
	log := r.log.WithFields(map[string]interface{}{logger.FieldJobID: jobID})

	for i, req := range requests {
		select {
		case <-ctx.Done():
			// The cancelled context cannot carry the write; detach it so
			// pollers see interrupted instead of a stale processing state.
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			r.writeJobStatus(wctx, jobID, status.JobStatus{
				Status:  status.JobInterrupted,
				Current: status.IntPtr(i),
				Total:   status.IntPtr(total),
			})
			cancel()
			log.Warn("Batch interrupted by shutdown", map[string]interface{}{
				"current": i,
				"total":   total,
			})
			return
		default:
		}

		r.writeJobStatus(ctx, jobID, status.JobStatus{
			Status:  status.JobProcessing,
			Current: status.IntPtr(i + 1),
			Total:   status.IntPtr(total),
		})

		// Per-item failures are already recorded; the batch moves on.
		_, _ = r.Transcribe(ctx, req)
	}

	r.writeJobStatus(ctx, jobID, status.JobStatus{
		Status:  status.JobCompleted,
		Current: status.IntPtr(total),
		Total:   status.IntPtr(total),
	})
	log.Info("Batch job completed", map[string]interface{}{"total": total})
}

// Transcribe runs one request through the pipeline and records its terminal
// state. On success the callback, if any, fires exactly once, best-effort.
// This is the shared entry point for batch items and queue messages; the
// synchronous handler uses TranscribeFile directly and skips the bookkeeping.
func (r *Runner) Transcribe(ctx context.Context, req Request) (*ResultPayload, error) {
	itemLog := r.log.WithFields(map[string]interface{}{
		logger.FieldRecordingID: req.RecordingID,
	})

	payload, err := r.TranscribeFile(ctx, req.FileURL)
	if err != nil {
		itemLog.Error("Transcription failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"file_url":        req.FileURL,
		})
		r.writeResult(ctx, req.RecordingID, status.TranscriptionStatus{
			Status: status.ResultFailed,
			Error:  status.StringPtr(errorMessage(err)),
		})
		return nil, err
	}
	payload.RecordingID = req.RecordingID

	r.writeResult(ctx, req.RecordingID, status.TranscriptionStatus{
		Status:   status.ResultCompleted,
		Text:     status.StringPtr(payload.Text),
		Duration: status.Float64Ptr(payload.Duration),
	})

	if req.CallbackURL != "" {
		if err := r.notifier.Notify(ctx, req.CallbackURL, payload); err != nil {
			itemLog.Warn("Callback delivery failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				"callback_url":    req.CallbackURL,
			})
		}
	}

	itemLog.Info("Recording transcribed", map[string]interface{}{
		"duration": payload.Duration,
	})
	return payload, nil
}

func (r *Runner) writeJobStatus(ctx context.Context, jobID string, st status.JobStatus) {
	if err := r.store.SetJobStatus(ctx, jobID, st); err != nil {
		r.log.Error("Job status write failed", logger.ErrorFields("set job status", err),
			map[string]interface{}{logger.FieldJobID: jobID})
	}
}

func (r *Runner) writeResult(ctx context.Context, recordingID string, st status.TranscriptionStatus) {
	if err := r.store.SetTranscriptionResult(ctx, recordingID, st); err != nil {
		r.log.Error("Result write failed", logger.ErrorFields("set transcription result", err),
			map[string]interface{}{logger.FieldRecordingID: recordingID})
	}
}

// errorMessage prefers the stable application message over wrapped detail so
// stored errors stay readable for pollers.
func errorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
