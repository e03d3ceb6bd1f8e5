package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tinkervoid/transcriber/internal/engine"
	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/status"
)

type fakeBlobs struct {
	failKeys map[string]error
	onFetch  func(key string)
}

func (f *fakeBlobs) ResolveKey(fileURL string) string { return fileURL }

func (f *fakeBlobs) DownloadToFile(_ context.Context, key string) (string, error) {
	if f.onFetch != nil {
		f.onFetch(key)
	}
	if err, ok := f.failKeys[key]; ok {
		return "", err
	}
	path := filepath.Join(os.TempDir(), "fetched-"+filepath.Base(key))
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeGuard struct {
	resultFor map[string]*engine.Result
	err       error
}

func (f *fakeGuard) Ready() bool { return true }

func (f *fakeGuard) Transcribe(_ context.Context, localPath string) (*engine.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.resultFor[filepath.Base(localPath)]; ok {
		return r, nil
	}
	return &engine.Result{Text: "default", Duration: 1.0}, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []ResultPayload
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, _ string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, *payload.(*ResultPayload))
	return f.err
}

func (f *fakeNotifier) recorded() []ResultPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ResultPayload(nil), f.calls...)
}

func newTestStore(t *testing.T) *status.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return status.NewStoreWithClient(rdb, logger.NewDefault("runner-test"), time.Hour, time.Hour)
}

func newTestRunner(blobs BlobFetcher, guard Transcriber, store StatusStore, notifier Notifier) *Runner {
	return NewRunner(blobs, guard, store, notifier, logger.NewDefault("runner-test"))
}

// waitForJobState polls until the job record reaches the wanted state.
// Draining the tracker cancels the batch context, so a background batch must
// be observed complete through the store before Drain is called.
func waitForJobState(t *testing.T, store *status.Store, jobID string, want status.JobState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := store.GetJobStatus(context.Background(), jobID)
		if err == nil && st != nil && st.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %s in time", jobID, want)
}

func TestRunAllItemsSucceed(t *testing.T) {
	store := newTestStore(t)
	notifier := &fakeNotifier{}
	runner := newTestRunner(&fakeBlobs{}, &fakeGuard{
		resultFor: map[string]*engine.Result{
			"fetched-a.mp3": {Text: "alpha", Duration: 2.5},
			"fetched-b.mp3": {Text: "beta", Duration: 3.5},
		},
	}, store, notifier)

	runner.Run(context.Background(), "job-1", []Request{
		{FileURL: "a.mp3", RecordingID: "rec-a"},
		{FileURL: "b.mp3", RecordingID: "rec-b"},
	})

	job, err := store.GetJobStatus(context.Background(), "job-1")
	if err != nil || job == nil {
		t.Fatalf("job record missing: %v", err)
	}
	if job.Status != status.JobCompleted {
		t.Fatalf("expected completed job, got %s", job.Status)
	}
	if *job.Current != 2 || *job.Total != 2 {
		t.Fatalf("expected 2/2 progress, got %d/%d", *job.Current, *job.Total)
	}

	res, err := store.GetTranscriptionResult(context.Background(), "rec-a")
	if err != nil || res == nil {
		t.Fatalf("result missing: %v", err)
	}
	if res.Status != status.ResultCompleted || *res.Text != "alpha" || *res.Duration != 2.5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(notifier.recorded()) != 0 {
		t.Fatal("no callback URLs were given, nothing should be notified")
	}
}

func TestRunItemFailureIsIsolated(t *testing.T) {
	store := newTestStore(t)
	runner := newTestRunner(&fakeBlobs{
		failKeys: map[string]error{"missing.mp3": apperrors.AudioNotFound("missing.mp3", nil)},
	}, &fakeGuard{}, store, &fakeNotifier{})

	runner.Run(context.Background(), "job-2", []Request{
		{FileURL: "ok.mp3", RecordingID: "rec-ok"},
		{FileURL: "missing.mp3", RecordingID: "rec-missing"},
		{FileURL: "ok2.mp3", RecordingID: "rec-ok2"},
	})

	job, _ := store.GetJobStatus(context.Background(), "job-2")
	if job.Status != status.JobCompleted {
		t.Fatalf("job must complete despite item failure, got %s", job.Status)
	}

	failed, _ := store.GetTranscriptionResult(context.Background(), "rec-missing")
	if failed == nil || failed.Status != status.ResultFailed {
		t.Fatalf("expected failed record, got %+v", failed)
	}
	if failed.Error == nil || *failed.Error != "Audio file not found: missing.mp3" {
		t.Fatalf("unexpected error message: %+v", failed.Error)
	}
	if failed.Text != nil {
		t.Fatal("failed record must not carry text")
	}

	for _, id := range []string{"rec-ok", "rec-ok2"} {
		res, _ := store.GetTranscriptionResult(context.Background(), id)
		if res == nil || res.Status != status.ResultCompleted {
			t.Fatalf("%s should have completed, got %+v", id, res)
		}
	}
}

func TestRunCallbackOnlyOnSuccess(t *testing.T) {
	store := newTestStore(t)
	notifier := &fakeNotifier{}
	runner := newTestRunner(&fakeBlobs{
		failKeys: map[string]error{"bad.mp3": apperrors.AudioNotFound("bad.mp3", nil)},
	}, &fakeGuard{
		resultFor: map[string]*engine.Result{
			"fetched-good.mp3": {Text: "hello", Duration: 1.5},
		},
	}, store, notifier)

	runner.Run(context.Background(), "job-3", []Request{
		{FileURL: "good.mp3", RecordingID: "rec-good", CallbackURL: "http://cb/hook"},
		{FileURL: "bad.mp3", RecordingID: "rec-bad", CallbackURL: "http://cb/hook"},
	})

	calls := notifier.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(calls))
	}
	if calls[0].RecordingID != "rec-good" || calls[0].Text != "hello" {
		t.Fatalf("unexpected callback payload: %+v", calls[0])
	}
}

func TestRunCallbackFailureDoesNotFailItem(t *testing.T) {
	store := newTestStore(t)
	notifier := &fakeNotifier{err: context.DeadlineExceeded}
	runner := newTestRunner(&fakeBlobs{}, &fakeGuard{}, store, notifier)

	runner.Run(context.Background(), "job-4", []Request{
		{FileURL: "a.mp3", RecordingID: "rec-a", CallbackURL: "http://cb/hook"},
	})

	res, _ := store.GetTranscriptionResult(context.Background(), "rec-a")
	if res == nil || res.Status != status.ResultCompleted {
		t.Fatalf("item must stay completed when callback fails, got %+v", res)
	}
	job, _ := store.GetJobStatus(context.Background(), "job-4")
	if job.Status != status.JobCompleted {
		t.Fatalf("job must complete, got %s", job.Status)
	}
}

func TestRunInterruptedOnCancel(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after the first item has been fetched so the loop sees a dead
	// context before item two.
	var fetches atomic.Int32
	blobs := &fakeBlobs{onFetch: func(string) {
		if fetches.Add(1) == 1 {
			cancel()
		}
	}}
	runner := newTestRunner(blobs, &fakeGuard{}, store, &fakeNotifier{})

	runner.Run(ctx, "job-5", []Request{
		{FileURL: "a.mp3", RecordingID: "rec-a"},
		{FileURL: "b.mp3", RecordingID: "rec-b"},
	})

	job, _ := store.GetJobStatus(context.Background(), "job-5")
	if job == nil || job.Status != status.JobInterrupted {
		t.Fatalf("expected interrupted job, got %+v", job)
	}
	if res, _ := store.GetTranscriptionResult(context.Background(), "rec-b"); res != nil {
		t.Fatalf("second item must not have run, got %+v", res)
	}
}

func TestRunStoreFailureIsSwallowed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := status.NewStoreWithClient(rdb, logger.NewDefault("runner-test"), time.Hour, time.Hour)
	mr.Close()
	rdb.Close()

	notifier := &fakeNotifier{}
	runner := newTestRunner(&fakeBlobs{}, &fakeGuard{}, store, notifier)

	runner.Run(context.Background(), "job-6", []Request{
		{FileURL: "a.mp3", RecordingID: "rec-a", CallbackURL: "http://cb/hook"},
	})

	// Bookkeeping was unreachable but the item still ran and its callback
	// still fired.
	if len(notifier.recorded()) != 1 {
		t.Fatalf("expected callback despite store failure, got %d", len(notifier.recorded()))
	}
}

func TestStartBatchWritesQueuedRecord(t *testing.T) {
	store := newTestStore(t)
	runner := newTestRunner(&fakeBlobs{}, &fakeGuard{}, store, &fakeNotifier{})
	tracker := NewTracker(logger.NewDefault("runner-test"))

	jobID, err := runner.StartBatch(context.Background(), tracker, []Request{
		{FileURL: "a.mp3", RecordingID: "rec-a"},
		{FileURL: "b.mp3", RecordingID: "rec-b"},
		{FileURL: "c.mp3", RecordingID: "rec-c"},
	})
	if err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a job id")
	}

	waitForJobState(t, store, jobID, status.JobCompleted)
	if !tracker.Drain(time.Second) {
		t.Fatal("tracker must drain cleanly once the batch is done")
	}

	job, _ := store.GetJobStatus(context.Background(), jobID)
	if *job.Current != 3 || *job.Total != 3 {
		t.Fatalf("expected 3/3 progress, got %d/%d", *job.Current, *job.Total)
	}
}

func TestStartBatchFailsWhenStoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := status.NewStoreWithClient(rdb, logger.NewDefault("runner-test"), time.Hour, time.Hour)
	mr.Close()
	rdb.Close()

	runner := newTestRunner(&fakeBlobs{}, &fakeGuard{}, store, &fakeNotifier{})
	tracker := NewTracker(logger.NewDefault("runner-test"))

	if _, err := runner.StartBatch(context.Background(), tracker, []Request{
		{FileURL: "a.mp3", RecordingID: "rec-a"},
	}); err == nil {
		t.Fatal("expected error when the queued write cannot be persisted")
	}
}

func TestTranscribeFileRemovesLocalCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fetched.wav")
	blobs := &downloadToPath{path: path}
	runner := newTestRunner(blobs, &fakeGuard{}, newTestStore(t), &fakeNotifier{})

	if _, err := runner.TranscribeFile(context.Background(), "x.wav"); err != nil {
		t.Fatalf("TranscribeFile failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("downloaded file must be removed after transcription")
	}
}

func TestTranscribeFilePayloadEncoding(t *testing.T) {
	runner := newTestRunner(&fakeBlobs{}, &fakeGuard{
		resultFor: map[string]*engine.Result{
			"fetched-a.wav": {
				Text:     "one two",
				Segments: []engine.Segment{{Start: 0, End: 0.7, Text: "one"}, {Start: 0.7, End: 1.4, Text: "two"}},
				Duration: 1.4,
			},
		},
	}, newTestStore(t), &fakeNotifier{})

	payload, err := runner.TranscribeFile(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("TranscribeFile failed: %v", err)
	}
	payload.RecordingID = "rec-a"

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"recording_id", "text", "segments", "duration"} {
		if _, ok := decoded[field]; !ok {
			t.Fatalf("payload missing %q: %s", field, raw)
		}
	}
	if decoded["duration"].(float64) != 1.4 {
		t.Fatalf("duration mismatch: %v", decoded["duration"])
	}
}

// downloadToPath always materializes the object at a fixed path.
type downloadToPath struct {
	path string
}

func (d *downloadToPath) ResolveKey(fileURL string) string { return fileURL }

func (d *downloadToPath) DownloadToFile(context.Context, string) (string, error) {
	if err := os.WriteFile(d.path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return d.path, nil
}
