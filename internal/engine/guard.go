package engine

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tinkervoid/transcriber/internal/audio"
	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
)

// Guard owns the one loaded Engine for the process lifetime. The engine is
// not safe for concurrent use, so all inference across the process is
// serialized through a single mutex. Readiness lives on a separate atomic so
// health checks never queue behind an in-flight transcription.
//
// The mutex is a plain sync.Mutex on purpose: the critical section is
// blocking cgo work, and waiters park on the scheduler rather than busy-wait.
type Guard struct {
	engine     Engine
	normalizer *audio.Normalizer
	log        *logger.Logger

	ready atomic.Bool
	mu    sync.Mutex
}

// NewGuard creates a Guard around the given engine and normalizer.
func NewGuard(eng Engine, normalizer *audio.Normalizer, log *logger.Logger) *Guard {
	return &Guard{
		engine:     eng,
		normalizer: normalizer,
		log:        log.WithComponent("engine"),
	}
}

// Load loads the engine from a model path. On success readiness flips to
// true; on failure it stays false and the error is fatal at startup.
func (g *Guard) Load(ctx context.Context, modelPath string) error {
	g.log.Info("Loading model", map[string]interface{}{"path": modelPath})

	if err := g.engine.Load(ctx, modelPath); err != nil {
		return apperrors.Engine(err)
	}

	g.ready.Store(true)
	g.log.Info("Model loaded")
	return nil
}

// Ready reports whether Load completed successfully. Non-blocking.
func (g *Guard) Ready() bool {
	return g.ready.Load()
}

// Close releases the engine.
func (g *Guard) Close() error {
	g.ready.Store(false)
	return g.engine.Close()
}

// Transcribe normalizes the audio at localPath and runs inference on it.
//
// Normalization runs before the inference lock is taken, so the contended
// window covers only the engine call itself. The normalized temp file (when
// one is produced) is deleted before returning, success or failure.
func (g *Guard) Transcribe(ctx context.Context, localPath string) (*Result, error) {
	if !g.ready.Load() {
		return nil, apperrors.NotReady()
	}

	wavPath, converted, err := g.normalizer.Normalize(ctx, localPath)
	if err != nil {
		return nil, err
	}
	if converted {
		defer os.Remove(wavPath)
	}

	g.mu.Lock()
	raw, err := g.engine.Transcribe(ctx, wavPath)
	g.mu.Unlock()

	if err != nil {
		return nil, apperrors.Engine(err)
	}

	segments := make([]Segment, len(raw.Tokens))
	for i, tok := range raw.Tokens {
		segments[i] = Segment{Start: tok.Start, End: tok.End, Text: tok.Text}
	}

	return &Result{
		Text:     raw.Text,
		Segments: segments,
		Duration: deriveDuration(segments, wavPath),
	}, nil
}

// deriveDuration is the end of the last segment when any exists, else the
// normalized file's sample-derived duration, else 0.0.
func deriveDuration(segments []Segment, wavPath string) float64 {
	if len(segments) > 0 {
		return segments[len(segments)-1].End
	}
	d, err := audio.WAVDuration(wavPath)
	if err != nil {
		return 0.0
	}
	return d
}
