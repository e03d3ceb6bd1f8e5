// Package whisper implements the inference engine contract on the
// whisper.cpp Go bindings, loading a ggml model from disk and decoding
// canonical WAV audio in-process.
package whisper

import (
	"context"
	"fmt"
	"os"
	"strings"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"

	"github.com/tinkervoid/transcriber/internal/engine"
	"github.com/tinkervoid/transcriber/internal/logger"
)

// Engine runs whisper.cpp inference. Not safe for concurrent use; callers go
// through engine.Guard.
type Engine struct {
	model whispercpp.Model
	wctx  whispercpp.Context
	log   *logger.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New creates an unloaded whisper engine.
func New(log *logger.Logger) *Engine {
	return &Engine{log: log.WithComponent("whisper")}
}

// Load reads a ggml model file and prepares an inference context.
func (e *Engine) Load(_ context.Context, modelPath string) error {
	model, err := whispercpp.New(modelPath)
	if err != nil {
		return fmt.Errorf("load whisper model %s: %w", modelPath, err)
	}

	wctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return fmt.Errorf("create whisper context: %w", err)
	}
	wctx.SetLanguage("auto")
	wctx.SetTranslate(false)

	e.model = model
	e.wctx = wctx
	return nil
}

// Transcribe decodes the WAV at wavPath and returns raw time-aligned tokens.
func (e *Engine) Transcribe(_ context.Context, wavPath string) (*engine.RawResult, error) {
	if e.wctx == nil {
		return nil, fmt.Errorf("whisper model not loaded")
	}

	samples, err := decodePCM(wavPath)
	if err != nil {
		return nil, err
	}

	var (
		tokens []engine.Token
		text   strings.Builder
	)
	onSegment := func(seg whispercpp.Segment) {
		tokens = append(tokens, engine.Token{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  strings.TrimSpace(seg.Text),
		})
		text.WriteString(seg.Text)
	}

	if err := e.wctx.Process(samples, nil, onSegment, nil); err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}

	return &engine.RawResult{
		Text:   strings.TrimSpace(text.String()),
		Tokens: tokens,
	}, nil
}

// Close releases the model.
func (e *Engine) Close() error {
	e.wctx = nil
	if e.model != nil {
		err := e.model.Close()
		e.model = nil
		return err
	}
	return nil
}

// decodePCM reads canonical WAV into the float32 PCM whisper.cpp expects.
func decodePCM(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if dec.SampleRate != whispercpp.SampleRate {
		return nil, fmt.Errorf("unexpected sample rate %d, want %d", dec.SampleRate, whispercpp.SampleRate)
	}
	if dec.NumChans != 1 {
		return nil, fmt.Errorf("unexpected channel count %d, want mono", dec.NumChans)
	}

	return buf.AsFloat32Buffer().Data, nil
}
