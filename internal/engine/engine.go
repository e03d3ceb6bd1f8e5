// Package engine defines the inference engine contract and the Guard that
// serializes access to the single loaded engine instance.
package engine

import "context"

// Token is one raw time-aligned unit emitted by the inference engine.
// Times are in seconds from the start of the audio.
type Token struct {
	Start float64
	End   float64
	Text  string
}

// RawResult is the unprocessed engine output.
type RawResult struct {
	Text   string
	Tokens []Token
}

// Segment is a time-aligned portion of a transcript. Tokens map 1:1 onto
// segments; the orchestrator never merges or reformats them.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a completed transcription.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
}

// Engine is a speech-to-text backend operating on canonical WAV audio.
// Implementations are not required to be safe for concurrent use; the Guard
// provides the necessary serialization.
type Engine interface {
	// Load initializes the engine from a model file on disk.
	Load(ctx context.Context, modelPath string) error

	// Transcribe decodes the audio at wavPath. The file must already be in
	// canonical format (mono, 16kHz WAV).
	Transcribe(ctx context.Context, wavPath string) (*RawResult, error)

	// Close releases engine resources.
	Close() error
}
