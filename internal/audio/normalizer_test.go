package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
)

func newTestNormalizer(t *testing.T, ffmpeg string) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(Config{FFmpeg: ffmpeg}, logger.NewDefault("audio-test"))
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}
	return n
}

// writeFakeConverter writes an executable shell script standing in for ffmpeg.
func writeFakeConverter(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake converter: %v", err)
	}
	return path
}

func TestNormalizeWavFastPath(t *testing.T) {
	// The fast path must not invoke the converter at all; a binary that
	// always fails proves it was never run.
	n := newTestNormalizer(t, writeFakeConverter(t, "exit 1"))

	out, converted, err := n.Normalize(context.Background(), "/tmp/already.WAV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if converted {
		t.Fatal("expected no conversion for .wav input")
	}
	if out != "/tmp/already.WAV" {
		t.Fatalf("expected original path back, got %q", out)
	}
}

func TestNormalizeInvokesConverter(t *testing.T) {
	// Fake converter writes the output file (its last argument).
	n := newTestNormalizer(t, writeFakeConverter(t, `for last; do :; done; echo RIFF > "$last"`))

	out, converted, err := n.Normalize(context.Background(), "/tmp/input.ogg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !converted {
		t.Fatal("expected conversion for .ogg input")
	}
	t.Cleanup(func() { os.Remove(out) })

	if !strings.HasSuffix(out, ".wav") {
		t.Fatalf("expected .wav output path, got %q", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestNormalizeConverterFailureCarriesStderr(t *testing.T) {
	n := newTestNormalizer(t, writeFakeConverter(t, `echo "unsupported codec: opus" >&2; exit 1`))

	_, _, err := n.Normalize(context.Background(), "/tmp/input.ogg")
	if err == nil {
		t.Fatal("expected error from failing converter")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.ErrCodeConversion {
		t.Fatalf("expected CONVERSION_FAILED, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "unsupported codec: opus") {
		t.Fatalf("expected stderr in message, got %q", appErr.Message)
	}
}

func TestNormalizeFailureRemovesTempOutput(t *testing.T) {
	n := newTestNormalizer(t, writeFakeConverter(t, `for last; do :; done; echo partial > "$last"; exit 1`))

	_, _, err := n.Normalize(context.Background(), "/tmp/input.mp3")
	if err == nil {
		t.Fatal("expected error")
	}

	matches, _ := filepath.Glob(filepath.Join(os.TempDir(), "transcriber-normalized-*.wav"))
	for _, m := range matches {
		if data, err := os.ReadFile(m); err == nil && strings.Contains(string(data), "partial") {
			os.Remove(m)
			t.Fatalf("temp output %s leaked after failure", m)
		}
	}
}
