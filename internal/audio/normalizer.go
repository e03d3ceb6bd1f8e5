// Package audio converts arbitrary audio recordings into the canonical
// mono 16kHz WAV the inference engine requires.
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/process"
)

// Normalizer converts audio files to canonical WAV via an external ffmpeg.
type Normalizer struct {
	cfg Config
	log *logger.Logger
}

// NewNormalizer creates a Normalizer with the given configuration and logger.
func NewNormalizer(cfg Config, log *logger.Logger) (*Normalizer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("audio config: %w", err)
	}
	return &Normalizer{cfg: cfg, log: log.WithComponent("audio")}, nil
}

// Normalize ensures path points at canonical WAV audio.
//
// Files already carrying a .wav extension are returned unchanged with
// converted=false; no subprocess runs. Otherwise ffmpeg resamples into a new
// ephemeral file and converted=true; the caller owns deleting that file.
func (n *Normalizer) Normalize(ctx context.Context, path string) (out string, converted bool, err error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return path, false, nil
	}

	tmp, err := os.CreateTemp("", "transcriber-normalized-*.wav")
	if err != nil {
		return "", false, fmt.Errorf("create temp wav: %w", err)
	}
	outPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(outPath)
		return "", false, fmt.Errorf("close temp wav: %w", err)
	}

	n.log.Info("Converting audio to canonical WAV", map[string]interface{}{
		"input":       path,
		"sample_rate": n.cfg.SampleRate,
		"channels":    n.cfg.Channels,
	})

	result, runErr := process.Run(ctx, process.Command{
		Binary: n.cfg.FFmpeg,
		Args: []string{
			"-i", path,
			"-ar", strconv.Itoa(n.cfg.SampleRate),
			"-ac", strconv.Itoa(n.cfg.Channels),
			"-f", "wav",
			"-y",
			outPath,
		},
	})
	if runErr != nil {
		os.Remove(outPath)
		stderr := runErr.Error()
		if result != nil && len(result.Stderr) > 0 {
			stderr = string(result.Stderr)
		}
		n.log.Error("Audio conversion failed", map[string]interface{}{
			"input":  path,
			"stderr": stderr,
		})
		return "", false, apperrors.Conversion(stderr)
	}

	return outPath, true, nil
}
