package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// WAVDuration returns the duration of a WAV file in seconds, derived from its
// sample count, sample rate, and channel count.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("not a valid wav file: %s", path)
	}

	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav duration: %w", err)
	}
	return d.Seconds(), nil
}
