package audio

import "fmt"

// Config holds audio normalization configuration.
type Config struct {
	// FFmpeg is the converter binary path or name (resolved via PATH).
	FFmpeg string `yaml:"ffmpeg" mapstructure:"ffmpeg"`

	// SampleRate is the target sample rate in Hz.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`

	// Channels is the target channel count.
	Channels int `yaml:"channels" mapstructure:"channels"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.FFmpeg == "" {
		c.FFmpeg = "ffmpeg"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0 (got: %d)", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audio.channels must be > 0 (got: %d)", c.Channels)
	}
	return nil
}
