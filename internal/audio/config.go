package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrAudioUnavailable is returned when the binary was built without audio
// support.
var ErrAudioUnavailable = errors.New("audio output not available in this build")

// Config contains configuration for the device output.
type Config struct {
	SampleRate int           // 22050, 24000, 44100 or 48000 Hz
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // Device buffer, 0 for the driver default
	Volume     float64       // 0.0 to 1.0
}

// DefaultConfig returns the default output configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 100 * time.Millisecond,
		Volume:     1.0,
	}
}

// Format returns the device PCM format.
func (c Config) Format() Format {
	return Format{SampleRate: c.SampleRate, Channels: c.Channels}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	switch c.SampleRate {
	case 22050, 24000, 44100, 48000:
	default:
		return fmt.Errorf("sample rate must be 22050, 24000, 44100 or 48000 Hz, got %d", c.SampleRate)
	}

	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}

	if c.BufferSize < 0 {
		return errors.New("buffer size cannot be negative")
	}

	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %.2f", c.Volume)
	}

	return nil
}

// duration returns the playing time of n s16le bytes in format f.
func duration(n int, f Format) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
