package speech

import (
	"context"
	"fmt"
)

// Segment is one sentence of the loaded document.
type Segment struct {
	Index int    // Position in the document, stable while the document is loaded
	Text  string // Text to synthesize
}

// Audio is an encoded synthesis result.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Size returns the payload size in bytes.
func (a Audio) Size() int64 {
	return int64(len(a.Data))
}

// VoiceParams are optional hints passed to the synthesis backend.
type VoiceParams struct {
	Language string  `yaml:"language" mapstructure:"language"`
	Name     string  `yaml:"name" mapstructure:"name"`
	Rate     float64 `yaml:"rate" mapstructure:"rate"`
}

// DefaultVoiceParams returns Finnish at normal speed.
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{
		Language: "fi-FI",
		Rate:     1.0,
	}
}

// String returns a compact description for logs.
func (v VoiceParams) String() string {
	name := v.Name
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s/%s@%.2fx", v.Language, name, v.Rate)
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	// Synthesize returns the audio for text. Failures are reported as
	// *SynthesisError.
	Synthesize(ctx context.Context, text string, params VoiceParams) (Audio, error)
}

// Output creates playable handles from encoded audio.
type Output interface {
	CreatePlayable(data []byte, mimeType string) (Handle, error)
}

// Handle is a single playable clip.
type Handle interface {
	// Play blocks until the clip ends naturally, the handle is stopped,
	// ctx is done, or playback fails.
	Play(ctx context.Context) error

	// Stop releases the clip. Calling it more than once is safe.
	Stop() error
}
