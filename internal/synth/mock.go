package synth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/lukija/internal/speech"
)

// Mock produces silent L16 audio whose length follows the text.
type Mock struct {
	// Delay simulates request latency.
	Delay time.Duration

	// SampleRate of the generated audio, 44100 when zero.
	SampleRate int

	// FailOn returns an error to inject for a text, or nil.
	FailOn func(text string) error

	mu        sync.Mutex
	callCount int
	texts     []string
}

var _ speech.Synthesizer = (*Mock)(nil)

// NewMock creates a mock engine with the given latency.
func NewMock(delay time.Duration) *Mock {
	return &Mock{Delay: delay}
}

// Synthesize implements speech.Synthesizer.
func (m *Mock) Synthesize(ctx context.Context, text string, params speech.VoiceParams) (speech.Audio, error) {
	m.mu.Lock()
	m.callCount++
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return speech.Audio{}, speech.NewSynthesisError("mock synthesis cancelled", ctx.Err())
		}
	}

	if m.FailOn != nil {
		if err := m.FailOn(text); err != nil {
			return speech.Audio{}, err
		}
	}

	rate := m.SampleRate
	if rate == 0 {
		rate = 44100
	}
	d := estimateDuration(text, params.Rate)
	samples := int(d.Seconds() * float64(rate))

	return speech.Audio{
		Data:     make([]byte, samples*2),
		MIMEType: fmt.Sprintf("audio/L16;rate=%d;channels=1", rate),
	}, nil
}

// CallCount returns the number of Synthesize calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns the texts requested so far.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// estimateDuration assumes 150 words per minute at rate 1.
func estimateDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	return time.Duration(float64(words) * 400 * float64(time.Millisecond) / rate)
}
