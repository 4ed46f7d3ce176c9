//go:build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat Format
	otoErr    error
)

const pollInterval = 10 * time.Millisecond

// OtoOutput plays audio on the default device.
type OtoOutput struct {
	context *oto.Context
	format  Format
	volume  float64
}

var _ speech.Output = (*OtoOutput)(nil)

// NewOtoOutput opens the audio device. Later calls reuse the first device
// context, so their format must match it.
func NewOtoOutput(cfg Config) (*OtoOutput, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio config: %w", err)
	}

	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.BufferSize,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready

		otoCtx = ctx
		otoFormat = cfg.Format()
		log.Debug("Audio device ready", "rate", cfg.SampleRate, "channels", cfg.Channels)
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoFormat != cfg.Format() {
		return nil, fmt.Errorf("audio device already open at %d Hz/%d ch", otoFormat.SampleRate, otoFormat.Channels)
	}

	return &OtoOutput{context: otoCtx, format: otoFormat, volume: cfg.Volume}, nil
}

// CreatePlayable decodes data into the device format.
func (o *OtoOutput) CreatePlayable(data []byte, mimeType string) (speech.Handle, error) {
	samples, from, err := Decode(data, mimeType)
	if err != nil {
		return nil, err
	}
	pcm := pcmBytes(Convert(samples, from, o.format))

	player := o.context.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(o.volume)

	return &otoHandle{
		player:   player,
		pcm:      pcm,
		duration: duration(len(pcm), o.format),
		stopped:  make(chan struct{}),
	}, nil
}

// otoHandle keeps its PCM buffer referenced until released.
type otoHandle struct {
	player   *oto.Player
	pcm      []byte
	duration time.Duration

	mu       sync.Mutex
	started  bool
	stopped  chan struct{}
	stopOnce sync.Once
}

func (h *otoHandle) Play(ctx context.Context) error {
	h.mu.Lock()
	select {
	case <-h.stopped:
		h.mu.Unlock()
		return speech.ErrHandleReleased
	default:
	}
	if h.started {
		h.mu.Unlock()
		return speech.NewPlaybackError(speech.ErrorCodePlaybackFailed, "clip already played", nil)
	}
	h.started = true
	h.player.Play()
	h.mu.Unlock()

	start := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopped:
			return speech.ErrHandleReleased
		case <-ticker.C:
			if err := h.player.Err(); err != nil {
				return speech.NewPlaybackError(speech.ErrorCodePlaybackFailed, "audio device error", err)
			}
			if !h.player.IsPlaying() && time.Since(start) >= h.duration {
				return nil
			}
		}
	}
}

func (h *otoHandle) Stop() error {
	var err error
	h.stopOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		close(h.stopped)
		h.player.Pause()
		err = h.player.Close()
		h.pcm = nil
	})
	return err
}
