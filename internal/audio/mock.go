package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/lukija/internal/speech"
)

// MockOutput implements speech.Output without producing sound.
type MockOutput struct {
	// Duration is the simulated length of every clip, unless Hold is set.
	Duration time.Duration

	// Hold makes Play block until the handle is finished, stopped, or its
	// context is done.
	Hold bool

	// FailCreate and FailPlay inject errors for a payload.
	FailCreate func(data []byte) error
	FailPlay   func(data []byte) error

	// OnPlay is called when a handle starts playing.
	OnPlay func(h *MockHandle)

	mu      sync.Mutex
	handles []*MockHandle

	createCount atomic.Int64
	playCount   atomic.Int64
	stopCount   atomic.Int64
}

var _ speech.Output = (*MockOutput)(nil)

// NewMockOutput returns a mock whose clips last d.
func NewMockOutput(d time.Duration) *MockOutput {
	return &MockOutput{Duration: d}
}

// CreatePlayable records the payload and returns a handle for it.
func (m *MockOutput) CreatePlayable(data []byte, mimeType string) (speech.Handle, error) {
	if m.FailCreate != nil {
		if err := m.FailCreate(data); err != nil {
			return nil, err
		}
	}

	h := &MockHandle{
		Data:     append([]byte(nil), data...),
		MIMEType: mimeType,
		out:      m,
		finish:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	m.mu.Lock()
	m.handles = append(m.handles, h)
	m.mu.Unlock()
	m.createCount.Add(1)

	return h, nil
}

// Handles returns every handle created so far.
func (m *MockOutput) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*MockHandle(nil), m.handles...)
}

// Played returns the payloads of handles that finished naturally, in order.
func (m *MockOutput) Played() []string {
	var out []string
	for _, h := range m.Handles() {
		if h.Completed() {
			out = append(out, string(h.Data))
		}
	}
	return out
}

// CreateCount returns how many handles were created.
func (m *MockOutput) CreateCount() int64 { return m.createCount.Load() }

// PlayCount returns how many times Play was entered.
func (m *MockOutput) PlayCount() int64 { return m.playCount.Load() }

// StopCount returns how many handles were released.
func (m *MockOutput) StopCount() int64 { return m.stopCount.Load() }

// MockHandle is a simulated clip.
type MockHandle struct {
	Data     []byte
	MIMEType string

	out      *MockOutput
	finish   chan struct{}
	stopped  chan struct{}
	finOnce  sync.Once
	stopOnce sync.Once

	completed atomic.Bool
	stopCalls atomic.Int64
}

// Play simulates playback.
func (h *MockHandle) Play(ctx context.Context) error {
	select {
	case <-h.stopped:
		return speech.ErrHandleReleased
	default:
	}

	h.out.playCount.Add(1)
	if h.out.OnPlay != nil {
		h.out.OnPlay(h)
	}

	var done <-chan time.Time
	if !h.out.Hold {
		timer := time.NewTimer(h.out.Duration)
		defer timer.Stop()
		done = timer.C
	}

	select {
	case <-done:
	case <-h.finish:
	case <-h.stopped:
		return speech.NewPlaybackError(speech.ErrorCodePlaybackFailed, "playback interrupted", speech.ErrHandleReleased)
	case <-ctx.Done():
		return ctx.Err()
	}

	if h.out.FailPlay != nil {
		if err := h.out.FailPlay(h.Data); err != nil {
			return err
		}
	}

	h.completed.Store(true)
	return nil
}

// Finish ends a held clip naturally.
func (h *MockHandle) Finish() {
	h.finOnce.Do(func() { close(h.finish) })
}

// Stop releases the clip.
func (h *MockHandle) Stop() error {
	h.stopCalls.Add(1)
	h.stopOnce.Do(func() {
		close(h.stopped)
		h.out.stopCount.Add(1)
	})
	return nil
}

// Completed reports whether the clip played to its natural end.
func (h *MockHandle) Completed() bool { return h.completed.Load() }

// Released reports whether Stop was called.
func (h *MockHandle) Released() bool {
	select {
	case <-h.stopped:
		return true
	default:
		return false
	}
}

// StopCalls returns how many times Stop was called.
func (h *MockHandle) StopCalls() int64 { return h.stopCalls.Load() }
