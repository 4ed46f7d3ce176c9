package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/google/uuid"
)

// Status is a snapshot for the UI.
type Status struct {
	State      State
	NowPlaying int // -1 when nothing is highlighted
	Total      int
	Session    string
	Err        error // Set after StateFailed
}

// Option configures a Driver.
type Option func(*Driver)

// WithLookahead sets the prefetch window.
func WithLookahead(k int) Option {
	return func(d *Driver) {
		d.lookahead = k
	}
}

// WithObserver registers an observer at construction.
func WithObserver(fn Observer) Option {
	return func(d *Driver) {
		d.observers = append(d.observers, fn)
	}
}

// Driver plays a Document segment by segment.
type Driver struct {
	doc       *Document
	out       speech.Output
	prefetch  *Prefetcher
	lookahead int

	// control serializes Start, Stop, Reset and SetVoice.
	control sync.Mutex

	mu          sync.Mutex
	sm          *stateMachine
	nowPlaying  int
	lastErr     error
	session     *session
	lastSession string

	obsMu     sync.RWMutex
	observers []Observer
}

// session is one run from a start index to idle.
type session struct {
	id     string
	start  int
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// restarting is set under Driver.mu before a voice change cancels the
	// session. abandoned records that the session ended that way.
	restarting bool
	abandoned  bool

	handleMu sync.Mutex
	handle   speech.Handle
}

// NewDriver creates a driver for doc that plays through out.
func NewDriver(doc *Document, out speech.Output, opts ...Option) (*Driver, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}
	if out == nil {
		return nil, fmt.Errorf("audio output cannot be nil")
	}

	d := &Driver{
		doc:        doc,
		out:        out,
		lookahead:  DefaultLookahead,
		sm:         newStateMachine(),
		nowPlaying: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.prefetch = NewPrefetcher(doc, d.lookahead)

	return d, nil
}

// Document returns the driver's document.
func (d *Driver) Document() *Document {
	return d.doc
}

// Subscribe registers an observer.
func (d *Driver) Subscribe(fn Observer) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, fn)
}

// Status returns the current state.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusLocked()
}

// Start begins reading at index from. A running session is cancelled first.
// An out-of-range index completes immediately without requesting audio.
func (d *Driver) Start(from int) {
	d.control.Lock()
	defer d.control.Unlock()

	d.stopLocked(false)
	d.startLocked(from)
}

// Stop cancels the running session and releases its audio. It returns after
// the session has ended. Stopping an idle driver does nothing.
func (d *Driver) Stop() {
	d.control.Lock()
	defer d.control.Unlock()

	d.stopLocked(false)
}

// Reset stops playback and replaces the document's segments, clearing the
// cache.
func (d *Driver) Reset(segments []speech.Segment) {
	d.control.Lock()
	defer d.control.Unlock()

	d.stopLocked(false)
	d.doc.replace(segments)

	d.mu.Lock()
	d.nowPlaying = -1
	d.lastErr = nil
	err := d.sm.transition(StateIdle)
	status := d.statusLocked()
	d.mu.Unlock()
	if err != nil {
		log.Warn("Reset transition rejected", "err", err)
	}

	log.Debug("Document reset", "segments", status.Total)
	d.emit(Event{Kind: EventStateChanged, Session: status.Session, Index: -1, State: status.State})
}

// SetVoice changes the voice parameters. A running session restarts at the
// segment it was playing; otherwise the change applies to the next Start.
func (d *Driver) SetVoice(v speech.VoiceParams) {
	d.control.Lock()
	defer d.control.Unlock()

	d.mu.Lock()
	s := d.session
	resumeAt := d.nowPlaying
	d.mu.Unlock()

	if s == nil {
		d.doc.setVoice(v)
		log.Debug("Voice changed", "voice", v)
		return
	}

	d.stopLocked(true)
	d.doc.setVoice(v)

	if !s.abandoned {
		// The session finished on its own before the restart took effect.
		return
	}
	if resumeAt < s.start {
		resumeAt = s.start
	}
	log.Debug("Voice changed, resuming", "voice", v, "index", resumeAt)
	d.startLocked(resumeAt)
}

// Wait blocks until no session is running. A session restarted by a voice
// change counts as the same reading.
func (d *Driver) Wait() {
	for {
		d.mu.Lock()
		s := d.session
		d.mu.Unlock()
		if s == nil {
			return
		}
		<-s.done

		// A voice change holds control from cancel through restart.
		d.control.Lock()
		d.control.Unlock() //nolint:staticcheck
	}
}

// Close stops playback and shuts down the cache.
func (d *Driver) Close() {
	d.Stop()
	d.doc.cache.Close()
}

func (d *Driver) startLocked(from int) {
	s := &session{
		id:    uuid.NewString(),
		start: from,
		done:  make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if from < 0 || from >= d.doc.Len() {
		s.cancel()
		close(s.done)

		d.mu.Lock()
		d.lastSession = s.id
		d.nowPlaying = -1
		d.lastErr = nil
		err := d.sm.transition(StateCompleted)
		d.mu.Unlock()
		if err != nil {
			log.Warn("Start transition rejected", "err", err)
		}

		log.Debug("Start index out of range", "index", from, "segments", d.doc.Len())
		d.emit(Event{Kind: EventStateChanged, Session: s.id, Index: -1, State: StateCompleted})
		return
	}

	d.mu.Lock()
	d.session = s
	d.lastSession = s.id
	d.lastErr = nil
	err := d.sm.transition(StatePlaying)
	d.mu.Unlock()
	if err != nil {
		log.Warn("Start transition rejected", "err", err)
	}

	log.Debug("Playback session started", "session", s.id, "from", from, "lookahead", d.prefetch.Lookahead())
	d.emit(Event{Kind: EventStateChanged, Session: s.id, Index: from, State: StatePlaying})

	go d.run(s)
}

// stopLocked cancels the running session and waits for it. With restart set
// the session ends without leaving the playing state.
func (d *Driver) stopLocked(restart bool) {
	d.mu.Lock()
	s := d.session
	if s != nil && restart {
		s.restarting = true
	}
	d.mu.Unlock()
	if s == nil {
		return
	}

	s.cancel()
	d.doc.cache.CancelPending()
	s.releaseHandle()
	<-s.done
}

func (d *Driver) run(s *session) {
	defer close(s.done)

	for i := s.start; ; i++ {
		if s.ctx.Err() != nil {
			d.finish(s, StateCancelled, nil)
			return
		}
		if i >= d.doc.Len() {
			d.finish(s, StateCompleted, nil)
			return
		}

		d.mu.Lock()
		d.nowPlaying = i
		d.mu.Unlock()
		d.emit(Event{Kind: EventNowPlaying, Session: s.id, Index: i})

		for _, k := range d.prefetch.Kick(i) {
			d.emit(Event{Kind: EventPrefetchIssued, Session: s.id, Index: k})
		}

		if s.ctx.Err() != nil {
			d.finish(s, StateCancelled, nil)
			return
		}

		audio, source, err := d.doc.Await(s.ctx, i)
		if err != nil {
			d.fail(s, i, err)
			return
		}
		log.Debug("Sentence audio ready", "index", i, "source", source, "size", audio.Size())
		d.emit(Event{Kind: EventResolved, Session: s.id, Index: i, Source: source})

		if s.ctx.Err() != nil {
			d.finish(s, StateCancelled, nil)
			return
		}

		if err := d.play(s, audio); err != nil {
			d.fail(s, i, err)
			return
		}
		d.emit(Event{Kind: EventPlayed, Session: s.id, Index: i})
	}
}

func (d *Driver) play(s *session, audio speech.Audio) error {
	h, err := d.out.CreatePlayable(audio.Data, audio.MIMEType)
	if err != nil {
		return asPlaybackError(err)
	}

	s.setHandle(h)
	defer s.releaseHandle()

	// Stop may have run before the handle was registered.
	if err := s.ctx.Err(); err != nil {
		return err
	}

	if err := h.Play(s.ctx); err != nil {
		return asPlaybackError(err)
	}
	return nil
}

// fail ends the session. Errors caused by cancellation count as a stop.
func (d *Driver) fail(s *session, index int, err error) {
	if s.ctx.Err() != nil {
		log.Debug("Ignoring error after cancellation", "index", index, "err", err)
		d.finish(s, StateCancelled, nil)
		return
	}
	d.finish(s, StateFailed, speech.WithIndex(err, index))
}

func (d *Driver) finish(s *session, state State, err error) {
	d.mu.Lock()
	if d.session == s {
		d.session = nil
	}
	if s.restarting && state != StateFailed {
		s.abandoned = true
		d.mu.Unlock()
		log.Debug("Playback session superseded", "session", s.id)
		return
	}

	if state == StateCompleted {
		d.nowPlaying = -1
	}
	d.lastErr = err
	terr := d.sm.transition(state)
	index := d.nowPlaying
	d.mu.Unlock()
	if terr != nil {
		log.Warn("Session transition rejected", "err", terr)
	}

	if err != nil {
		log.Error("Playback failed", "session", s.id, "index", index, "err", err)
	} else {
		log.Debug("Playback session ended", "session", s.id, "state", state, "index", index)
	}
	d.emit(Event{Kind: EventStateChanged, Session: s.id, Index: index, State: state, Err: err})
}

func (d *Driver) statusLocked() Status {
	return Status{
		State:      d.sm.current,
		NowPlaying: d.nowPlaying,
		Total:      d.doc.Len(),
		Session:    d.lastSession,
		Err:        d.lastErr,
	}
}

func (d *Driver) emit(ev Event) {
	d.obsMu.RLock()
	observers := d.observers
	d.obsMu.RUnlock()

	for _, fn := range observers {
		fn(ev)
	}
}

func (s *session) setHandle(h speech.Handle) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	s.handle = h
}

// releaseHandle stops the active handle once. It is safe to call from any
// goroutine and more than once.
func (s *session) releaseHandle() {
	s.handleMu.Lock()
	h := s.handle
	s.handle = nil
	s.handleMu.Unlock()

	if h == nil {
		return
	}
	if err := h.Stop(); err != nil {
		log.Debug("Releasing audio handle", "session", s.id, "err", err)
	}
}

func asPlaybackError(err error) error {
	var se *speech.SynthesisError
	var pe *speech.PlaybackError
	if errors.As(err, &pe) || errors.As(err, &se) || errors.Is(err, context.Canceled) {
		return err
	}
	return speech.NewPlaybackError(speech.ErrorCodePlaybackFailed, "playback failed", err)
}
