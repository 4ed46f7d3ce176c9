package playback

import (
	"context"
	"sync"

	"github.com/dgnsrekt/lukija/internal/cache"
	"github.com/dgnsrekt/lukija/internal/speech"
)

// Document is a loaded text: its segments, the voice used to synthesize
// them, and the audio cache that lives exactly as long as both.
type Document struct {
	synth speech.Synthesizer
	cache *cache.AudioCache

	mu       sync.RWMutex
	segments []speech.Segment
	voice    speech.VoiceParams
}

// NewDocument binds segments to a cache and a synthesizer.
func NewDocument(segments []speech.Segment, c *cache.AudioCache, s speech.Synthesizer, voice speech.VoiceParams) *Document {
	return &Document{
		synth:    s,
		cache:    c,
		segments: append([]speech.Segment(nil), segments...),
		voice:    voice,
	}
}

// Len returns the number of segments.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.segments)
}

// Segment returns the segment at index.
func (d *Document) Segment(index int) (speech.Segment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if index < 0 || index >= len(d.segments) {
		return speech.Segment{}, false
	}
	return d.segments[index], true
}

// Segments returns a copy of all segments.
func (d *Document) Segments() []speech.Segment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]speech.Segment(nil), d.segments...)
}

// Voice returns the current voice parameters.
func (d *Document) Voice() speech.VoiceParams {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.voice
}

// Cache returns the document's audio cache.
func (d *Document) Cache() *cache.AudioCache {
	return d.cache
}

// Ensure requests index in the background. Out-of-range indices are ignored.
func (d *Document) Ensure(index int) bool {
	fetch, ok := d.fetcher(index)
	if !ok {
		return false
	}
	return d.cache.Ensure(index, fetch)
}

// Await returns the audio for index, synthesizing it if needed.
func (d *Document) Await(ctx context.Context, index int) (speech.Audio, cache.Source, error) {
	fetch, ok := d.fetcher(index)
	if !ok {
		return speech.Audio{}, cache.SourceSynthesized, speech.NewSynthesisError("no such sentence", nil)
	}
	return d.cache.Await(ctx, index, fetch)
}

// replace swaps in new segments and clears the cache.
func (d *Document) replace(segments []speech.Segment) {
	d.mu.Lock()
	d.segments = append([]speech.Segment(nil), segments...)
	d.mu.Unlock()
	d.cache.Clear()
}

// setVoice changes the voice. Cached audio used the old voice, so the cache
// is cleared.
func (d *Document) setVoice(v speech.VoiceParams) {
	d.mu.Lock()
	d.voice = v
	d.mu.Unlock()
	d.cache.Clear()
}

// fetcher captures the segment text and voice at issue time.
func (d *Document) fetcher(index int) (cache.FetchFunc, bool) {
	d.mu.RLock()
	if index < 0 || index >= len(d.segments) {
		d.mu.RUnlock()
		return nil, false
	}
	seg := d.segments[index]
	voice := d.voice
	d.mu.RUnlock()

	return func(ctx context.Context) (speech.Audio, error) {
		audio, err := d.synth.Synthesize(ctx, seg.Text, voice)
		if err != nil {
			return speech.Audio{}, speech.WithIndex(err, seg.Index)
		}
		return audio, nil
	}, true
}
