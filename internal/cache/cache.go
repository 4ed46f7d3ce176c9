package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/speech"
)

// AudioCache maps segment indices to synthesized audio with LRU eviction
// under an optional byte budget. An index is either cached, in flight, or
// absent.
type AudioCache struct {
	maxBytes int64
	size     int64

	// LRU implementation
	entries  map[int]*list.Element
	eviction *list.List

	inflight map[int]*pending

	// generation ends whenever the cache is cleared or pending requests
	// are cancelled. genCtx is handed to every request of the generation.
	generation uint64
	genCtx     context.Context
	genCancel  context.CancelFunc

	codec *codec

	mu    sync.Mutex
	wg    sync.WaitGroup
	stats Stats
}

type entry struct {
	index int
	audio speech.Audio // Data is compressed when the cache has a codec
	size  int64
}

// pending is one synthesis request. done is closed exactly once, after the
// request has left the in-flight set.
type pending struct {
	index      int
	generation uint64
	done       chan struct{}

	audio     speech.Audio
	err       error
	discarded bool
}

// New creates an empty cache.
func New(opts Options) (*AudioCache, error) {
	c := &AudioCache{
		maxBytes: opts.MaxBytes,
		entries:  make(map[int]*list.Element),
		eviction: list.New(),
		inflight: make(map[int]*pending),
		stats:    Stats{Capacity: opts.MaxBytes},
	}
	c.genCtx, c.genCancel = context.WithCancel(context.Background())

	if opts.Compress {
		cd, err := newCodec()
		if err != nil {
			return nil, err
		}
		c.codec = cd
	}

	return c, nil
}

// Get returns the cached audio for index without blocking.
func (c *AudioCache) Get(index int) (speech.Audio, bool) {
	c.mu.Lock()
	stored, ok := c.lookupLocked(index)
	c.mu.Unlock()
	if !ok {
		return speech.Audio{}, false
	}
	return c.unpack(index, stored)
}

// Contains reports whether index is cached. It does not touch statistics or
// recency.
func (c *AudioCache) Contains(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[index]
	return ok
}

// InFlight reports whether a request for index is pending.
func (c *AudioCache) InFlight(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.inflight[index]
	return ok
}

// Ensure issues a background request for index unless it is already cached
// or in flight. It reports whether a request was issued. Failures are logged
// and leave no entry behind.
func (c *AudioCache) Ensure(index int, fetch FetchFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[index]; ok {
		return false
	}
	if _, ok := c.inflight[index]; ok {
		c.stats.Deduplicated++
		return false
	}

	c.issueLocked(index, fetch)
	return true
}

// Await returns the audio for index: from the cache, by joining the pending
// request, or by issuing a new one. Only ctx bounds the wait.
func (c *AudioCache) Await(ctx context.Context, index int, fetch FetchFunc) (speech.Audio, Source, error) {
	c.mu.Lock()
	if stored, ok := c.lookupLocked(index); ok {
		c.mu.Unlock()
		if audio, ok := c.unpack(index, stored); ok {
			return audio, SourceCache, nil
		}
		c.mu.Lock()
	}

	source := SourceJoined
	p, ok := c.inflight[index]
	if ok {
		c.stats.Deduplicated++
	} else {
		p = c.issueLocked(index, fetch)
		source = SourceSynthesized
	}
	c.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		return speech.Audio{}, source, ctx.Err()
	}

	switch {
	case p.err != nil:
		return speech.Audio{}, source, p.err
	case p.discarded:
		return speech.Audio{}, source, ErrStale
	default:
		return p.audio, source, nil
	}
}

// Clear empties the cache and the in-flight set. Requests still running
// belong to a finished generation and their results are dropped.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.nextGenerationLocked()

	log.Debug("Audio cache cleared", "generation", c.generation)
}

// CancelPending forgets every in-flight request but keeps completed entries.
func (c *AudioCache) CancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.inflight) > 0 {
		log.Debug("Cancelling pending synthesis", "count", len(c.inflight))
	}
	c.nextGenerationLocked()
}

// Generation returns the current generation token.
func (c *AudioCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

// Len returns the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns cache statistics.
func (c *AudioCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.Entries = len(c.entries)
	stats.InFlight = len(c.inflight)
	stats.Generation = c.generation
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Wait blocks until every request goroutine has returned.
func (c *AudioCache) Wait() {
	c.wg.Wait()
}

// Close cancels pending requests and waits for them to return.
func (c *AudioCache) Close() {
	c.CancelPending()
	c.wg.Wait()
	if c.codec != nil {
		c.codec.close()
	}
}

func (c *AudioCache) nextGenerationLocked() {
	c.genCancel()
	c.generation++
	c.genCtx, c.genCancel = context.WithCancel(context.Background())
	c.inflight = make(map[int]*pending)
}

func (c *AudioCache) lookupLocked(index int) (speech.Audio, bool) {
	elem, ok := c.entries[index]
	if !ok {
		c.stats.Misses++
		return speech.Audio{}, false
	}

	// Move to front (most recently used)
	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*entry).audio, true
}

// unpack decompresses a stored entry. A corrupt entry is dropped so the next
// lookup misses and the index is synthesized again.
func (c *AudioCache) unpack(index int, stored speech.Audio) (speech.Audio, bool) {
	if c.codec == nil {
		return stored, true
	}

	data, err := c.codec.decode(stored.Data)
	if err != nil {
		log.Warn("Dropping corrupt cache entry", "index", index, "err", err)
		c.mu.Lock()
		if elem, ok := c.entries[index]; ok {
			c.removeElement(elem)
		}
		c.mu.Unlock()
		return speech.Audio{}, false
	}
	return speech.Audio{Data: data, MIMEType: stored.MIMEType}, true
}

func (c *AudioCache) issueLocked(index int, fetch FetchFunc) *pending {
	p := &pending{
		index:      index,
		generation: c.generation,
		done:       make(chan struct{}),
	}
	c.inflight[index] = p
	c.stats.Requests++

	ctx := c.genCtx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		audio, err := fetch(ctx)
		c.complete(p, audio, err)
	}()

	return p
}

func (c *AudioCache) complete(p *pending, audio speech.Audio, err error) {
	stored := audio
	if err == nil && c.codec != nil {
		stored.Data = c.codec.encode(audio.Data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(p.done)

	p.audio, p.err = audio, err

	if p.generation != c.generation || c.inflight[p.index] != p {
		p.discarded = true
		c.stats.Discarded++
		log.Debug("Discarding stale synthesis result", "index", p.index, "generation", p.generation, "current", c.generation)
		return
	}
	delete(c.inflight, p.index)

	if err != nil {
		c.stats.Failures++
		log.Debug("Synthesis request failed", "index", p.index, "err", err)
		return
	}

	if err := c.putLocked(p.index, stored); err != nil {
		log.Debug("Audio not cached", "index", p.index, "size", stored.Size(), "err", err)
	}
}

func (c *AudioCache) putLocked(index int, audio speech.Audio) error {
	size := audio.Size()

	if elem, ok := c.entries[index]; ok {
		c.removeElement(elem)
	}

	if c.maxBytes > 0 {
		if size > c.maxBytes {
			return ErrItemTooLarge
		}
		for c.size+size > c.maxBytes && c.eviction.Len() > 0 {
			c.evictOldest()
		}
	}

	elem := c.eviction.PushFront(&entry{index: index, audio: audio, size: size})
	c.entries[index] = elem
	c.size += size
	return nil
}

func (c *AudioCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	log.Debug("Evicting cached audio", "index", elem.Value.(*entry).index)
	c.removeElement(elem)
	c.stats.Evictions++
}

func (c *AudioCache) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	c.eviction.Remove(elem)
	delete(c.entries, e.index)
	c.size -= e.size
}
