package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/dustin/go-humanize"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrStale is returned to a waiter whose request was invalidated by
	// Clear or CancelPending before it resolved.
	ErrStale = errors.New("synthesis result discarded")
)

// FetchFunc produces the audio for one index. The context is cancelled when
// the generation that issued the request is invalidated.
type FetchFunc func(ctx context.Context) (speech.Audio, error)

// Source tells where Await found its audio.
type Source int

const (
	// SourceCache means the audio was already cached.
	SourceCache Source = iota
	// SourceJoined means an in-flight request was awaited.
	SourceJoined
	// SourceSynthesized means Await issued the request itself.
	SourceSynthesized
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceJoined:
		return "in-flight"
	case SourceSynthesized:
		return "synthesized"
	default:
		return "unknown"
	}
}

// Options configures an AudioCache.
type Options struct {
	MaxBytes int64 // Byte budget for stored entries, 0 for unlimited
	Compress bool  // Store entries zstd-compressed
}

// Stats holds cache counters.
type Stats struct {
	Capacity int64 // Byte budget, 0 for unlimited

	Size     int64 // Stored bytes
	Entries  int
	InFlight int

	Hits         int64
	Misses       int64
	Requests     int64 // Synthesis requests issued
	Deduplicated int64 // Requests avoided by joining an in-flight one
	Discarded    int64 // Results dropped because their generation ended
	Failures     int64
	Evictions    int64
	HitRate      float64

	Generation uint64
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("%d cached (%s), %d in flight, %.0f%% hits",
		s.Entries, humanize.Bytes(uint64(s.Size)), s.InFlight, s.HitRate*100) //nolint:gosec
}
