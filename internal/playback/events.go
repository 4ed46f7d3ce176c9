package playback

import "github.com/dgnsrekt/lukija/internal/cache"

// EventKind identifies an observable step of a session.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventNowPlaying
	EventPrefetchIssued
	EventResolved
	EventPlayed
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state"
	case EventNowPlaying:
		return "now-playing"
	case EventPrefetchIssued:
		return "prefetch"
	case EventResolved:
		return "resolved"
	case EventPlayed:
		return "played"
	default:
		return "unknown"
	}
}

// Event is delivered to observers in the order it happens.
type Event struct {
	Kind    EventKind
	Session string
	Index   int          // Segment index, -1 when none
	State   State        // EventStateChanged
	Source  cache.Source // EventResolved
	Err     error        // EventStateChanged into StateFailed
}

// Observer receives events synchronously on the goroutine that produced
// them. It must not block or call Start, Stop, Reset or SetVoice.
type Observer func(Event)
