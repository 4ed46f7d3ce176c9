package playback

import (
	"fmt"

	"github.com/dgnsrekt/lukija/internal/speech"
)

// State is the session state exposed to the UI.
type State int

const (
	// StateIdle indicates no session has run since the document was loaded.
	StateIdle State = iota
	// StatePlaying indicates a session is reading segments.
	StatePlaying
	// StateCompleted indicates the last session read to the end.
	StateCompleted
	// StateCancelled indicates the last session was stopped.
	StateCancelled
	// StateFailed indicates the last session ended on an error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a session is running.
func (s State) Active() bool {
	return s == StatePlaying
}

// stateMachine enforces valid transitions. It is guarded by the Driver.
type stateMachine struct {
	current     State
	transitions map[State][]State
}

func newStateMachine() *stateMachine {
	idle := []State{StatePlaying, StateCompleted, StateIdle}
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:      idle,
			StateCompleted: idle,
			StateCancelled: idle,
			StateFailed:    idle,
			// Playing to Playing is a restart at the current segment.
			StatePlaying: {StateCompleted, StateCancelled, StateFailed, StatePlaying},
		},
	}
}

func (sm *stateMachine) can(to State) bool {
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			return true
		}
	}
	return false
}

func (sm *stateMachine) transition(to State) error {
	if !sm.can(to) {
		return fmt.Errorf("%w: %s -> %s", speech.ErrInvalidTransition, sm.current, to)
	}
	sm.current = to
	return nil
}
