package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled indicates the playback session was superseded by stop or reset.
	ErrCancelled = errors.New("playback cancelled")

	// ErrHandleReleased indicates a handle was used after Stop.
	ErrHandleReleased = errors.New("audio handle already released")

	// ErrUnsupportedFormat indicates an audio MIME type the output cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyText indicates a synthesis request without text.
	ErrEmptyText = errors.New("text is empty")

	// ErrNoSegments indicates the document has nothing to read.
	ErrNoSegments = errors.New("no segments to read")

	// ErrInvalidTransition indicates a state change the driver does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ErrorCode identifies the kind of engine failure.
type ErrorCode string

const (
	ErrorCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodePlaybackFailed  ErrorCode = "PLAYBACK_FAILED"
	ErrorCodeDecodeFailed    ErrorCode = "DECODE_FAILED"
)

// SynthesisError is returned when the synthesis backend fails.
type SynthesisError struct {
	Code    ErrorCode
	Message string
	Index   int // Segment index, -1 when unknown
	Cause   error
}

// NewSynthesisError creates a synthesis error without a segment index.
func NewSynthesisError(message string, cause error) *SynthesisError {
	return &SynthesisError{
		Code:    ErrorCodeSynthesisFailed,
		Message: message,
		Index:   -1,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	msg := e.Message
	if e.Index >= 0 {
		msg = fmt.Sprintf("sentence %d: %s", e.Index+1, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether issuing the request again may succeed.
func (e *SynthesisError) Retryable() bool {
	return e.Code == ErrorCodeRateLimited
}

// PlaybackError is returned when the audio output fails.
type PlaybackError struct {
	Code    ErrorCode
	Message string
	Index   int
	Cause   error
}

// NewPlaybackError creates a playback error without a segment index.
func NewPlaybackError(code ErrorCode, message string, cause error) *PlaybackError {
	return &PlaybackError{
		Code:    code,
		Message: message,
		Index:   -1,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	msg := e.Message
	if e.Index >= 0 {
		msg = fmt.Sprintf("sentence %d: %s", e.Index+1, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

// WithIndex attaches a segment index to err when it is a SynthesisError or
// PlaybackError without one. Other errors are wrapped as synthesis failures.
func WithIndex(err error, index int) error {
	if err == nil {
		return nil
	}

	var se *SynthesisError
	if errors.As(err, &se) {
		if se.Index < 0 {
			cp := *se
			cp.Index = index
			return &cp
		}
		return err
	}

	var pe *PlaybackError
	if errors.As(err, &pe) {
		if pe.Index < 0 {
			cp := *pe
			cp.Index = index
			return &cp
		}
		return err
	}

	return &SynthesisError{
		Code:    ErrorCodeSynthesisFailed,
		Message: "synthesis failed",
		Index:   index,
		Cause:   err,
	}
}
