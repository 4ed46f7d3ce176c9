//go:build nocgo

package audio

import "github.com/dgnsrekt/lukija/internal/speech"

// OtoOutput is unavailable without cgo.
type OtoOutput struct{}

// NewOtoOutput always fails in nocgo builds.
func NewOtoOutput(Config) (*OtoOutput, error) {
	return nil, ErrAudioUnavailable
}

// CreatePlayable always fails in nocgo builds.
func (*OtoOutput) CreatePlayable([]byte, string) (speech.Handle, error) {
	return nil, ErrAudioUnavailable
}
