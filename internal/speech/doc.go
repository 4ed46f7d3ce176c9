// Package speech defines the shared vocabulary of the read-aloud engine:
// segments, synthesized audio, and the contracts for synthesis backends and
// audio outputs.
package speech
