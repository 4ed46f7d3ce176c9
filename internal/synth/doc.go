// Package synth provides speech.Synthesizer implementations: the Google Cloud
// Text-to-Speech REST API, an external command such as espeak-ng or piper,
// and a mock that produces silence.
package synth
