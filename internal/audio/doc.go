// Package audio implements speech.Output. It decodes WAV and raw L16 payloads
// into the device format and plays them through oto/v3. MockOutput simulates
// playback for tests.
package audio
