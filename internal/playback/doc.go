// Package playback reads a document aloud one segment at a time.
//
// A Driver runs one session at a time. For each segment it publishes the
// now-playing index, asks the Prefetcher to synthesize the next few segments
// in the background, waits for the current segment's audio, and plays it to
// the end. Stop, Reset and a voice change cancel the session; a failure of
// the current segment ends it.
package playback
