// Package cache holds synthesized audio for the loaded document, keyed by
// segment index. It tracks which indices have a synthesis request in flight so
// that concurrent callers share one request, and it uses a generation counter
// to reject results that arrive after the cache was cleared.
package cache
