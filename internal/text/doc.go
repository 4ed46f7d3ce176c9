// Package text turns Finnish input into sentence segments.
package text
