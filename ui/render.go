package ui

import (
	"strings"

	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/muesli/reflow/wordwrap"
)

// renderDocument wraps the segments to width and highlights the one playing.
// Segments before it are dimmed. It also returns the line on which the
// highlighted segment starts, or 0 when nothing is playing.
func renderDocument(segments []speech.Segment, current, width int) (string, int) {
	var styled, plain strings.Builder
	line := 0

	for i, seg := range segments {
		if i > 0 {
			styled.WriteByte(' ')
			plain.WriteByte(' ')
		}

		switch {
		case i == current:
			line = lineOf(plain.String()+firstWord(seg.Text), width)
			styled.WriteString(styleWords(highlightStyle, seg.Text))
		case current >= 0 && i < current:
			styled.WriteString(styleWords(readStyle, seg.Text))
		default:
			styled.WriteString(seg.Text)
		}
		plain.WriteString(seg.Text)
	}

	if width <= 0 {
		return styled.String(), 0
	}
	return wordwrap.String(styled.String(), width), line
}

// styleWords styles each word on its own so wrapping never splits a styled
// run across lines.
func styleWords(style func(...string) string, s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = style(w)
	}
	return strings.Join(words, " ")
}

func lineOf(prefix string, width int) int {
	if width <= 0 {
		return 0
	}
	return strings.Count(wordwrap.String(prefix, width), "\n")
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
