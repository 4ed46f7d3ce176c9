package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgnsrekt/lukija/internal/speech"
	"golang.org/x/text/unicode/norm"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// Abbreviations that never end a sentence.
var abbreviations = map[string]bool{
	"esim.": true, "mm.": true, "ns.": true, "ks.": true, "vrt.": true,
	"n.": true, "s.": true, "v.": true, "puh.": true, "os.": true,
	"huom.": true, "nk.": true, "ts.": true, "engl.": true, "lat.": true,
	"prof.": true, "dos.": true, "klo.": true, "kpl.": true, "t.": true,
}

// Abbreviations that close a list and may also close the sentence.
var listEnders = map[string]bool{
	"jne.": true, "yms.": true, "tms.": true, "ym.": true, "jms.": true,
}

const closers = `"'”’»)]`

// Split normalizes s to NFC and splits it into sentences. Blank lines always
// end a sentence. Segments without letters or digits are dropped.
func Split(s string) []speech.Segment {
	s = norm.NFC.String(s)

	var segments []speech.Segment
	for _, para := range paragraphBreak.Split(s, -1) {
		for _, sentence := range splitParagraph(strings.Fields(para)) {
			if !hasContent(sentence) {
				continue
			}
			segments = append(segments, speech.Segment{Index: len(segments), Text: sentence})
		}
	}
	return segments
}

func splitParagraph(words []string) []string {
	var (
		out     []string
		current []string
	)
	for i, w := range words {
		current = append(current, w)

		var next string
		if i+1 < len(words) {
			next = words[i+1]
		}
		if next == "" || endsSentence(w, next) {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
		}
	}
	return out
}

// endsSentence decides whether word closes a sentence given the word after it.
func endsSentence(word, next string) bool {
	core := strings.TrimRight(word, closers)
	if core == "" {
		return false
	}

	last, _ := utf8.DecodeLastRuneInString(core)
	switch last {
	case '!', '?', '…':
		return true
	case '.':
	default:
		return false
	}

	lower := strings.ToLower(strings.TrimLeft(core, `"'“‘«([`))
	if abbreviations[lower] {
		return false
	}
	startsUpper := startsWithUpper(next)
	if listEnders[lower] {
		return startsUpper
	}

	// "5. toukokuuta" is an ordinal, not a sentence end.
	if isDigits(strings.TrimSuffix(lower, ".")) && !startsUpper {
		return false
	}

	first, _ := utf8.DecodeRuneInString(strings.TrimLeft(next, `"'“‘«([`))
	return !unicode.IsLower(first)
}

func startsWithUpper(word string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimLeft(word, `"'“‘«([`))
	return unicode.IsUpper(r)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func hasContent(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
