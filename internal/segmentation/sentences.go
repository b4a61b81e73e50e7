package segmentation

import (
	"strings"
	"unicode"
)

// terminalSet is the set of sentence-terminating runes recognized across
// languages, including full-width CJK and Arabic punctuation.
var terminalSet = map[rune]struct{}{
	'.': {}, '!': {}, '?': {}, '؟': {}, '。': {}, '！': {},
}

// abbreviations must not be treated as sentence boundaries even though they
// end in a period.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "inc": {},
	"u.s": {}, "e.g": {}, "i.e": {}, "etc": {}, "vs": {}, "st": {}, "jr": {}, "sr": {},
}

// splitSentences scans text for terminal punctuation, folding known
// abbreviations back into the sentence they appear in, and returns the
// complete sentences found plus any unterminated trailing text.
func splitSentences(text string) (complete []string, trailing string) {
	var buf strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		buf.WriteRune(r)
		if _, terminal := terminalSet[r]; !terminal {
			continue
		}
		// A period followed directly by a letter or digit sits inside a token
		// ("U.S.", "e.g.", "3.5"), not at a sentence boundary.
		if r == '.' && i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1])) {
			continue
		}
		if isAbbreviation(buf.String()) {
			continue
		}
		if sentence := strings.TrimSpace(buf.String()); sentence != "" {
			complete = append(complete, sentence)
		}
		buf.Reset()
	}
	trailing = strings.TrimSpace(buf.String())
	return complete, trailing
}

func isAbbreviation(sentenceSoFar string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(sentenceSoFar), ".!?؟。！")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,;:"))
	_, ok := abbreviations[last]
	return ok
}
