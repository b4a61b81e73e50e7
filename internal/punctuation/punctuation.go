// Package punctuation is a heuristic helper that adds terminal punctuation
// and comma pauses to an otherwise unpunctuated transcript fragment using
// simple lexical cues. It makes no claim to grammatical correctness; it
// only needs to be good enough that the segmentation engine's sentence and
// phrase boundaries line up with how the fragment would actually be read.
package punctuation

import (
	"strings"
	"unicode/utf8"
)

var clauseConjunctions = map[string]struct{}{
	"however": {}, "although": {}, "because": {}, "while": {}, "after": {}, "before": {}, "but": {},
}

var fillerPhrases = []string{"you know", "i think", "vous savez", "euh", "hmm"}

var whWords = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"is": {}, "are": {}, "do": {}, "does": {}, "can": {}, "could": {}, "would": {}, "will": {},
}

var exclamationWords = map[string]struct{}{
	"wow": {}, "amazing": {}, "great": {}, "fantastic": {}, "incredible": {}, "no": {}, "yes": {},
}

var closerWords = map[string]struct{}{"today": {}, "soon": {}, "now": {}, "tonight": {}, "tomorrow": {}}

var subjects = map[string]struct{}{"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {}, "it": {}}

var verbs = map[string]struct{}{
	"am": {}, "is": {}, "are": {}, "was": {}, "were": {}, "have": {}, "has": {},
	"will": {}, "do": {}, "does": {}, "go": {}, "went": {}, "think": {}, "want": {}, "like": {}, "need": {},
}

// Apply inserts comma pauses and, where missing, terminal punctuation.
// sessionKey scopes any future per-speaker tuning; the heuristic itself is
// stateless.
func Apply(sessionKey, text string, isFinal bool) string {
	_ = sessionKey
	text = insertClauseCommas(text)
	text = insertFillerComma(text)
	text = insertTerminal(text, isFinal)
	return text
}

func insertClauseCommas(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 && !hasTrailingPunct(out[i-1]) {
			lower := strings.ToLower(strings.Trim(w, ".,;:!?"))
			_, isConj := clauseConjunctions[lower]
			if lower == "and" && i >= 7 {
				isConj = true
			}
			if isConj {
				out[i-1] = out[i-1] + ","
			}
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func hasTrailingPunct(w string) bool {
	if w == "" {
		return false
	}
	switch w[len(w)-1] {
	case ',', '.', '!', '?', ';', ':':
		return true
	}
	return false
}

// insertFillerComma adds a trailing comma after the first filler phrase
// found, unless one is already present.
func insertFillerComma(text string) string {
	lower := strings.ToLower(text)
	for _, filler := range fillerPhrases {
		idx := strings.Index(lower, filler)
		if idx == -1 {
			continue
		}
		end := idx + len(filler)
		if end >= len(text) {
			continue
		}
		next := text[end]
		if next == ',' || next == '.' || next == '!' || next == '?' || next == ';' {
			continue
		}
		return text[:end] + "," + text[end:]
	}
	return text
}

func insertTerminal(text string, isFinal bool) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	lastRune, _ := utf8.DecodeLastRuneInString(trimmed)
	switch lastRune {
	case '.', '!', '?', '؟', '。', '！':
		return text
	}

	words := strings.Fields(trimmed)
	if isFinal || looksComplete(words) {
		return trimmed + terminalFor(words)
	}
	return text
}

func terminalFor(words []string) string {
	if len(words) == 0 {
		return "."
	}
	first := strings.ToLower(strings.Trim(words[0], ".,;:!?"))
	if _, ok := whWords[first]; ok {
		return "?"
	}
	for _, w := range words {
		lw := strings.ToLower(strings.Trim(w, ".,;:!?"))
		if _, ok := exclamationWords[lw]; ok {
			return "!"
		}
	}
	return "."
}

func looksComplete(words []string) bool {
	n := len(words)
	switch {
	case n >= 7:
		return true
	case n >= 6 && hasSubjectVerb(words):
		return true
	case n >= 4:
		last := strings.ToLower(strings.Trim(words[n-1], ".,;:!?"))
		_, ok := closerWords[last]
		return ok
	}
	return false
}

func hasSubjectVerb(words []string) bool {
	hasSubj, hasVerb := false, false
	for _, w := range words {
		lw := strings.ToLower(strings.Trim(w, ".,;:!?"))
		if _, ok := subjects[lw]; ok {
			hasSubj = true
		}
		if _, ok := verbs[lw]; ok {
			hasVerb = true
		}
	}
	return hasSubj && hasVerb
}
