// Package segmentation converts a stream of (text, is_final) transcript
// events for one (session, language) pipeline into a stream of synthesis
// units, under one of several interchangeable stability policies.
package segmentation

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint is a stable hash of a normalized utterance, used to enforce
// at-most-once voicing per (session, language).
type Fingerprint uint64

// normalize applies Unicode NFD, strips combining marks, lowercases,
// collapses whitespace, and drops non-alphanumerics, yielding the
// comparison form used for both fingerprinting and similarity checks.
func normalize(text string) string {
	decomposed := norm.NFD.String(text)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastWasSpace := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark, dropped after decomposition
		}
		r = unicode.ToLower(r)
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		case unicode.IsSpace(r):
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		default:
			// punctuation and symbols are dropped for comparison purposes
		}
	}
	return strings.TrimSpace(b.String())
}

// FingerprintOf computes the at-most-once-voicing key for an utterance.
func FingerprintOf(text string) Fingerprint {
	return Fingerprint(xxhash.Sum64String(normalize(text)))
}

// tokens splits a normalized string into its word tokens.
func tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// wordCount reports the number of words in raw (unnormalized) text, used by
// policies that gate on minimum phrase length.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

// jaccard computes token-set Jaccard similarity between two normalized
// strings.
func jaccard(a, b string) float64 {
	setA := toSet(tokens(a))
	setB := toSet(tokens(b))
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// containsEitherWay reports whether one normalized string contains the
// other as a substring, in either direction.
func containsEitherWay(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// firstNWords returns the first n whitespace-delimited words of a
// normalized string, joined by single spaces.
func firstNWords(normalized string, n int) string {
	toks := tokens(normalized)
	if len(toks) > n {
		toks = toks[:n]
	}
	return strings.Join(toks, " ")
}
