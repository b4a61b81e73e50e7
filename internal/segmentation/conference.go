package segmentation

import "time"

// conferenceUtterance is a previously emitted sentence retained for the
// prefix and similarity checks later sentences must pass.
type conferenceUtterance struct {
	normalized string
	prefix5    string
	wordCount  int
}

// conferencePolicy operates only on finals, carving full sentences and
// rejecting near-duplicates by fingerprint, shared five-word prefix, and
// token-set similarity. It favors precision over latency in multi-speaker
// settings where repeated re-statements are common.
type conferencePolicy struct {
	spokenFP map[Fingerprint]struct{}
	history  []conferenceUtterance
}

func newConferencePolicy() *conferencePolicy {
	return &conferencePolicy{spokenFP: make(map[Fingerprint]struct{})}
}

const conferenceMinWords = 5

func (p *conferencePolicy) Consume(text string, isFinal bool, _ time.Time) (string, []Unit) {
	if !isFinal {
		return text, nil
	}
	complete, trailing := splitSentences(text)
	if trailing != "" {
		complete = append(complete, trailing)
	}

	var units []Unit
	for _, sentence := range complete {
		if wordCount(sentence) < conferenceMinWords {
			continue
		}
		norm := normalize(sentence)
		fp := FingerprintOf(sentence)
		if _, seen := p.spokenFP[fp]; seen {
			continue
		}
		if !p.passesPrefixCheck(norm) || p.tooSimilar(norm) {
			continue
		}

		p.spokenFP[fp] = struct{}{}
		p.history = append(p.history, conferenceUtterance{
			normalized: norm,
			prefix5:    firstNWords(norm, 5),
			wordCount:  len(tokens(norm)),
		})
		units = append(units, Unit{Text: sentence, Fingerprint: fp})
	}
	return text, units
}

// passesPrefixCheck requires a sentence sharing a prior five-word prefix to
// be more than 1.2x the length of the utterance it would otherwise repeat,
// i.e. it must be a genuine extension, not a near-restatement.
func (p *conferencePolicy) passesPrefixCheck(norm string) bool {
	prefix := firstNWords(norm, 5)
	newLen := len(tokens(norm))
	for _, h := range p.history {
		if h.prefix5 == prefix && float64(newLen) <= 1.2*float64(h.wordCount) {
			return false
		}
	}
	return true
}

func (p *conferencePolicy) tooSimilar(norm string) bool {
	for _, h := range p.history {
		if jaccard(norm, h.normalized) >= 0.85 {
			return true
		}
	}
	return false
}

func (p *conferencePolicy) Reset() {
	p.spokenFP = make(map[Fingerprint]struct{})
	p.history = nil
}
