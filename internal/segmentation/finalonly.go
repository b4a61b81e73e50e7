package segmentation

import "time"

// finalOnlyPolicy voices only complete, final sentences. It maximizes
// quality and minimizes repetition at the cost of latency: nothing is
// spoken until the recognizer commits a final.
type finalOnlyPolicy struct {
	spokenNormalized []string
	spokenFP         map[Fingerprint]struct{}
}

func newFinalOnlyPolicy() *finalOnlyPolicy {
	return &finalOnlyPolicy{spokenFP: make(map[Fingerprint]struct{})}
}

func (p *finalOnlyPolicy) Consume(text string, isFinal bool, _ time.Time) (string, []Unit) {
	if !isFinal {
		return text, nil
	}
	complete, trailing := splitSentences(text)
	if trailing != "" {
		complete = append(complete, trailing)
	}

	var units []Unit
	for _, sentence := range complete {
		if wordCount(sentence) < 3 {
			continue
		}
		norm := normalize(sentence)
		if p.isDuplicate(norm) {
			continue
		}
		fp := FingerprintOf(sentence)
		if _, seen := p.spokenFP[fp]; seen {
			continue
		}
		p.spokenFP[fp] = struct{}{}
		p.spokenNormalized = append(p.spokenNormalized, norm)
		units = append(units, Unit{Text: sentence, Fingerprint: fp})
	}
	return text, units
}

// isDuplicate applies exact equality, bidirectional substring containment,
// and token-set Jaccard similarity against everything already spoken.
func (p *finalOnlyPolicy) isDuplicate(norm string) bool {
	for _, prior := range p.spokenNormalized {
		if norm == prior || containsEitherWay(norm, prior) || jaccard(norm, prior) >= 0.85 {
			return true
		}
	}
	return false
}

func (p *finalOnlyPolicy) Reset() {
	p.spokenNormalized = nil
	p.spokenFP = make(map[Fingerprint]struct{})
}
