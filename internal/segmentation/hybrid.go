package segmentation

import (
	"strings"
	"time"
)

// hybridCandidate is one sentence-shaped fragment under consideration for
// synthesis. Candidates are keyed by fingerprint so that a partial and the
// final, punctuated form of the same sentence coalesce into one entry.
type hybridCandidate struct {
	text            string
	firstSeen       time.Time
	lastSeen        time.Time
	appearanceCount int
}

// hybridPolicy drives both partials and finals through a stability table:
// a candidate is voiced once it has been seen enough times, arrives with a
// final, or has survived long enough with at least two appearances. A
// phrase-mode sub-state lowers the bar further when partials are arriving
// fast enough to suggest the recognizer is chunking aggressively.
type hybridPolicy struct {
	candidates map[Fingerprint]*hybridCandidate
	spoken     map[Fingerprint]struct{}

	phraseMode    bool
	highRateSince time.Time
	lastPartialAt time.Time
}

func newHybridPolicy() *hybridPolicy {
	return &hybridPolicy{
		candidates: make(map[Fingerprint]*hybridCandidate),
		spoken:     make(map[Fingerprint]struct{}),
	}
}

func (p *hybridPolicy) Consume(text string, isFinal bool, now time.Time) (string, []Unit) {
	p.updatePhraseMode(isFinal, now)
	threshold, timeWindow := p.thresholds()

	candidateTexts := p.extractCandidates(text, isFinal)
	seenThisCall := make(map[Fingerprint]struct{}, len(candidateTexts))

	var units []Unit
	for _, raw := range candidateTexts {
		norm := normalize(raw)
		if norm == "" {
			continue
		}
		fp := FingerprintOf(raw)
		seenThisCall[fp] = struct{}{}
		if _, already := p.spoken[fp]; already {
			continue
		}

		c, ok := p.candidates[fp]
		if !ok {
			c = &hybridCandidate{firstSeen: now}
			p.candidates[fp] = c
		}
		c.text = raw
		c.lastSeen = now
		c.appearanceCount++

		stable := isFinal && c.appearanceCount >= 1
		if !stable && c.appearanceCount >= threshold {
			stable = true
		}
		if !stable && now.Sub(c.firstSeen) > timeWindow && c.appearanceCount >= 2 {
			stable = true
		}
		if stable {
			p.spoken[fp] = struct{}{}
			units = append(units, Unit{Text: c.text, Fingerprint: fp})
			delete(p.candidates, fp)
		}
	}

	for fp, c := range p.candidates {
		if _, present := seenThisCall[fp]; present {
			continue
		}
		if now.Sub(c.lastSeen) > time.Second && c.appearanceCount < threshold {
			delete(p.candidates, fp)
		}
	}

	return text, units
}

// extractCandidates splits the cumulative text into complete sentences plus
// whatever trailing fragment follows the last terminator. On a final, the
// trailing fragment is flushed as a candidate in its own right; on a
// partial in phrase mode it is further split at comma/pause boundaries.
func (p *hybridPolicy) extractCandidates(text string, isFinal bool) []string {
	complete, trailing := splitSentences(text)
	out := append([]string{}, complete...)
	if trailing == "" {
		return out
	}
	switch {
	case isFinal:
		out = append(out, trailing)
	case p.phraseMode:
		out = append(out, phraseChunks(trailing)...)
	default:
		out = append(out, trailing)
	}
	return out
}

func (p *hybridPolicy) thresholds() (int, time.Duration) {
	if p.phraseMode {
		return 1, 250 * time.Millisecond
	}
	return 2, 2 * time.Second
}

// updatePhraseMode tracks the partial arrival rate: phrase mode engages
// once partials have sustained faster than 3/s for 2s, and disengages
// on a pause longer than 900ms.
func (p *hybridPolicy) updatePhraseMode(isFinal bool, now time.Time) {
	if isFinal {
		return
	}
	defer func() { p.lastPartialAt = now }()

	if p.lastPartialAt.IsZero() {
		return
	}
	gap := now.Sub(p.lastPartialAt)
	if gap > 900*time.Millisecond {
		p.phraseMode = false
		p.highRateSince = time.Time{}
		return
	}
	if gap <= 0 {
		return
	}
	rate := float64(time.Second) / float64(gap)
	if rate <= 3.0 {
		p.highRateSince = time.Time{}
		return
	}
	if p.highRateSince.IsZero() {
		p.highRateSince = now
	}
	if now.Sub(p.highRateSince) >= 2*time.Second {
		p.phraseMode = true
	}
}

// phraseChunks splits a trailing fragment on commas when present, falling
// back to fixed 8-word windows otherwise.
func phraseChunks(trailing string) []string {
	if trailing == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(trailing, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 1 {
		return out
	}

	words := strings.Fields(trailing)
	out = out[:0]
	const window = 8
	for i := 0; i < len(words); i += window {
		end := i + window
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

func (p *hybridPolicy) Reset() {
	p.candidates = make(map[Fingerprint]*hybridCandidate)
	p.spoken = make(map[Fingerprint]struct{})
	p.phraseMode = false
	p.highRateSince = time.Time{}
	p.lastPartialAt = time.Time{}
}
