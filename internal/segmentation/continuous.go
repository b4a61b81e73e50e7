package segmentation

import "time"

const continuousMinDelta = 3

// continuousPolicy carves no utterances at all. It tracks only a rune
// cursor into the cumulative text and forwards the new suffix verbatim
// once it reaches a minimum size or the recognizer commits a final,
// leaving all prosody to the TTS provider's persistent channel.
type continuousPolicy struct {
	cursor int
}

func newContinuousPolicy() *continuousPolicy {
	return &continuousPolicy{}
}

func (p *continuousPolicy) Consume(text string, isFinal bool, _ time.Time) (string, []Unit) {
	runes := []rune(text)
	if len(runes) < p.cursor {
		p.cursor = 0
	}
	delta := runes[p.cursor:]
	if len(delta) == 0 {
		return text, nil
	}
	if len(delta) < continuousMinDelta && !isFinal {
		return text, nil
	}
	p.cursor = len(runes)
	return text, []Unit{{Text: string(delta), IsDelta: true}}
}

func (p *continuousPolicy) Reset() {
	p.cursor = 0
}
