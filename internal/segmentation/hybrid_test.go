package segmentation

import "testing"

func TestHybridFinalSentenceStableImmediately(t *testing.T) {
	p := newHybridPolicy()
	_, units := p.Consume("Hello world.", true, fixedNow)
	if len(units) != 1 {
		t.Fatalf("expected a final sentence to stabilize on first sight, got %d units", len(units))
	}
	if units[0].Text != "Hello world." {
		t.Errorf("unexpected unit text %q", units[0].Text)
	}
}

func TestHybridPartialNeedsRepeatedAppearance(t *testing.T) {
	p := newHybridPolicy()
	_, units := p.Consume("Hello", false, fixedNow)
	if len(units) != 0 {
		t.Fatalf("expected no unit on a single partial appearance, got %d", len(units))
	}
	_, units = p.Consume("Hello", false, fixedNow.Add(messageInterval))
	if len(units) != 1 {
		t.Fatalf("expected the second identical appearance to stabilize, got %d units", len(units))
	}
}

func TestHybridStableTextNotRepeatedOnceSpoken(t *testing.T) {
	p := newHybridPolicy()
	p.Consume("Hello world.", true, fixedNow)
	_, units := p.Consume("Hello world.", true, fixedNow)
	if len(units) != 0 {
		t.Errorf("expected already-spoken fingerprint not to recur, got %v", units)
	}
}

func TestHybridPhraseModeEngagesUnderSustainedRapidPartials(t *testing.T) {
	p := newHybridPolicy()
	now := fixedNow
	text := "word"
	for i := 0; i < 25; i++ {
		text += " word"
		_, _ = p.Consume(text, false, now)
		now = now.Add(messageInterval)
	}
	if !p.phraseMode {
		t.Fatal("expected phrase mode to engage after sustained sub-333ms partial arrivals")
	}
}

func TestHybridReset(t *testing.T) {
	p := newHybridPolicy()
	p.Consume("Hello world.", true, fixedNow)
	p.Reset()
	if len(p.spoken) != 0 || len(p.candidates) != 0 || p.phraseMode {
		t.Error("expected Reset to clear all accumulated state")
	}
	_, units := p.Consume("Hello world.", true, fixedNow)
	if len(units) != 1 {
		t.Errorf("expected the sentence to be voicable again after Reset, got %d units", len(units))
	}
}

func TestPhraseChunksSplitsOnCommas(t *testing.T) {
	chunks := phraseChunks("first part, second part, third part")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 comma-delimited chunks, got %d: %v", len(chunks), chunks)
	}
}

func TestPhraseChunksFallsBackToWindow(t *testing.T) {
	chunks := phraseChunks("one two three four five six seven eight nine ten")
	if len(chunks) != 2 {
		t.Fatalf("expected two 8-word windows for 10 words, got %d: %v", len(chunks), chunks)
	}
}
