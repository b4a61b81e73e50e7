package segmentation

import "testing"

func TestNaturalPhraseWithholdsDuringInitialDelay(t *testing.T) {
	p := newNaturalPhrasePolicy()
	_, units := p.Consume("Hello everyone welcome to the meeting today", false, fixedNow)
	if len(units) != 0 {
		t.Errorf("expected no chunk before the initial delay elapses, got %v", units)
	}
}

func TestNaturalPhraseEmitsChunkOnceIdealSizeReached(t *testing.T) {
	p := newNaturalPhrasePolicy()
	p.Consume("Hello", false, fixedNow)
	_, units := p.Consume(
		"Hello everyone welcome to today's meeting for the quarter",
		false, fixedNow.Add(naturalInitialDelay+10*messageInterval),
	)
	if len(units) == 0 {
		t.Fatal("expected a chunk once enough words accumulated past the initial delay")
	}
	if units[0].Fingerprint != FingerprintOf(units[0].Text) {
		t.Errorf("unit fingerprint should match its own text")
	}
}

func TestNaturalPhraseFlushesRemainderOnFinal(t *testing.T) {
	p := newNaturalPhrasePolicy()
	p.Consume("Hello there", false, fixedNow)
	_, units := p.Consume("Hello there friend", true, fixedNow.Add(messageInterval))
	if len(units) != 1 {
		t.Fatalf("expected the final call to flush whatever remains, got %d units", len(units))
	}
	if units[0].Text != "Hello there friend" {
		t.Errorf("unexpected flushed text %q", units[0].Text)
	}
}

func TestNaturalPhraseResetsPendingOnRevision(t *testing.T) {
	p := newNaturalPhrasePolicy()
	p.Consume("one two three four five six seven eight", false, fixedNow)
	p.absorb("one two")
	if p.processedWordCount != 2 || len(p.pending) != 2 {
		t.Errorf("expected a shrinking cumulative text to reset the pending cursor, got count=%d pending=%v", p.processedWordCount, p.pending)
	}
}

func TestNaturalPhraseReset(t *testing.T) {
	p := newNaturalPhrasePolicy()
	p.Consume("Hello there", false, fixedNow)
	p.Reset()
	if len(p.pending) != 0 || p.processedWordCount != 0 || !p.isFirstChunk || len(p.spoken) != 0 {
		t.Error("expected Reset to clear all accumulated state")
	}
}

func TestNaturalPhraseDoesNotReemitAlreadySpokenTextAfterRevisionShrinksAndRegrows(t *testing.T) {
	p := newNaturalPhrasePolicy()
	text := "Hello everyone welcome to today's meeting for the quarter"
	p.Consume("Hello", false, fixedNow)
	_, first := p.Consume(text, false, fixedNow.Add(naturalInitialDelay+10*messageInterval))
	if len(first) == 0 {
		t.Fatal("expected a chunk once enough words accumulated past the initial delay")
	}

	// A revision shrinks the cumulative text all the way back to exactly
	// where it was before the first chunk was absorbed, then regrows to the
	// same text, reconstructing an identical pending buffer.
	p.Consume("Hello", false, fixedNow.Add(naturalInitialDelay+11*messageInterval))
	_, units := p.Consume(text, false, fixedNow.Add(naturalInitialDelay+12*messageInterval))
	for _, u := range units {
		if u.Fingerprint == first[0].Fingerprint {
			t.Errorf("expected the already-spoken fingerprint not to recur, got %v", units)
		}
	}
}

func TestEndsWithTerminal(t *testing.T) {
	if !endsWithTerminal("hello.") {
		t.Error("expected trailing period to count as terminal")
	}
	if endsWithTerminal("hello") {
		t.Error("did not expect a bare word to be terminal")
	}
	if endsWithTerminal("") {
		t.Error("empty string should not be terminal")
	}
}
