package punctuation

import "testing"

func TestApplyLeavesAlreadyPunctuatedTextAlone(t *testing.T) {
	in := "Hello there."
	if got := Apply("s1", in, false); got != in {
		t.Errorf("Apply(%q) = %q, want unchanged", in, got)
	}
}

func TestApplyAddsPeriodOnFinal(t *testing.T) {
	got := Apply("s1", "the weather is nice", true)
	want := "the weather is nice."
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyDetectsQuestionFromWhWord(t *testing.T) {
	got := Apply("s1", "where are we going", true)
	if got != "where are we going?" {
		t.Errorf("Apply = %q, want a question mark ending", got)
	}
}

func TestApplyDetectsExclamationWord(t *testing.T) {
	got := Apply("s1", "that is amazing work everyone", true)
	if got != "that is amazing work everyone!" {
		t.Errorf("Apply = %q, want an exclamation ending", got)
	}
}

func TestApplyWithholdsTerminalOnShortPartial(t *testing.T) {
	got := Apply("s1", "so then we", false)
	if got != "so then we" {
		t.Errorf("Apply = %q, expected a short partial to be left unterminated", got)
	}
}

func TestApplyInsertsCommaBeforeClauseConjunction(t *testing.T) {
	got := Apply("s1", "we left early because it was raining", false)
	want := "we left early, because it was raining."
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyDoesNotDoubleCommaExistingPunctuation(t *testing.T) {
	got := Apply("s1", "we left early, because it was raining", false)
	want := "we left early, because it was raining."
	if got != want {
		t.Errorf("Apply = %q, want %q (no duplicated comma)", got, want)
	}
}

func TestApplyInsertsCommaAfterFillerPhrase(t *testing.T) {
	got := Apply("s1", "you know this is important", false)
	want := "you know, this is important"
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyTreatsShortClosingPhraseAsComplete(t *testing.T) {
	got := Apply("s1", "let's wrap up today", false)
	if got != "let's wrap up today." {
		t.Errorf("Apply = %q, want a terminal period for a closing-word phrase", got)
	}
}

func TestApplyTreatsSubjectVerbSixWordsAsComplete(t *testing.T) {
	got := Apply("s1", "i think we should go now", false)
	want := "i think, we should go now."
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}
