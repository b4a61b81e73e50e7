package translator

import (
	"context"
	"testing"
)

func TestEchoTranslatorEchoesEveryTarget(t *testing.T) {
	tr := EchoTranslator{}
	out := tr.Translate(context.Background(), "hello", "en", []string{"es", "fr"})
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out["es"] != "hello" || out["fr"] != "hello" {
		t.Errorf("expected every target to echo the source text, got %v", out)
	}
}

func TestEchoTranslatorNoTargets(t *testing.T) {
	tr := EchoTranslator{}
	out := tr.Translate(context.Background(), "hello", "en", nil)
	if len(out) != 0 {
		t.Errorf("expected an empty map for no targets, got %v", out)
	}
}

func TestEchoTranslatorDetectLanguageIsNoop(t *testing.T) {
	tr := EchoTranslator{}
	lang, err := tr.DetectLanguage(context.Background(), "bonjour")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if lang != "" {
		t.Errorf("expected no detected language, got %q", lang)
	}
}
