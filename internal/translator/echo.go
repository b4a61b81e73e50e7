package translator

import "context"

// EchoTranslator is the degenerate Translator that echoes the source text
// for every target language. It is exactly the behavior the provider-backed
// translator falls back to on error, pulled out as its own implementation
// so local development and tests do not require network access.
type EchoTranslator struct{}

func (EchoTranslator) Translate(_ context.Context, text, _ string, targets []string) map[string]string {
	out := make(map[string]string, len(targets))
	for _, lang := range targets {
		out[lang] = text
	}
	return out
}

func (EchoTranslator) DetectLanguage(_ context.Context, _ string) (string, error) {
	return "", nil
}
