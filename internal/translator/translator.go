// Package translator provides the narrow interface the pipeline depends on
// for turning one speaker's text into each listener-requested language.
package translator

import "context"

// Translator turns text into a translation for every requested target.
// Translate never returns an error to the caller: on timeout or provider
// failure, the source text is echoed back for each target per the fallback
// contract, and the caller proceeds with no special-casing. DetectLanguage,
// an auxiliary call, does report errors.
type Translator interface {
	Translate(ctx context.Context, text, source string, targets []string) map[string]string
	DetectLanguage(ctx context.Context, text string) (string, error)
}
