package segmentation

import "time"

// Unit is one synthesis unit (or, for the continuous policy, a text delta)
// ready for the TTS dispatcher.
type Unit struct {
	Text        string
	Fingerprint Fingerprint
	IsDelta     bool // set only by the continuous-streaming policy
}

// Policy is the shared capability set every segmentation variant
// implements: consume a transcript event, emit zero or more synthesis
// units, reset on teardown. A Policy instance is exclusively owned by one
// (session, language) pipeline; segmentation state must never be shared
// across pipelines or accessed concurrently.
type Policy interface {
	// Consume feeds one (already translated) transcript event — text is
	// always the full cumulative text for this (session, language), not a
	// delta — and returns the passthrough display text plus any synthesis
	// units newly made eligible for voicing.
	Consume(text string, isFinal bool, now time.Time) (display string, units []Unit)
	// Reset discards all accumulated state.
	Reset()
}

// Kind is the single enum-valued policy selector. It replaces the
// mutually-exclusive USE_* flag set with a type the compiler and config
// loader can exhaustively validate.
type Kind string

const (
	KindFinalOnly  Kind = "final_only"
	KindHybrid     Kind = "hybrid"
	KindConference Kind = "conference"
	KindNatural    Kind = "natural_phrase"
	KindUltraLow   Kind = "ultra_low_latency"
	KindContinuous Kind = "continuous"
)

// New constructs a fresh Policy instance of the requested kind. Exactly one
// Kind is active per deployment; unrecognized kinds fall back to
// Final-only, the conservative default.
func New(kind Kind) Policy {
	switch kind {
	case KindHybrid:
		return newHybridPolicy()
	case KindConference:
		return newConferencePolicy()
	case KindNatural:
		return newNaturalPhrasePolicy()
	case KindUltraLow:
		return newUltraLowLatencyPolicy()
	case KindContinuous:
		return newContinuousPolicy()
	default:
		return newFinalOnlyPolicy()
	}
}
