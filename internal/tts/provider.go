// Package tts dispatches synthesis units to text-to-speech providers
// through per (session, language) FIFO queues with adaptive playback-rate
// control and primary/secondary fallback.
package tts

import "context"

// Provider is the request-mode contract: one utterance in, one finite
// audio stream out. voiceHint may be empty, meaning "use the provider's
// default voice for this language". rate is the adaptive playback-rate
// multiplier computed by the dispatcher (1.0 is normal speed).
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, language, voiceHint string, rate float64) (<-chan []byte, error)
}

// PersistentProvider is the optional persistent-mode contract: providers
// that support it expose a long-lived bidirectional channel per
// (session, language) instead of one request per utterance.
type PersistentProvider interface {
	Provider
	OpenPersistent(ctx context.Context, language, voiceHint string) (PersistentChannel, error)
}

// PersistentChannel is one open persistent-mode synthesis session. Text
// deltas are pushed as they become available; audio fragments arrive
// continuously on Audio until Close.
type PersistentChannel interface {
	SendText(ctx context.Context, delta string, rate float64) error
	Audio() <-chan []byte
	Close() error
}
