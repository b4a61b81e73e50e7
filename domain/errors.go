package domain

import "errors"

// Sentinel errors that callers branch on. Everything else is wrapped with
// fmt.Errorf at the boundary that produced it.
var (
	ErrInvalidCode      = errors.New("session code must be exactly 4 characters")
	ErrSessionNotFound  = errors.New("session not found")
	ErrQueueClosed      = errors.New("tts queue is closed")
	ErrProvidersExhausted = errors.New("all tts providers exhausted")
)
