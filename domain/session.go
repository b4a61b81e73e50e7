package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StaleAfter is how long a session with no listeners is kept around before
// the reaper deletes it.
const StaleAfter = 30 * time.Minute

// Session is a live relay session keyed by a 4-character code. Exactly one
// speaker connection owns a session at a time; a session is destroyed with
// the speaker's disconnect.
type Session struct {
	mu sync.RWMutex

	Code        string
	SpeakerConn uuid.UUID
	SourceLang  string
	TargetLangs []string // declared target languages; empty means "listener-driven"
	CreatedAt   time.Time

	lastActiveAt time.Time
	listeners    map[uuid.UUID]*Listener

	UtteranceCount    int
	CumulativeLatency time.Duration
	ErrorCount        int
}

// defaultVoiceByLanguage is the language-indexed fallback table consulted
// when a language's listeners disagree on a voice preference. Unknown
// languages fall back to the English default.
var defaultVoiceByLanguage = map[string]string{
	"en": "en-US-default",
	"es": "es-ES-default",
	"fr": "fr-FR-default",
	"de": "de-DE-default",
	"ja": "ja-JP-default",
	"zh": "zh-CN-default",
	"pt": "pt-BR-default",
	"ru": "ru-RU-default",
}

func defaultVoiceFor(lang string) string {
	if v, ok := defaultVoiceByLanguage[lang]; ok {
		return v
	}
	return defaultVoiceByLanguage["en"]
}

// NewSession creates a session for a freshly joined speaker.
func NewSession(code string, speakerConn uuid.UUID, sourceLang string, targetLangs []string) *Session {
	now := time.Now()
	return &Session{
		Code:         code,
		SpeakerConn:  speakerConn,
		SourceLang:   sourceLang,
		TargetLangs:  targetLangs,
		CreatedAt:    now,
		lastActiveAt: now,
		listeners:    make(map[uuid.UUID]*Listener),
	}
}

// Touch records activity, keeping the session from being reaped as stale.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

// AddListener registers a listener under the session, replacing any prior
// entry for the same connection.
func (s *Session) AddListener(l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[l.ConnID] = l
	s.lastActiveAt = time.Now()
}

// RemoveListener drops a listener; a no-op if it was never present.
func (s *Session) RemoveListener(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, connID)
}

// Listener returns the listener for a connection, if any.
func (s *Session) Listener(connID uuid.UUID) (*Listener, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listeners[connID]
	return l, ok
}

// SetListenerLanguage updates a listener's target language in place.
func (s *Session) SetListenerLanguage(connID uuid.UUID, lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listeners[connID]
	if !ok {
		return false
	}
	l.Lang = lang
	return true
}

// SetListenerVoice updates one listener's own voice preference. It does not
// by itself decide the language's effective voice: VoiceForLanguage
// recomputes that from the full listener set on every call.
func (s *Session) SetListenerVoice(connID uuid.UUID, voice string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listeners[connID]
	if !ok {
		return false
	}
	l.Voice = voice
	return true
}

// VoiceForLanguage returns the voice hint to use for a language: the shared
// preference if every current listener of that language agrees on one,
// otherwise a deterministic language-indexed default.
func (s *Session) VoiceForLanguage(lang string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var unanimous string
	for _, l := range s.listeners {
		if l.Lang != lang || l.Voice == "" {
			continue
		}
		if unanimous == "" {
			unanimous = l.Voice
			continue
		}
		if unanimous != l.Voice {
			return defaultVoiceFor(lang)
		}
	}
	if unanimous != "" {
		return unanimous
	}
	return defaultVoiceFor(lang)
}

// Listeners returns a snapshot slice, safe to range over without holding
// the session lock.
func (s *Session) Listeners() []*Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

// ListenerCount reports how many listeners are currently attached.
func (s *Session) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// EffectiveTargets returns the declared target languages when non-empty,
// otherwise the distinct union of current listener languages.
func (s *Session) EffectiveTargets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.TargetLangs) > 0 {
		out := make([]string, len(s.TargetLangs))
		copy(out, s.TargetLangs)
		return out
	}
	seen := make(map[string]struct{}, len(s.listeners))
	out := make([]string, 0, len(s.listeners))
	for _, l := range s.listeners {
		if _, ok := seen[l.Lang]; ok {
			continue
		}
		seen[l.Lang] = struct{}{}
		out = append(out, l.Lang)
	}
	return out
}

// ListenersForLanguage returns the connection ids currently subscribed to a
// language, used to route text-update and audio-stream events.
func (s *Session) ListenersForLanguage(lang string) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for id, l := range s.listeners {
		if l.Lang == lang {
			out = append(out, id)
		}
	}
	return out
}

// IsStale reports whether the session has had no listeners for at least
// StaleAfter since it was created or last active.
func (s *Session) IsStale(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.listeners) > 0 {
		return false
	}
	return now.Sub(s.lastActiveAt) >= StaleAfter
}

// RecordUtterance adds one utterance and its processing latency to the
// per-session metrics. The hub calls it once per final transcript event,
// regardless of language.
func (s *Session) RecordUtterance(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UtteranceCount++
	s.CumulativeLatency += latency
}

// RecordError increments the session's error tally.
func (s *Session) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorCount++
}
