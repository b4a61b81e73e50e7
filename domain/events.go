package domain

import "encoding/json"

// EventType names one duplex transport event. Event names are wire values,
// not Go identifiers, so they stay lowercase-hyphenated per the transport
// contract.
type EventType string

const (
	EventSpeakerJoin    EventType = "speaker-join"
	EventTranscript     EventType = "transcript"
	EventListenerJoin   EventType = "listener-join"
	EventChangeLanguage EventType = "change-language"
	EventUpdateVoice    EventType = "update-voice"
	EventListenerLeave  EventType = "listener-leave"

	EventJoined               EventType = "joined"
	EventSessionStarted       EventType = "session-started"
	EventSessionNotFound      EventType = "session-not-found"
	EventSpeakerDisconnected  EventType = "speaker-disconnected"
	EventLanguageChanged      EventType = "language-changed"
	EventVoiceUpdated         EventType = "voice-updated"
	EventTranslationUpdate    EventType = "translation-update"
	EventAudioStream          EventType = "audio-stream"
	EventTranslationBroadcast EventType = "translation-broadcast"
	EventErr                  EventType = "error"
)

// Envelope is the wire frame for every message crossing the duplex
// transport: a string event name plus a JSON payload.
type Envelope struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SpeakerJoinPayload opens a session on a code.
type SpeakerJoinPayload struct {
	Code        string   `json:"code"`
	SourceLang  string   `json:"source_lang"`
	TargetLangs []string `json:"target_langs,omitempty"`
	SourceHint  string   `json:"source_hint,omitempty"`
}

// TranscriptPayload is one partial or final recognizer event from the
// speaker stream. Translations, if supplied, bypass the translator.
type TranscriptPayload struct {
	Code         string            `json:"code"`
	Text         string            `json:"text"`
	IsFinal      bool              `json:"is_final"`
	Timestamp    int64             `json:"timestamp,omitempty"`
	Offset       float64           `json:"offset,omitempty"`
	Duration     float64           `json:"duration,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
}

// ListenerJoinPayload subscribes a connection to a session and language.
type ListenerJoinPayload struct {
	Code  string `json:"code"`
	Lang  string `json:"lang"`
	Voice string `json:"voice,omitempty"`
}

// ChangeLanguagePayload switches a listener's target language.
type ChangeLanguagePayload struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// UpdateVoicePayload switches a listener's voice preference.
type UpdateVoicePayload struct {
	Code  string `json:"code"`
	Voice string `json:"voice"`
}

// ListenerLeavePayload removes a listener from a session explicitly.
type ListenerLeavePayload struct {
	Code string `json:"code"`
}

// JoinedPayload acknowledges a successful speaker-join or listener-join.
type JoinedPayload struct {
	OK                 bool     `json:"ok"`
	Code               string   `json:"code"`
	Mode               string   `json:"mode,omitempty"`
	AvailableLanguages []string `json:"available_languages,omitempty"`
	SourceLang         string   `json:"source_lang,omitempty"`
}

// SessionNotFoundPayload reports an unknown code on listener-join.
type SessionNotFoundPayload struct {
	Code string `json:"code"`
}

// SpeakerDisconnectedPayload notifies a session's members of teardown.
type SpeakerDisconnectedPayload struct {
	Code string `json:"code"`
}

// LanguageChangedPayload confirms a listener's language change.
type LanguageChangedPayload struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// VoiceUpdatedPayload confirms a listener's voice change.
type VoiceUpdatedPayload struct {
	Code  string `json:"code"`
	Voice string `json:"voice"`
}

// TranslationUpdatePayload is the passthrough display text for one
// language, sent for every accepted transcript event.
type TranslationUpdatePayload struct {
	Text          string `json:"text"`
	Language      string `json:"language"`
	IsFinal       bool   `json:"is_final"`
	PartialNumber int    `json:"partial_number,omitempty"`
}

// AudioStreamPayload carries one synthesized audio fragment inline,
// base64-encoded.
type AudioStreamPayload struct {
	Audio      string  `json:"audio"`
	Format     string  `json:"format"`
	Language   string  `json:"language"`
	Text       string  `json:"text,omitempty"`
	Sequence   uint64  `json:"sequence,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	IsStable   bool    `json:"isStable,omitempty"`
	IsFinal    bool    `json:"isFinal,omitempty"`
	Streaming  bool    `json:"streaming,omitempty"`
}

// TranslationBroadcastPayload is a diagnostic fan-out of the full
// translation set for one transcript event.
type TranslationBroadcastPayload struct {
	Original     string            `json:"original"`
	Translations map[string]string `json:"translations"`
	IsFinal      bool              `json:"is_final"`
	Timestamp    int64             `json:"timestamp"`
	LatencyMS    int64             `json:"latency"`
}

// ErrorPayload reports an input-validation or routing failure scoped to the
// offending connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode wraps a payload value into an Envelope ready for transport.
func Encode(event EventType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Payload: raw}, nil
}
