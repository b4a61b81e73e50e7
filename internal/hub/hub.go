// Package hub routes one speaker's transcript stream to every listener
// subscribed to a session, fanning translated text and synthesized audio
// out per target language.
package hub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/confrelay/relay/domain"
	"github.com/confrelay/relay/internal/metrics"
	"github.com/confrelay/relay/internal/punctuation"
	"github.com/confrelay/relay/internal/segmentation"
	"github.com/confrelay/relay/internal/translator"
	"github.com/confrelay/relay/internal/tts"
)

// reapInterval is how often stale sessions are swept.
const reapInterval = 5 * time.Minute

// Hub owns every live session and the per (session, language) segmentation
// state feeding the TTS dispatcher.
type Hub struct {
	logger      *zap.Logger
	translator  translator.Translator
	dispatcher  *tts.Dispatcher
	metrics     *metrics.Recorder
	upgrader    websocket.Upgrader
	segKind     segmentation.Kind

	mu       sync.RWMutex
	sessions map[string]*domain.Session
	clients  map[uuid.UUID]*Client

	pipeMu    sync.Mutex
	pipelines map[string]segmentation.Policy // key: code|lang

	persistMu  sync.Mutex
	persistent map[string]*tts.PersistentSession // key: code|lang

	register   chan *Client
	unregister chan *Client
}

// New builds a Hub using the given segmentation policy for every new
// (session, language) pipeline. Call Run in its own goroutine to start the
// event loop and stale-session reaper.
func New(tr translator.Translator, dispatcher *tts.Dispatcher, rec *metrics.Recorder, segKind segmentation.Kind, logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		translator: tr,
		dispatcher: dispatcher,
		metrics:    rec,
		segKind:    segKind,
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(*http.Request) bool { return true }},
		sessions:   make(map[string]*domain.Session),
		clients:    make(map[uuid.UUID]*Client),
		pipelines:  make(map[string]segmentation.Policy),
		persistent: make(map[string]*tts.PersistentSession),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives client (un)registration and the stale-session reaper until ctx
// is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			h.mu.Unlock()
			h.metrics.ConnectionOpened()
		case c := <-h.unregister:
			h.onDisconnect(c)
			h.metrics.ConnectionClosed()
		case <-ticker.C:
			h.reapStale()
		}
	}
}

// SegmentationKind reports the segmentation policy this hub's pipelines are
// built with, surfaced by the control plane's health check.
func (h *Hub) SegmentationKind() segmentation.Kind {
	return h.segKind
}

// ServeWS upgrades an HTTP request to a websocket connection and starts its
// client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn)
	h.register <- c
	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) handleEvent(c *Client, env domain.Envelope) {
	switch env.Event {
	case domain.EventSpeakerJoin:
		h.handleSpeakerJoin(c, env.Payload)
	case domain.EventTranscript:
		h.handleTranscript(c, env.Payload)
	case domain.EventListenerJoin:
		h.handleListenerJoin(c, env.Payload)
	case domain.EventChangeLanguage:
		h.handleChangeLanguage(c, env.Payload)
	case domain.EventUpdateVoice:
		h.handleUpdateVoice(c, env.Payload)
	case domain.EventListenerLeave:
		h.handleListenerLeave(c)
	default:
		c.sendError("unknown event: " + string(env.Event))
	}
}

func (h *Hub) handleSpeakerJoin(c *Client, raw json.RawMessage) {
	var p domain.SpeakerJoinPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("malformed speaker-join payload")
		return
	}

	code, ok := domain.NormalizeCode(p.Code)
	if !ok {
		return
	}

	if existing := h.sessionByCode(code); existing != nil {
		h.teardownSession(existing)
	}

	session := domain.NewSession(code, c.ID, p.SourceLang, p.TargetLangs)
	h.mu.Lock()
	h.sessions[code] = session
	h.mu.Unlock()

	c.role = roleSpeaker
	c.code = code

	c.deliver(domain.EventJoined, domain.JoinedPayload{OK: true, Code: code, Mode: "speaker", SourceLang: p.SourceLang})
	c.deliver(domain.EventSessionStarted, domain.JoinedPayload{OK: true, Code: code, SourceLang: p.SourceLang})
	h.logger.Info("session started", zap.String("code", code), zap.String("source_lang", p.SourceLang))
}

// teardownSession tears down a live session ahead of a replacing speaker or
// on the speaker's disconnect: it notifies current members, then clears the
// session's segmentation state, TTS queues and persistent TTS channels.
func (h *Hub) teardownSession(session *domain.Session) {
	h.broadcastToSession(session, domain.EventSpeakerDisconnected, domain.SpeakerDisconnectedPayload{Code: session.Code}, uuid.Nil)
	h.mu.Lock()
	delete(h.sessions, session.Code)
	h.mu.Unlock()
	h.dispatcher.CloseSession(session.Code)
	h.dropPipelinesFor(session.Code)
	h.dropPersistentFor(session.Code)
}

func (h *Hub) handleListenerJoin(c *Client, raw json.RawMessage) {
	var p domain.ListenerJoinPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("malformed listener-join payload")
		return
	}
	code, ok := domain.NormalizeCode(p.Code)
	if !ok {
		c.sendError("invalid session code")
		return
	}

	session := h.sessionByCode(code)
	if session == nil {
		c.deliver(domain.EventSessionNotFound, domain.SessionNotFoundPayload{Code: code})
		return
	}

	c.role = roleListener
	c.code = code
	c.language = p.Lang

	session.AddListener(&domain.Listener{ConnID: c.ID, Lang: p.Lang, Voice: p.Voice})
	if p.Voice != "" {
		session.SetListenerVoice(c.ID, p.Voice)
	}

	c.deliver(domain.EventJoined, domain.JoinedPayload{OK: true, Code: code, Mode: "listener", AvailableLanguages: session.EffectiveTargets()})
}

func (h *Hub) handleChangeLanguage(c *Client, raw json.RawMessage) {
	if c.role != roleListener {
		c.sendError("only listeners may change language")
		return
	}
	var p domain.ChangeLanguagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("malformed change-language payload")
		return
	}
	session := h.sessionByCode(c.code)
	if session == nil {
		c.sendError("session no longer exists")
		return
	}
	session.SetListenerLanguage(c.ID, p.Lang)
	c.language = p.Lang
	c.deliver(domain.EventLanguageChanged, domain.LanguageChangedPayload{Code: c.code, Lang: p.Lang})
}

func (h *Hub) handleUpdateVoice(c *Client, raw json.RawMessage) {
	if c.role != roleListener {
		c.sendError("only listeners may update voice")
		return
	}
	var p domain.UpdateVoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("malformed update-voice payload")
		return
	}
	session := h.sessionByCode(c.code)
	if session == nil {
		c.sendError("session no longer exists")
		return
	}
	session.SetListenerVoice(c.ID, p.Voice)
	c.deliver(domain.EventVoiceUpdated, domain.VoiceUpdatedPayload{Code: c.code, Voice: p.Voice})
}

func (h *Hub) handleListenerLeave(c *Client) {
	if c.role != roleListener || c.code == "" {
		return
	}
	if session := h.sessionByCode(c.code); session != nil {
		session.RemoveListener(c.ID)
	}
}

func (h *Hub) sessionByCode(code string) *domain.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[code]
}

// handleTranscript is the pipeline's core: translate, segment per
// language, punctuate, broadcast display text, and enqueue stable units
// for synthesis.
func (h *Hub) handleTranscript(c *Client, raw json.RawMessage) {
	if c.role != roleSpeaker {
		c.sendError("only the speaker may send transcript events")
		return
	}
	var p domain.TranscriptPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("malformed transcript payload")
		return
	}

	session := h.sessionByCode(c.code)
	if session == nil {
		return
	}
	session.Touch()

	start := time.Now()
	targets := session.EffectiveTargets()
	if len(targets) == 0 {
		return
	}

	var translations map[string]string
	if p.Translations != nil {
		translations = p.Translations
	} else {
		translations = h.translator.Translate(context.Background(), p.Text, session.SourceLang, targets)
	}
	h.metrics.TranslationCompleted(context.Background(), time.Since(start))

	broadcast := domain.TranslationBroadcastPayload{
		Original:     p.Text,
		Translations: translations,
		IsFinal:      p.IsFinal,
		Timestamp:    p.Timestamp,
		LatencyMS:    time.Since(start).Milliseconds(),
	}
	h.broadcastToSession(session, domain.EventTranslationBroadcast, broadcast, c.ID)

	for _, lang := range targets {
		text, ok := translations[lang]
		if !ok {
			continue
		}
		h.processLanguage(session, lang, text, p.IsFinal)
	}

	if p.IsFinal {
		session.RecordUtterance(time.Since(start))
	}
}

func (h *Hub) processLanguage(session *domain.Session, lang, text string, isFinal bool) {
	key := session.Code + "|" + lang
	punctuated := punctuation.Apply(key, text, isFinal)

	policy := h.policyFor(key)
	display, units := policy.Consume(punctuated, isFinal, time.Now())

	if display != "" {
		h.deliverToLanguage(session, lang, domain.EventTranslationUpdate, domain.TranslationUpdatePayload{
			Text: display, Language: lang, IsFinal: isFinal,
		})
	}

	if len(units) == 0 {
		return
	}
	voice := session.VoiceForLanguage(lang)
	for _, unit := range units {
		h.synthesizeUnit(session, lang, voice, unit)
	}
}

func (h *Hub) synthesizeUnit(session *domain.Session, lang, voice string, unit segmentation.Unit) {
	if h.segKind == segmentation.KindContinuous && unit.IsDelta {
		if ps, ok := h.persistentFor(session, lang, voice); ok {
			if ps.SendDelta(context.Background(), unit.Text) {
				return
			}
			h.logger.Warn("persistent tts send failed, falling back to request mode",
				zap.String("session", session.Code), zap.String("language", lang))
		}
	}

	var seq uint64
	handler := func(entry *tts.Entry, chunk []byte) {
		seq++
		h.deliverToLanguage(session, lang, domain.EventAudioStream, domain.AudioStreamPayload{
			Audio:     base64.StdEncoding.EncodeToString(chunk),
			Format:    "pcm_24000",
			Language:  lang,
			Text:      unit.Text,
			Sequence:  seq,
			IsStable:  true,
			IsFinal:   !unit.IsDelta,
			Streaming: unit.IsDelta,
		})
	}
	h.dispatcher.Enqueue(context.Background(), session.Code, lang, unit.Text, voice, handler)
}

// persistentFor returns the cached persistent-mode TTS session for a
// (session, language) pipeline, dialing the dispatcher's persistent
// provider on first use. ok is false when no persistent provider is
// configured or the dial failed, telling the caller to fall back to
// request-mode dispatch for this delta.
func (h *Hub) persistentFor(session *domain.Session, lang, voice string) (*tts.PersistentSession, bool) {
	key := session.Code + "|" + lang
	h.persistMu.Lock()
	defer h.persistMu.Unlock()
	if s, ok := h.persistent[key]; ok {
		return s, true
	}

	provider, ok := h.dispatcher.Persistent()
	if !ok {
		return nil, false
	}

	var seq uint64
	handler := func(entry *tts.Entry, chunk []byte) {
		seq++
		h.deliverToLanguage(session, lang, domain.EventAudioStream, domain.AudioStreamPayload{
			Audio:     base64.StdEncoding.EncodeToString(chunk),
			Format:    "pcm_24000",
			Language:  lang,
			Sequence:  seq,
			IsStable:  true,
			Streaming: true,
		})
	}

	s, err := tts.OpenPersistentSession(context.Background(), provider, lang, voice, handler, h.logger)
	if err != nil {
		h.logger.Warn("persistent tts dial failed, falling back to request mode",
			zap.String("session", session.Code), zap.String("language", lang), zap.Error(err))
		return nil, false
	}
	h.persistent[key] = s
	return s, true
}

func (h *Hub) dropPersistentFor(code string) {
	prefix := code + "|"
	h.persistMu.Lock()
	defer h.persistMu.Unlock()
	for key, s := range h.persistent {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.Close()
			delete(h.persistent, key)
		}
	}
}

func (h *Hub) policyFor(key string) segmentation.Policy {
	h.pipeMu.Lock()
	defer h.pipeMu.Unlock()
	if p, ok := h.pipelines[key]; ok {
		return p
	}
	p := segmentation.New(h.segKind)
	h.pipelines[key] = p
	return p
}

func (h *Hub) broadcastToSession(session *domain.Session, event domain.EventType, payload any, exclude uuid.UUID) {
	for _, l := range session.Listeners() {
		h.deliverToClient(l.ConnID, event, payload)
	}
}

func (h *Hub) deliverToLanguage(session *domain.Session, lang string, event domain.EventType, payload any) {
	for _, id := range session.ListenersForLanguage(lang) {
		h.deliverToClient(id, event, payload)
	}
}

func (h *Hub) deliverToClient(id uuid.UUID, event domain.EventType, payload any) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.deliver(event, payload)
}

func (h *Hub) onDisconnect(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	if c.code == "" {
		return
	}
	session := h.sessionByCode(c.code)
	if session == nil {
		return
	}

	switch c.role {
	case roleSpeaker:
		h.teardownSession(session)
	case roleListener:
		session.RemoveListener(c.ID)
	}
}

func (h *Hub) dropPipelinesFor(code string) {
	prefix := code + "|"
	h.pipeMu.Lock()
	defer h.pipeMu.Unlock()
	for key := range h.pipelines {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(h.pipelines, key)
		}
	}
}

func (h *Hub) reapStale() {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for code, s := range h.sessions {
		if s.IsStale(now) {
			delete(h.sessions, code)
			h.dispatcher.CloseSession(code)
			h.dropPipelinesFor(code)
			h.dropPersistentFor(code)
			h.logger.Info("reaped stale session", zap.String("code", code))
		}
	}
}
