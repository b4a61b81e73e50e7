package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// edgeVoice maps a two-letter language code to a secondary-provider voice
// short name. Unknown languages fall back to English.
var edgeVoice = map[string]string{
	"en": "en-US-AriaNeural",
	"es": "es-ES-ElviraNeural",
	"fr": "fr-FR-DeniseNeural",
	"de": "de-DE-KatjaNeural",
	"ja": "ja-JP-NanamiNeural",
	"zh": "zh-CN-XiaoxiaoNeural",
	"pt": "pt-BR-FranciscaNeural",
	"ru": "ru-RU-SvetlanaNeural",
}

// EdgeConfig configures the secondary, WebSocket-streamed TTS provider.
type EdgeConfig struct {
	Endpoint string // wss://...
}

// EdgeTTS is the secondary provider. Unlike the primary's plain HTTP
// streaming POST, it speaks a WebSocket framed protocol: an SSML config
// frame followed by a stream of binary audio frames and JSON metadata
// frames, terminated by a turn.end frame. Used when a primary request fails
// or while the primary is disabled after repeated consecutive failures.
type EdgeTTS struct {
	cfg EdgeConfig
}

func NewEdgeTTS(cfg EdgeConfig) *EdgeTTS {
	return &EdgeTTS{cfg: cfg}
}

func (e *EdgeTTS) Name() string { return "edge" }

func (e *EdgeTTS) Synthesize(ctx context.Context, text, language, voiceHint string, rate float64) (<-chan []byte, error) {
	voice := voiceHint
	if voice == "" {
		voice = edgeVoice[strings.ToLower(language)]
		if voice == "" {
			voice = edgeVoice["en"]
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, e.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial edge tts: %w", err)
	}

	requestID := uuid.NewString()
	if err := sendEdgeConfig(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := sendEdgeSSML(conn, requestID, text, voice, rate); err != nil {
		conn.Close()
		return nil, err
	}

	out := make(chan []byte, elevenLabsStreamBufferSize)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			msgType, data, readErr := conn.ReadMessage()
			if readErr != nil {
				return
			}
			switch msgType {
			case websocket.BinaryMessage:
				// Edge frames binary audio behind a small text header
				// separated by "\r\n\r\n"; strip it before forwarding PCM.
				audio := stripEdgeHeader(data)
				if len(audio) == 0 {
					continue
				}
				select {
				case out <- audio:
				case <-ctx.Done():
					return
				}
			case websocket.TextMessage:
				if isEdgeTurnEnd(data) {
					return
				}
			}
		}
	}()
	return out, nil
}

// OpenPersistent opens a single long-lived connection for a
// (session, language) pair: one speech.config frame up front, then one
// ssml frame per SendText call, reusing the connection instead of
// redialing per utterance.
func (e *EdgeTTS) OpenPersistent(ctx context.Context, language, voiceHint string) (PersistentChannel, error) {
	voice := voiceHint
	if voice == "" {
		voice = edgeVoice[strings.ToLower(language)]
		if voice == "" {
			voice = edgeVoice["en"]
		}
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, e.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial edge tts persistent: %w", err)
	}
	if err := sendEdgeConfig(conn); err != nil {
		conn.Close()
		return nil, err
	}

	ch := &edgePersistentChannel{conn: conn, voice: voice, audio: make(chan []byte, elevenLabsStreamBufferSize)}
	go ch.readLoop()
	return ch, nil
}

type edgePersistentChannel struct {
	conn  *websocket.Conn
	voice string
	audio chan []byte
}

func (c *edgePersistentChannel) readLoop() {
	defer close(c.audio)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if audio := stripEdgeHeader(data); len(audio) > 0 {
			c.audio <- audio
		}
	}
}

func (c *edgePersistentChannel) SendText(ctx context.Context, delta string, rate float64) error {
	return sendEdgeSSML(c.conn, uuid.NewString(), delta, c.voice, rate)
}

func (c *edgePersistentChannel) Audio() <-chan []byte { return c.audio }

func (c *edgePersistentChannel) Close() error { return c.conn.Close() }

func sendEdgeConfig(conn *websocket.Conn) error {
	cfg := "X-Timestamp:" + time.Now().UTC().Format(time.RFC1123) + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":false,"wordBoundaryEnabled":false},"outputFormat":"audio-24khz-48kbitrate-mono-mp3"}}}}`
	return conn.WriteMessage(websocket.TextMessage, []byte(cfg))
}

func sendEdgeSSML(conn *websocket.Conn, requestID, text, voice string, rate float64) error {
	ratePct := int((rate - 1.0) * 100)
	ssml := fmt.Sprintf(
		`<speak version='1.0' xml:lang='en-US'><voice name='%s'><prosody rate='%+d%%'>%s</prosody></voice></speak>`,
		voice, ratePct, escapeSSML(text))
	frame := fmt.Sprintf(
		"X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s",
		requestID, ssml)
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func escapeSSML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}

func stripEdgeHeader(data []byte) []byte {
	const sep = "\r\n\r\n"
	idx := strings.Index(string(data), sep)
	if idx < 0 {
		return data
	}
	return data[idx+len(sep):]
}

func isEdgeTurnEnd(data []byte) bool {
	var meta struct {
		Type string `json:"Type"`
	}
	body := data
	if idx := strings.Index(string(data), "\r\n\r\n"); idx >= 0 {
		body = data[idx+4:]
	}
	if err := json.Unmarshal(body, &meta); err == nil {
		return meta.Type == "turn.end"
	}
	return strings.Contains(string(data), "Path:turn.end")
}
