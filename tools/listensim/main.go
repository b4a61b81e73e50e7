// Command listensim simulates one listener: it joins a session by code,
// subscribes to a target language, and logs translation-update and
// audio-stream events, decoding and reporting the audio payload size
// rather than playing it.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/confrelay/relay/domain"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "relay host:port")
	code := flag.String("code", "", "session code to join")
	lang := flag.String("lang", "es", "target language")
	voice := flag.String("voice", "", "voice preference")
	flag.Parse()

	if *code == "" {
		log.Fatal("-code is required")
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	done := make(chan struct{})
	go readLoop(conn, done)

	send(conn, domain.EventListenerJoin, domain.ListenerJoinPayload{Code: *code, Lang: *lang, Voice: *voice})

	select {
	case <-done:
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func send(conn *websocket.Conn, event domain.EventType, payload any) {
	env, err := domain.Encode(event, payload)
	if err != nil {
		log.Printf("encode %s failed: %v", event, err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("marshal %s failed: %v", event, err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("send %s failed: %v", event, err)
	}
}

func readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Println("unmarshal:", err)
			continue
		}
		if env.Event == domain.EventAudioStream {
			var p domain.AudioStreamPayload
			if err := json.Unmarshal(env.Payload, &p); err == nil {
				raw, _ := base64.StdEncoding.DecodeString(p.Audio)
				log.Printf("<- audio-stream language=%s text=%q bytes=%d final=%v", p.Language, p.Text, len(raw), p.IsFinal)
				continue
			}
		}
		log.Printf("<- %s %s", env.Event, string(env.Payload))
	}
}
