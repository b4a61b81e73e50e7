// Command audiosim simulates a speaker: it opens a session, streams a
// scripted sequence of growing partial transcripts followed by a final,
// and logs whatever the relay echoes back.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/confrelay/relay/domain"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "relay host:port")
	code := flag.String("code", "", "4-character session code (the relay ignores a join without a valid one)")
	source := flag.String("source", "en", "source language")
	targets := flag.String("targets", "es,fr", "comma-separated target languages")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	done := make(chan struct{})
	go readLoop(conn, done)

	send(conn, domain.EventSpeakerJoin, domain.SpeakerJoinPayload{
		Code:        *code,
		SourceLang:  *source,
		TargetLangs: splitCSV(*targets),
	})

	go runScript(conn)

	select {
	case <-done:
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

// runScript emits a sequence of growing partials followed by a final, the
// same shape as a live speech recognizer's incremental hypotheses.
func runScript(conn *websocket.Conn) {
	partials := []string{
		"Hello",
		"Hello everyone",
		"Hello everyone welcome",
		"Hello everyone welcome to the meeting",
	}
	for _, p := range partials {
		send(conn, domain.EventTranscript, domain.TranscriptPayload{Text: p, IsFinal: false})
		time.Sleep(200 * time.Millisecond)
	}
	send(conn, domain.EventTranscript, domain.TranscriptPayload{
		Text: "Hello everyone, welcome to the meeting.", IsFinal: true,
	})
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
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
		log.Printf("<- %s %s", env.Event, string(env.Payload))
	}
}
