package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/confrelay/relay/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// role identifies which side of a session a Client represents.
type role string

const (
	roleSpeaker  role = "speaker"
	roleListener role = "listener"
)

// Client wraps one duplex websocket connection: a speaker streaming
// transcript events, or a listener receiving translation and audio events
// for one target language.
type Client struct {
	ID   uuid.UUID
	conn *websocket.Conn
	hub  *Hub
	log  *zap.Logger

	send chan domain.Envelope

	role     role
	code     string
	language string // listener only; empty for speaker
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New(),
		conn: conn,
		hub:  h,
		log:  h.logger,
		send: make(chan domain.Envelope, 32),
	}
}

// readPump pumps inbound envelopes to the hub until the connection closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("could not parse event envelope")
			continue
		}
		c.hub.handleEvent(c, env)
	}
}

// writePump drains outbound envelopes to the connection and keeps it alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				c.log.Error("marshal outbound envelope failed", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) deliver(event domain.EventType, payload any) {
	env, err := domain.Encode(event, payload)
	if err != nil {
		c.log.Error("encode outbound event failed", zap.Error(err), zap.String("event", string(event)))
		return
	}
	select {
	case c.send <- env:
	default:
		c.log.Warn("client send buffer full, dropping event", zap.String("client", c.ID.String()), zap.String("event", string(event)))
	}
}

func (c *Client) sendError(message string) {
	c.deliver(domain.EventErr, domain.ErrorPayload{Message: message})
}
