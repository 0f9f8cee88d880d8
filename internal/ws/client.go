// internal/ws/client.go
//
// Per-connection read/write pumps for the websocket gateway.
// The write pump owns the connection's write side: it serializes outbound
// events from a buffered channel and keeps the connection alive with pings.
// The read pump parses inbound frames and dispatches them to the hub.

package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semduel/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBuffer = 32
)

// inbound is the single frame shape clients send.
type inbound struct {
	Type       string `json:"type"`
	Expression string `json:"expression,omitempty"`
	Token      string `json:"token,omitempty"`
}

// client is one websocket participant.
type client struct {
	id   string
	conn *websocket.Conn
	send chan game.Event
}

// trySend queues ev for delivery, dropping it if the client's buffer is full.
// A slow observer must never block the coordinator or other recipients.
func (c *client) trySend(ev game.Event) {
	select {
	case c.send <- ev:
	default:
		log.Warn().Str("id", c.id).Str("event", string(ev.Type)).Msg("send buffer full, dropping event")
	}
}

// writePump drains the send channel onto the wire and pings on an interval.
// Runs in its own goroutine; exits when the send channel closes or a write
// fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames until the connection drops, handing each decoded
// message to handle. Malformed JSON gets a targeted error rather than a
// disconnect.
func (c *client) readPump(h *Hub) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.trySend(game.Event{Type: game.EventError, Message: "malformed message"})
			continue
		}
		h.handle(c, msg)
	}
}
