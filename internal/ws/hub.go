// internal/ws/hub.go
//
// WebSocket gateway between participants and the round coordinator.
// Responsibilities:
//   - Accept connections (origin-checked), assign each a connection id, and
//     translate connect/disconnect into coordinator calls.
//   - Dispatch inbound frames ("submit", "reset") with boundary sanitation;
//     the coordinator re-checks everything defensively.
//   - Implement game.Notifier: fan events out to one or all connections,
//     fire-and-forget.
//
// The hub holds no game state; it only maps connection ids to send channels.

package ws

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semduel/internal/game"
)

// Hub tracks live connections and routes traffic to/from the coordinator.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	coord      *game.Coordinator
	resetToken string
	upgrader   websocket.Upgrader
}

// NewHub constructs a Hub. origins is the allowed Origin set for browser
// connections; empty means any origin (local development). resetToken, when
// non-empty, gates the forced-reset action.
func NewHub(origins []string, resetToken string) *Hub {
	allow := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allow[o] = true
		}
	}
	return &Hub{
		clients:    make(map[string]*client),
		resetToken: resetToken,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allow) == 0 || allow[origin]
			},
		},
	}
}

// Bind attaches the coordinator. Must be called once before ServeWS; the hub
// and coordinator reference each other, so one side binds late.
func (h *Hub) Bind(c *game.Coordinator) { h.coord = c }

// ServeWS upgrades the request and runs the connection until it drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan game.Event, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go c.writePump()

	// Registered before Connect so the client sees its own role-assigned
	// event and any round-start it triggers.
	h.coord.Connect(r.Context(), c.id)

	c.readPump(h)

	h.mu.Lock()
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()
	h.coord.Disconnect(c.id)
}

// handle dispatches one inbound frame.
func (h *Hub) handle(c *client, msg inbound) {
	switch msg.Type {
	case "submit":
		expr := strings.TrimSpace(msg.Expression)
		if expr == "" || len(expr) > game.MaxExpressionLen {
			c.trySend(game.Event{Type: game.EventError, Message: "expression must be 1–200 characters"})
			return
		}
		h.coord.Submit(context.Background(), c.id, expr)
	case "reset":
		if !h.resetAllowed(msg.Token) {
			c.trySend(game.Event{Type: game.EventError, Message: "reset not authorized"})
			return
		}
		h.coord.Reset()
	default:
		c.trySend(game.Event{Type: game.EventError, Message: "unknown message type"})
	}
}

// resetAllowed checks the optional shared reset token.
func (h *Hub) resetAllowed(token string) bool {
	if h.resetToken == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.resetToken)) == 1
}

// ------------------------- game.Notifier -----------------------------------

// Broadcast sends ev to every connection.
func (h *Hub) Broadcast(ev game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.trySend(ev)
	}
}

// Unicast sends ev to one connection; unknown ids are ignored.
func (h *Hub) Unicast(id string, ev game.Event) {
	h.mu.RLock()
	c := h.clients[id]
	h.mu.RUnlock()
	if c != nil {
		c.trySend(ev)
	}
}
