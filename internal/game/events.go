// internal/game/events.go
//
// Outbound event contract between the coordinator and the transport gateway.
// Every message a participant can receive is an Event with an explicit Type;
// the gateway serializes events as-is and never inspects game state itself.

package game

// EventType enumerates every outbound message kind.
type EventType string

const (
	EventRoleAssigned    EventType = "role_assigned"
	EventWaiting         EventType = "waiting_for_opponent"
	EventSpectatorStatus EventType = "spectator_status"
	EventRoundStart      EventType = "round_start"
	EventSubmitted       EventType = "submitted"
	EventRoundOver       EventType = "round_over"
	EventPlayerLeft      EventType = "player_left"
	EventReset           EventType = "reset"
	EventRoundError      EventType = "round_error"
	EventError           EventType = "error"
)

// Player pairs a participant id with its seat for round_start payloads.
type Player struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Entry is a role/expression pair with the score withheld. Used for
// submitted notices and the mid-round view sent to spectators.
type Entry struct {
	Role       Role   `json:"role"`
	Expression string `json:"expression"`
}

// Result is one seat's final line in a round_over payload. A nil Score (JSON
// null) is the "no submission" sentinel; such entries never win.
type Result struct {
	Role       Role     `json:"role"`
	Expression string   `json:"expression,omitempty"`
	Score      *float64 `json:"score"`
}

// Event is the single outbound message shape. Fields are populated per Type;
// unused fields are omitted from the wire encoding.
type Event struct {
	Type       EventType `json:"type"`
	Role       Role      `json:"role,omitempty"`
	Message    string    `json:"message,omitempty"`
	Target     string    `json:"target,omitempty"`
	Players    []Player  `json:"players,omitempty"`
	Expression string    `json:"expression,omitempty"`
	Submitted  []Entry   `json:"submitted,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Winner     Role      `json:"winner,omitempty"`
	Results    []Result  `json:"results,omitempty"`
}

// Notifier delivers events to participants. Delivery is fire-and-forget: a
// slow or broken connection must not block the coordinator or other
// recipients.
type Notifier interface {
	// Broadcast sends ev to every connected participant.
	Broadcast(ev Event)

	// Unicast sends ev to a single participant; unknown ids are ignored.
	Unicast(id string, ev Event)
}
