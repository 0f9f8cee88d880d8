package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/semduel/internal/game"
)

// stubScorer stages fixed vectors so the duel plays out without a service.
type stubScorer struct{}

func (stubScorer) Words(context.Context) ([]string, error) {
	return []string{"ocean"}, nil
}

func (stubScorer) Embedding(context.Context, string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func (stubScorer) ExpressionVector(_ context.Context, expr string) ([]float64, error) {
	switch expr {
	case "sea":
		return []float64{0.81, 0, 0}, nil
	case "rock":
		return []float64{0.22, 0, 0}, nil
	}
	return []float64{0, 0, 0}, nil
}

func (stubScorer) Similarity(_ context.Context, _ string, vec []float64) (float64, error) {
	return vec[0], nil
}

func newTestServer(t *testing.T, resetToken string) *httptest.Server {
	t.Helper()
	hub := NewHub(nil, resetToken)
	coord := game.NewCoordinator(game.NewRegistry(), stubScorer{}, hub, nil)
	hub.Bind(coord)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readEvent reads the next event with a deadline.
func readEvent(t *testing.T, conn *websocket.Conn) game.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev game.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// expectEvent reads events until one of type want arrives, failing on timeout.
// Broadcast ordering between different event types to the same connection is
// stable, but spectators may see events players do not, so skipping is safer.
func expectEvent(t *testing.T, conn *websocket.Conn, want game.EventType) game.Event {
	t.Helper()
	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if ev.Type == want {
			return ev
		}
	}
	t.Fatalf("event %q never arrived", want)
	return game.Event{}
}

func TestFullDuelOverWebsocket(t *testing.T) {
	srv := newTestServer(t, "")

	p1 := dial(t, srv)
	ev := expectEvent(t, p1, game.EventRoleAssigned)
	assert.Equal(t, game.RolePlayer1, ev.Role)
	expectEvent(t, p1, game.EventWaiting)

	p2 := dial(t, srv)
	ev = expectEvent(t, p2, game.EventRoleAssigned)
	assert.Equal(t, game.RolePlayer2, ev.Role)

	start := expectEvent(t, p2, game.EventRoundStart)
	assert.Equal(t, "ocean", start.Target)
	require.Len(t, start.Players, 2)
	expectEvent(t, p1, game.EventRoundStart)

	require.NoError(t, p1.WriteJSON(inbound{Type: "submit", Expression: "sea"}))
	sub := expectEvent(t, p2, game.EventSubmitted)
	assert.Equal(t, game.RolePlayer1, sub.Role)
	assert.Equal(t, "sea", sub.Expression)

	require.NoError(t, p2.WriteJSON(inbound{Type: "submit", Expression: "rock"}))
	over := expectEvent(t, p1, game.EventRoundOver)
	assert.Equal(t, game.RolePlayer1, over.Winner)
	assert.Equal(t, "ocean", over.Target)
	require.Len(t, over.Results, 2)
	require.NotNil(t, over.Results[0].Score)
	assert.Equal(t, 0.81, *over.Results[0].Score)
	expectEvent(t, p2, game.EventRoundOver)
}

func TestSpectatorSeesStatus(t *testing.T) {
	srv := newTestServer(t, "")

	p1 := dial(t, srv)
	expectEvent(t, p1, game.EventRoleAssigned)
	p2 := dial(t, srv)
	expectEvent(t, p2, game.EventRoundStart)

	spec := dial(t, srv)
	ev := expectEvent(t, spec, game.EventRoleAssigned)
	assert.Equal(t, game.RoleObserver, ev.Role)
	status := expectEvent(t, spec, game.EventSpectatorStatus)
	assert.Equal(t, "ocean", status.Target)
}

func TestDisconnectEndsRound(t *testing.T) {
	srv := newTestServer(t, "")

	p1 := dial(t, srv)
	expectEvent(t, p1, game.EventRoleAssigned)
	p2 := dial(t, srv)
	expectEvent(t, p1, game.EventRoundStart)
	expectEvent(t, p2, game.EventRoundStart)

	require.NoError(t, p2.Close())

	left := expectEvent(t, p1, game.EventPlayerLeft)
	assert.Equal(t, game.RolePlayer2, left.Role)
	over := expectEvent(t, p1, game.EventRoundOver)
	require.Len(t, over.Results, 2)
	assert.Nil(t, over.Results[1].Score)
}

func TestUnknownMessageType(t *testing.T) {
	srv := newTestServer(t, "")

	p1 := dial(t, srv)
	expectEvent(t, p1, game.EventRoleAssigned)

	require.NoError(t, p1.WriteJSON(inbound{Type: "dance"}))
	ev := expectEvent(t, p1, game.EventError)
	assert.Contains(t, ev.Message, "unknown message type")
}

func TestOversizedExpressionRejectedAtBoundary(t *testing.T) {
	srv := newTestServer(t, "")

	p1 := dial(t, srv)
	expectEvent(t, p1, game.EventRoleAssigned)

	require.NoError(t, p1.WriteJSON(inbound{Type: "submit", Expression: strings.Repeat("a", game.MaxExpressionLen+1)}))
	ev := expectEvent(t, p1, game.EventError)
	assert.Contains(t, ev.Message, "expression")
}

func TestResetTokenGate(t *testing.T) {
	srv := newTestServer(t, "hunter2")

	p1 := dial(t, srv)
	expectEvent(t, p1, game.EventRoleAssigned)

	require.NoError(t, p1.WriteJSON(inbound{Type: "reset"}))
	ev := expectEvent(t, p1, game.EventError)
	assert.Contains(t, ev.Message, "not authorized")

	require.NoError(t, p1.WriteJSON(inbound{Type: "reset", Token: "hunter2"}))
	expectEvent(t, p1, game.EventReset)
}

func TestResetUngatedWhenNoToken(t *testing.T) {
	srv := newTestServer(t, "")

	p1 := dial(t, srv)
	expectEvent(t, p1, game.EventRoleAssigned)

	require.NoError(t, p1.WriteJSON(inbound{Type: "reset"}))
	expectEvent(t, p1, game.EventReset)
}
