package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/semduel/internal/game"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewStore(db)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func score(v float64) *float64 { return &v }

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, game.RoundRecord{
		Target: "ocean",
		Reason: "all players submitted",
		Winner: game.RolePlayer1,
		Results: []game.Result{
			{Role: game.RolePlayer1, Expression: "sea", Score: score(0.81)},
			{Role: game.RolePlayer2, Expression: "rock", Score: score(0.22)},
		},
		FinishedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.Record(ctx, game.RoundRecord{
		Target: "stone",
		Reason: "player2 left the game",
		Winner: game.RolePlayer1,
		Results: []game.Result{
			{Role: game.RolePlayer1, Expression: "pebble", Score: score(0.77)},
			{Role: game.RolePlayer2}, // no submission
		},
		FinishedAt: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
	}))

	rows, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first.
	assert.Equal(t, "stone", rows[0].Target)
	assert.Equal(t, "pebble", rows[0].P1Expression)
	assert.Nil(t, rows[0].P2Score, "missing submission stays NULL")

	assert.Equal(t, "ocean", rows[1].Target)
	require.NotNil(t, rows[1].P1Score)
	assert.Equal(t, 0.81, *rows[1].P1Score)
	assert.Equal(t, "2025-06-01T12:00:00Z", rows[1].FinishedAt)
}

func TestRecentLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, game.RoundRecord{
			Target:     "ocean",
			Reason:     "all players submitted",
			FinishedAt: time.Now(),
		}))
	}

	rows, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = s.Recent(ctx, 0) // default
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}
