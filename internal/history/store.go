package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/semduel/internal/game"
)

// Row is one archived round as served by GET /rounds/recent.
type Row struct {
	Target       string   `json:"target"`
	Reason       string   `json:"reason"`
	Winner       string   `json:"winner,omitempty"`
	P1Expression string   `json:"p1Expression,omitempty"`
	P1Score      *float64 `json:"p1Score"`
	P2Expression string   `json:"p2Expression,omitempty"`
	P2Score      *float64 `json:"p2Score"`
	FinishedAt   string   `json:"finishedAt"`
}

// Store archives finished rounds in SQLite. Writes are best effort; the
// coordinator logs and ignores failures.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Init creates the rounds table if missing.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rounds (
            id            INTEGER PRIMARY KEY AUTOINCREMENT,
            target        TEXT NOT NULL,
            reason        TEXT NOT NULL,
            winner        TEXT NOT NULL DEFAULT '',
            p1_expression TEXT NOT NULL DEFAULT '',
            p1_score      REAL,
            p2_expression TEXT NOT NULL DEFAULT '',
            p2_score      REAL,
            finished_at   TEXT NOT NULL
        )`)
	return err
}

// Record inserts one finished round. Implements game.Recorder.
func (s *Store) Record(ctx context.Context, rec game.RoundRecord) error {
	var p1Expr, p2Expr string
	var p1Score, p2Score *float64
	for _, r := range rec.Results {
		switch r.Role {
		case game.RolePlayer1:
			p1Expr, p1Score = r.Expression, r.Score
		case game.RolePlayer2:
			p2Expr, p2Score = r.Expression, r.Score
		}
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO rounds
            (target, reason, winner, p1_expression, p1_score, p2_expression, p2_score, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Target, rec.Reason, string(rec.Winner),
		p1Expr, p1Score, p2Expr, p2Score,
		rec.FinishedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Recent returns the latest rounds, newest first. Default limit is 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT target, reason, winner, p1_expression, p1_score, p2_expression, p2_score, finished_at
        FROM rounds
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Row, 0, limit)
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Target, &r.Reason, &r.Winner,
			&r.P1Expression, &r.P1Score, &r.P2Expression, &r.P2Score, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
