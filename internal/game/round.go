// internal/game/round.go
//
// Core type definitions for the duel game.
// Defines:
//   - Role: seat assignment for a connected participant.
//   - Round: state for a single in-progress round.
//   - Submission: one player's scored expression.

package game

// Role identifies what a connected participant may do.
// Possible values:
//   - "player1": holds the first seat, submits expressions.
//   - "player2": holds the second seat, submits expressions.
//   - "observer": watches; never submits, never counted for finalization.
type Role string

const (
	RolePlayer1  Role = "player1"
	RolePlayer2  Role = "player2"
	RoleObserver Role = "observer"
)

// Submission is one player's expression together with its similarity score,
// rounded to four decimal places. A submission is only ever stored after both
// remote calls (vectorize, compare) have succeeded.
type Submission struct {
	Expression string  `json:"expression"`
	Score      float64 `json:"score"`
}

// Round holds the state of a single round.
//
// Invariants (enforced by the Coordinator):
//   - Active is true only while Target and TargetVector are both set.
//   - Submissions holds at most one entry per participant id; a duplicate
//     submit is rejected, never overwritten.
//   - Every stored submission's vector matched len(TargetVector).
type Round struct {
	Target       string                // the word players aim for (lowercase)
	TargetVector []float64             // embedding of Target
	Submissions  map[string]Submission // participant id -> submission
	Active       bool                  // accepting submissions
}
