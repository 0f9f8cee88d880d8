// internal/game/coordinator.go
//
// Round lifecycle coordinator for the duel game.
// Responsibilities:
//   - Seat participants on connect, free seats on disconnect.
//   - Drive the round state machine: idle → starting → active → idle.
//   - Collect exactly one scored submission per seated player.
//   - Finalize and broadcast results when both players have submitted, when a
//     seated player leaves mid-round, or on a forced reset.
//
// Concurrency contract:
//   - One mutex guards the registry and round state; the registry itself is
//     not locked (single owner).
//   - Remote calls (word list, embeddings, similarity) run outside the lock.
//     Every continuation re-validates against a round epoch before committing:
//     resets, disconnect interruptions, and finalization all bump the epoch,
//     so a stale completion is detected and discarded rather than applied.

package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Phase names the coordinator's position in the round state machine.
type Phase string

const (
	PhaseIdle     Phase = "idle"     // no round; 0–2 seats filled
	PhaseStarting Phase = "starting" // target selection + vector fetch in flight
	PhaseActive   Phase = "active"   // accepting submissions
)

// MaxExpressionLen bounds a submitted expression after trimming. The gateway
// enforces it at the boundary; the coordinator re-checks defensively.
const MaxExpressionLen = 200

// Scorer is the embedding-service boundary consumed by the coordinator.
// All four calls are network round-trips with no retry guarantee; the only
// retry policy here is a single word-list refresh when the list comes back
// empty.
type Scorer interface {
	Words(ctx context.Context) ([]string, error)
	Embedding(ctx context.Context, word string) ([]float64, error)
	ExpressionVector(ctx context.Context, expr string) ([]float64, error)
	Similarity(ctx context.Context, target string, vector []float64) (float64, error)
}

// RoundRecord is the archival summary of a finished round.
type RoundRecord struct {
	Target     string
	Reason     string
	Winner     Role
	Results    []Result
	FinishedAt time.Time
}

// Recorder archives finished rounds. Failures are logged and ignored; the
// archive never affects the game.
type Recorder interface {
	Record(ctx context.Context, rec RoundRecord) error
}

// Status is a read-only snapshot for diagnostics.
type Status struct {
	Phase       Phase    `json:"phase"`
	Players     []Player `json:"players"`
	Observers   int      `json:"observers"`
	Target      string   `json:"target,omitempty"`
	Submissions int      `json:"submissions"`
}

// Coordinator owns all mutable game state.
type Coordinator struct {
	mu    sync.Mutex
	reg   *Registry
	round Round
	phase Phase
	epoch uint64 // bumped whenever round state is cleared

	words []string // cached candidate list from the scorer

	scorer Scorer
	notify Notifier
	rec    Recorder // optional
}

// NewCoordinator wires a coordinator around its collaborators. rec may be nil.
func NewCoordinator(reg *Registry, scorer Scorer, notify Notifier, rec Recorder) *Coordinator {
	return &Coordinator{reg: reg, phase: PhaseIdle, scorer: scorer, notify: notify, rec: rec}
}

// Connect seats a new participant, tells them their role, and starts a round
// if the second seat just filled while idle.
func (c *Coordinator) Connect(ctx context.Context, id string) {
	c.mu.Lock()
	role := c.reg.Assign(id)
	active := c.reg.ActiveCount()
	start := role != RoleObserver && active == 2 && c.phase == PhaseIdle
	var status Event
	if role == RoleObserver {
		status = c.spectatorStatusLocked()
	}
	c.mu.Unlock()

	log.Info().Str("id", id).Str("role", string(role)).Msg("participant connected")
	c.notify.Unicast(id, Event{Type: EventRoleAssigned, Role: role})
	switch {
	case role == RoleObserver:
		c.notify.Unicast(id, status)
	case active < 2:
		c.notify.Unicast(id, Event{Type: EventWaiting, Message: "waiting for an opponent"})
	}
	if start {
		c.startRound(ctx)
	}
}

// Disconnect frees id's seat. If a seated player leaves during an active
// round the round finalizes immediately with whatever submissions exist; a
// departure during startup aborts the in-flight start.
func (c *Coordinator) Disconnect(id string) {
	c.mu.Lock()
	role, held := c.reg.RoleOf(id)
	if !held {
		c.mu.Unlock()
		return
	}
	interrupted := false
	var over Event
	var rec RoundRecord
	if role != RoleObserver {
		switch c.phase {
		case PhaseActive:
			// Finalize before releasing so the departing seat still shows
			// up in the results (with a sentinel if they never submitted).
			c.round.Active = false
			over, rec = c.finalizeLocked(fmt.Sprintf("%s left the game", role))
			interrupted = true
		case PhaseStarting:
			c.phase = PhaseIdle
			c.round = Round{}
			c.epoch++
		}
	}
	c.reg.Release(id)
	c.mu.Unlock()

	log.Info().Str("id", id).Str("role", string(role)).Msg("participant disconnected")
	if interrupted {
		c.notify.Broadcast(Event{Type: EventPlayerLeft, Role: role, Message: fmt.Sprintf("%s left mid-round", role)})
		c.notify.Broadcast(over)
		c.record(rec)
	}
}

// Reset wipes all state from any phase: seats, round, submissions. Any
// in-flight remote completion is orphaned by the epoch bump. Always available
// as the recovery path when the scoring service misbehaves.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.reg.Clear()
	c.round = Round{}
	c.phase = PhaseIdle
	c.epoch++
	c.mu.Unlock()

	log.Info().Msg("game state reset")
	c.notify.Broadcast(Event{Type: EventReset, Message: "game was reset"})
}

// Submit validates and scores one player's expression. The two remote calls
// (vectorize, then compare) must both succeed before anything is stored; a
// failure at either stage leaves the player free to resubmit.
func (c *Coordinator) Submit(ctx context.Context, id, expr string) {
	expr = strings.TrimSpace(expr)

	c.mu.Lock()
	if msg, ok := c.checkSubmitLocked(id, expr); !ok {
		c.mu.Unlock()
		c.notify.Unicast(id, Event{Type: EventError, Message: msg})
		return
	}
	epoch := c.epoch
	target := c.round.Target
	dim := len(c.round.TargetVector)
	c.mu.Unlock()

	vec, err := c.scorer.ExpressionVector(ctx, expr)
	if err != nil {
		c.notify.Unicast(id, Event{Type: EventError, Message: "could not evaluate expression: " + err.Error()})
		return
	}
	if len(vec) != dim {
		c.notify.Unicast(id, Event{Type: EventError, Message: "expression vector has wrong dimensionality"})
		return
	}
	score, err := c.scorer.Similarity(ctx, target, vec)
	if err != nil {
		c.notify.Unicast(id, Event{Type: EventError, Message: "could not score expression: " + err.Error()})
		return
	}

	c.mu.Lock()
	// Re-validate: a reset, disconnect, or finalization may have happened
	// while the remote calls were in flight.
	if c.epoch != epoch || c.phase != PhaseActive {
		c.mu.Unlock()
		return
	}
	role, ok := c.reg.RoleOf(id)
	if !ok || role == RoleObserver {
		c.mu.Unlock()
		return
	}
	if _, dup := c.round.Submissions[id]; dup {
		c.mu.Unlock()
		c.notify.Unicast(id, Event{Type: EventError, Message: "you already submitted this round"})
		return
	}
	c.round.Submissions[id] = Submission{Expression: expr, Score: round4(score)}
	done := len(c.round.Submissions) == c.reg.ActiveCount()
	var over Event
	var rec RoundRecord
	if done {
		over, rec = c.finalizeLocked("all players submitted")
	}
	c.mu.Unlock()

	log.Info().Str("role", string(role)).Str("expression", expr).Msg("submission stored")
	c.notify.Broadcast(Event{Type: EventSubmitted, Role: role, Expression: expr})
	if done {
		c.notify.Broadcast(over)
		c.record(rec)
	}
}

// Status returns a diagnostic snapshot.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Phase:       c.phase,
		Players:     c.reg.SlotHolders(),
		Observers:   len(c.reg.Snapshot()) - c.reg.ActiveCount(),
		Submissions: len(c.round.Submissions),
	}
	if c.round.Active {
		st.Target = c.round.Target
	}
	return st
}

// ----------------------------- round start ---------------------------------

// startRound runs the idle → starting → active transition. The starting
// phase is set under the lock before any remote call, which makes the
// trigger check and the claim atomic with respect to a second connect
// arriving in quick succession.
func (c *Coordinator) startRound(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseIdle || c.reg.ActiveCount() != 2 {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseStarting
	epoch := c.epoch
	words := c.words
	c.mu.Unlock()

	if len(words) == 0 {
		var err error
		words, err = c.scorer.Words(ctx)
		if err == nil && len(words) == 0 {
			// One refresh retry; the service may repopulate its list.
			words, err = c.scorer.Words(ctx)
		}
		if err != nil {
			c.abortStart(epoch, "word service unavailable: "+err.Error())
			return
		}
		if len(words) == 0 {
			c.abortStart(epoch, "no candidate words available")
			return
		}
	}

	target := pickTarget(words)
	vec, err := c.scorer.Embedding(ctx, target)
	if err != nil {
		c.abortStart(epoch, "could not fetch target embedding: "+err.Error())
		return
	}

	c.mu.Lock()
	c.words = words
	if c.epoch != epoch || c.phase != PhaseStarting {
		// A reset or disconnect intervened; whoever did it already cleaned
		// up, so the fetched target is simply dropped.
		c.mu.Unlock()
		return
	}
	c.round = Round{
		Target:       target,
		TargetVector: vec,
		Submissions:  make(map[string]Submission),
		Active:       true,
	}
	c.phase = PhaseActive
	players := c.reg.SlotHolders()
	c.mu.Unlock()

	log.Info().Str("target", target).Int("dim", len(vec)).Msg("round started")
	c.notify.Broadcast(Event{Type: EventRoundStart, Target: target, Players: players})
}

// abortStart returns to idle after a failed start, unless the start was
// already orphaned by a reset or disconnect. Seats are left untouched so the
// players stay seated for a later retry.
func (c *Coordinator) abortStart(epoch uint64, msg string) {
	c.mu.Lock()
	stale := c.epoch != epoch || c.phase != PhaseStarting
	if !stale {
		c.phase = PhaseIdle
		c.round = Round{}
	}
	c.mu.Unlock()
	if stale {
		return
	}
	log.Warn().Str("reason", msg).Msg("round start aborted")
	c.notify.Broadcast(Event{Type: EventRoundError, Message: msg})
}

// ----------------------------- validation ----------------------------------

// checkSubmitLocked applies the pre-flight validation rules. Caller holds the
// lock. Returns a player-facing message when the submission is rejected.
func (c *Coordinator) checkSubmitLocked(id, expr string) (string, bool) {
	if c.phase != PhaseActive || !c.round.Active {
		return "no round is active", false
	}
	role, ok := c.reg.RoleOf(id)
	if !ok || role == RoleObserver {
		return "only seated players can submit", false
	}
	if _, dup := c.round.Submissions[id]; dup {
		return "you already submitted this round", false
	}
	if expr == "" {
		return "expression is empty", false
	}
	if len(expr) > MaxExpressionLen {
		return fmt.Sprintf("expression exceeds %d characters", MaxExpressionLen), false
	}
	if len(c.round.TargetVector) == 0 {
		return "no target available", false
	}
	return "", true
}

// ----------------------------- finalization --------------------------------

// finalizeLocked builds the round_over event and archival record, then clears
// round state and bumps the epoch. Caller holds the lock.
//
// Winner rule: highest rounded score wins; entries without a stored
// submission never win; equal top scores go to the earlier seat (player1
// beats player2), a deterministic tie-break rather than map iteration order.
func (c *Coordinator) finalizeLocked(reason string) (Event, RoundRecord) {
	players := c.reg.SlotHolders()
	results := make([]Result, 0, len(players))
	winner := Role("")
	best := math.Inf(-1)
	for _, p := range players {
		if sub, ok := c.round.Submissions[p.ID]; ok {
			score := sub.Score
			results = append(results, Result{Role: p.Role, Expression: sub.Expression, Score: &score})
			if score > best {
				best = score
				winner = p.Role
			}
		} else {
			results = append(results, Result{Role: p.Role, Score: nil})
		}
	}
	target := c.round.Target

	c.round = Round{}
	c.phase = PhaseIdle
	c.epoch++

	log.Info().Str("target", target).Str("winner", string(winner)).Str("reason", reason).Msg("round over")
	ev := Event{
		Type:    EventRoundOver,
		Reason:  reason,
		Target:  target,
		Winner:  winner,
		Results: results,
	}
	rec := RoundRecord{
		Target:     target,
		Reason:     reason,
		Winner:     winner,
		Results:    results,
		FinishedAt: time.Now().UTC(),
	}
	return ev, rec
}

// record archives a finished round, best effort.
func (c *Coordinator) record(rec RoundRecord) {
	if c.rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.rec.Record(ctx, rec); err != nil {
		log.Warn().Err(err).Str("target", rec.Target).Msg("archive round")
	}
}

// ----------------------------- spectators ----------------------------------

// spectatorStatusLocked describes the current game to a newly connected
// observer. Scores stay hidden until the round ends; spectators only see who
// submitted what. Caller holds the lock.
func (c *Coordinator) spectatorStatusLocked() Event {
	ev := Event{Type: EventSpectatorStatus}
	switch c.phase {
	case PhaseActive:
		ev.Message = "round in progress"
		ev.Target = c.round.Target
		for _, p := range c.reg.SlotHolders() {
			if sub, ok := c.round.Submissions[p.ID]; ok {
				ev.Submitted = append(ev.Submitted, Entry{Role: p.Role, Expression: sub.Expression})
			}
		}
	case PhaseStarting:
		ev.Message = "round starting"
	default:
		ev.Message = fmt.Sprintf("waiting for players (%d/2 seated)", c.reg.ActiveCount())
	}
	return ev
}

// ----------------------------- helpers -------------------------------------

// pickTarget chooses a cryptographically random word from the list.
func pickTarget(words []string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	return strings.ToLower(strings.TrimSpace(words[n.Int64()]))
}

// round4 rounds a similarity to four decimal places, matching the precision
// the scoring service reports.
func round4(s float64) float64 {
	return math.Round(s*10000) / 10000
}
