// Package match holds the match aggregate and its turn protocol.
//
// The aggregate is one closed state record mutated only through total
// transition functions. Dice issuance follows an anti-cheat protocol: a roll
// for the next player is generated exactly once when the current player
// signals completion, and a locked roll is never regenerated within a turn,
// so reloading a client can never produce fresh dice.
package match

import (
	"math/rand"
	"time"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/ai"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/clock"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/dice"
)

// Phase is the position of a match within its turn protocol.
type Phase string

const (
	// PhaseOpening covers match creation until the opening draw resolves.
	PhaseOpening Phase = "OPENING"
	// PhaseWaiting means the current player has not yet claimed their dice.
	PhaseWaiting Phase = "WAITING"
	// PhaseMoving means dice are locked and moves are being applied.
	PhaseMoving Phase = "MOVING"
)

// Status is the match lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// EndReason records why a completed match ended.
type EndReason string

const (
	EndReasonWin         EndReason = "WIN"
	EndReasonResignation EndReason = "RESIGNATION"
	EndReasonTimeout     EndReason = "TIMEOUT"
	EndReasonAbandonment EndReason = "ABANDONMENT"
	EndReasonCancelled   EndReason = "ADMIN_CANCELLED"
)

// PlayerKind distinguishes human seats from the built-in opponent.
type PlayerKind string

const (
	PlayerHuman PlayerKind = "HUMAN"
	PlayerAI    PlayerKind = "AI"
)

// Seat binds a color to an identity and a player kind. Kind is set once at
// creation; AI detection never compares identities against sentinels.
type Seat struct {
	UserID string     `json:"userId"`
	Kind   PlayerKind `json:"kind"`
}

// State is the match aggregate root.
//
// PendingDice is the unseen pre-generated roll for the next player and is
// never revealed to clients. LockedDice is the current turn's committed roll.
// The two are mutually exclusive nullable slots, which removes any ambiguity
// between "no dice yet" and "dice already consumed".
type State struct {
	ID            string        `json:"id"`
	Board         board.Board   `json:"board"`
	CurrentPlayer board.Color   `json:"currentPlayer"`
	Phase         Phase         `json:"phase"`
	Status        Status        `json:"status"`
	WhiteSeat     Seat          `json:"whiteSeat"`
	BlackSeat     Seat          `json:"blackSeat"`
	AIDifficulty  ai.Difficulty `json:"aiDifficulty,omitempty"`

	WhiteSeconds int64 `json:"whiteSeconds"`
	BlackSeconds int64 `json:"blackSeconds"`

	LastDoneBy    *board.Color `json:"lastDoneBy,omitempty"`
	LastDoneAt    *time.Time   `json:"lastDoneAt,omitempty"`
	TurnCompleted bool         `json:"turnCompleted"`
	// MovesApplied marks that the locked roll has been spent on a sequence.
	// One roll buys exactly one sequence.
	MovesApplied bool `json:"movesApplied"`

	// OpeningDice is the decisive one-die-per-side draw, pre-generated at
	// creation. First is white's die.
	OpeningDice *dice.Pair `json:"openingDice,omitempty"`
	PendingDice *dice.Pair `json:"pendingDice,omitempty"`
	LockedDice  *dice.Pair `json:"lockedDice,omitempty"`

	Winner    *board.Color `json:"winner,omitempty"`
	EndReason EndReason    `json:"endReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a match in the opening phase.
//
// Both the opening draw and the winner's first roll are committed here, before
// the winner is known. Revealing a pre-committed first roll at resolution time
// closes the refresh-to-reroll exploit for the advantaged first turn.
func New(id string, white, black Seat, difficulty ai.Difficulty, initialSeconds int64, rng *rand.Rand, now time.Time) State {
	whiteDie, blackDie := dice.OpeningDraw(rng)
	opening := dice.Pair{First: whiteDie, Second: blackDie}
	first := dice.Roll(rng)

	return State{
		ID:            id,
		Board:         board.New(),
		CurrentPlayer: board.White,
		Phase:         PhaseOpening,
		Status:        StatusActive,
		WhiteSeat:     white,
		BlackSeat:     black,
		AIDifficulty:  difficulty,
		WhiteSeconds:  initialSeconds,
		BlackSeconds:  initialSeconds,
		OpeningDice:   &opening,
		PendingDice:   &first,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Seat returns the seat for a color.
func (s State) Seat(c board.Color) Seat {
	if c == board.White {
		return s.WhiteSeat
	}
	return s.BlackSeat
}

// IsAITurn reports whether the built-in opponent holds the current turn.
func (s State) IsAITurn() bool {
	return s.Status == StatusActive && s.Phase != PhaseOpening && s.Seat(s.CurrentPlayer).Kind == PlayerAI
}

// Remaining computes current per-side clock values.
func (s State) Remaining(now time.Time) clock.Remaining {
	return clock.Compute(s.WhiteSeconds, s.BlackSeconds, s.LastDoneBy, s.LastDoneAt, now)
}

// OpeningResult describes a resolved opening draw.
type OpeningResult struct {
	WhiteDie int
	BlackDie int
	Winner   board.Color
}

// ResolveOpening reveals the pre-committed opening draw and hands the first
// turn to the winner. The winner's first roll stays in the pending slot until
// they claim it. The loser is marked as having "done" so the winner's clock
// starts running.
func (s State) ResolveOpening(now time.Time) (State, OpeningResult, error) {
	if s.Status != StatusActive {
		return s, OpeningResult{}, apperrors.New(apperrors.CodeMatchCompleted, "match already completed")
	}
	if s.Phase != PhaseOpening {
		return s, OpeningResult{}, apperrors.New(apperrors.CodeInvalidState, "opening already resolved")
	}
	if s.OpeningDice == nil {
		return s, OpeningResult{}, apperrors.New(apperrors.CodeInvalidState, "opening dice missing")
	}

	result := OpeningResult{WhiteDie: s.OpeningDice.First, BlackDie: s.OpeningDice.Second, Winner: board.White}
	if result.BlackDie > result.WhiteDie {
		result.Winner = board.Black
	}

	loser := result.Winner.Opponent()
	s.CurrentPlayer = result.Winner
	s.Phase = PhaseWaiting
	s.LastDoneBy = colorPtr(loser)
	s.LastDoneAt = timePtr(now)
	s.TurnCompleted = false
	s.UpdatedAt = now
	return s, result, nil
}

// LockDice claims the current turn's roll.
//
// The first request moves the pending roll into the locked slot; every later
// request in the same turn returns the locked roll unchanged, so a client
// reload can never re-roll. When no pending roll exists a fresh roll is
// generated and locked immediately as a defensive fallback.
func (s State) LockDice(as board.Color, rng *rand.Rand, now time.Time) (State, dice.Pair, error) {
	if s.Status != StatusActive {
		return s, dice.Pair{}, apperrors.New(apperrors.CodeMatchCompleted, "match already completed")
	}
	if s.Phase == PhaseOpening {
		return s, dice.Pair{}, apperrors.New(apperrors.CodeInvalidState, "opening roll not resolved")
	}
	if as != s.CurrentPlayer {
		return s, dice.Pair{}, apperrors.WithMetadata(apperrors.CodeNotYourTurn, "not your turn", map[string]string{
			"color": as.String(),
		})
	}

	if s.LockedDice != nil {
		return s, *s.LockedDice, nil
	}

	var locked dice.Pair
	if s.PendingDice != nil {
		locked = *s.PendingDice
	} else {
		locked = dice.Roll(rng)
	}
	s.PendingDice = nil
	s.LockedDice = &locked
	s.Phase = PhaseMoving
	s.TurnCompleted = false
	s.MovesApplied = false
	s.UpdatedAt = now
	return s, locked, nil
}

// ApplySequence validates a proposed move sequence against the legal set for
// the locked dice and applies it. A locked roll is spent by its first applied
// sequence; further proposals in the same turn are rejected, so one roll can
// never buy more than one set of moves. Rule violations leave the state
// untouched. Bearing off the fifteenth checker completes the match
// immediately.
func (s State) ApplySequence(as board.Color, seq board.Sequence, now time.Time) (State, error) {
	if s.Status != StatusActive {
		return s, apperrors.New(apperrors.CodeMatchCompleted, "match already completed")
	}
	if s.Phase != PhaseMoving {
		return s, apperrors.New(apperrors.CodeInvalidState, "dice not claimed for this turn")
	}
	if as != s.CurrentPlayer {
		return s, apperrors.WithMetadata(apperrors.CodeNotYourTurn, "not your turn", map[string]string{
			"color": as.String(),
		})
	}
	if s.LockedDice == nil {
		return s, apperrors.New(apperrors.CodeDiceNotLocked, "no locked dice for this turn")
	}
	if s.MovesApplied {
		return s, apperrors.New(apperrors.CodeInvalidState, "moves already played for the locked dice")
	}

	legal := board.EnumerateSequences(s.Board, s.LockedDice.First, s.LockedDice.Second, as)
	if !containsSequence(legal, seq) {
		return s, apperrors.New(apperrors.CodeIllegalMove, "sequence is not among the legal moves for the locked dice")
	}

	next := s.Board
	for _, mv := range seq {
		applied, err := next.Apply(mv, as)
		if err != nil {
			return s, err
		}
		next = applied
	}

	s.Board = next
	s.MovesApplied = true
	s.UpdatedAt = now

	if next.Off(as) == board.CheckersPerColor {
		return s.complete(colorPtr(as), EndReasonWin, now), nil
	}
	return s, nil
}

// EndTurn finishes the current player's turn: clocks are settled, the locked
// roll is discarded, the pending roll for the opponent is generated exactly
// once, and the turn flips. The locked roll must have been spent first, so a
// player cannot skip a playable roll. A depleted clock terminates the match
// with the opponent as winner instead of switching turns.
func (s State) EndTurn(as board.Color, rng *rand.Rand, now time.Time) (State, error) {
	if s.Status != StatusActive {
		return s, apperrors.New(apperrors.CodeMatchCompleted, "match already completed")
	}
	if s.Phase != PhaseMoving {
		return s, apperrors.New(apperrors.CodeInvalidState, "no turn in progress")
	}
	if as != s.CurrentPlayer {
		return s, apperrors.WithMetadata(apperrors.CodeNotYourTurn, "not your turn", map[string]string{
			"color": as.String(),
		})
	}

	remaining := s.Remaining(now)
	s.WhiteSeconds = remaining.White
	s.BlackSeconds = remaining.Black
	if remaining.For(as) == 0 {
		return s.complete(colorPtr(as.Opponent()), EndReasonTimeout, now), nil
	}
	if !s.MovesApplied {
		return s, apperrors.New(apperrors.CodeInvalidState, "locked dice not played")
	}

	pending := dice.Roll(rng)
	s.LockedDice = nil
	s.PendingDice = &pending
	s.TurnCompleted = true
	s.MovesApplied = false
	s.LastDoneBy = colorPtr(as)
	s.LastDoneAt = timePtr(now)
	s.CurrentPlayer = as.Opponent()
	s.Phase = PhaseWaiting
	s.UpdatedAt = now
	return s, nil
}

// CheckTimeout terminates the match when the side on the clock has run out of
// time. The boolean reports whether a timeout fired.
func (s State) CheckTimeout(now time.Time) (State, bool) {
	if s.Status != StatusActive || s.LastDoneBy == nil {
		return s, false
	}
	remaining := s.Remaining(now)
	active := s.LastDoneBy.Opponent()
	if remaining.For(active) > 0 {
		return s, false
	}
	s.WhiteSeconds = remaining.White
	s.BlackSeconds = remaining.Black
	return s.complete(s.LastDoneBy, EndReasonTimeout, now), true
}

// Resign ends the match with the resigning player's opponent as winner.
func (s State) Resign(as board.Color, now time.Time) (State, error) {
	return s.concede(as, EndReasonResignation, now)
}

// Abandon ends the match against the abandoning player.
func (s State) Abandon(as board.Color, now time.Time) (State, error) {
	return s.concede(as, EndReasonAbandonment, now)
}

// AdminCancel terminates the match with no winner.
func (s State) AdminCancel(now time.Time) (State, error) {
	if s.Status != StatusActive {
		return s, apperrors.New(apperrors.CodeMatchCompleted, "match already completed")
	}
	return s.complete(nil, EndReasonCancelled, now), nil
}

func (s State) concede(as board.Color, reason EndReason, now time.Time) (State, error) {
	if s.Status != StatusActive {
		return s, apperrors.New(apperrors.CodeMatchCompleted, "match already completed")
	}
	return s.complete(colorPtr(as.Opponent()), reason, now), nil
}

// complete is the single terminal transition. Completed matches are never
// resumed: dice slots are cleared so no roll survives the end of play.
func (s State) complete(winner *board.Color, reason EndReason, now time.Time) State {
	s.Status = StatusCompleted
	s.Winner = winner
	s.EndReason = reason
	s.PendingDice = nil
	s.LockedDice = nil
	s.TurnCompleted = true
	s.UpdatedAt = now
	return s
}

func containsSequence(legal []board.Sequence, candidate board.Sequence) bool {
	for _, seq := range legal {
		if seq.Equal(candidate) {
			return true
		}
	}
	return false
}

func colorPtr(c board.Color) *board.Color { return &c }

func timePtr(t time.Time) *time.Time { return &t }
