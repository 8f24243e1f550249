// Package service orchestrates match commands over the persistence boundary.
//
// Every command follows the same shape: read the aggregate, apply a pure
// domain transition, write it back under optimistic concurrency, then publish
// the outcome. Lost writes are retried a bounded number of times with fresh
// state. Timeouts are settled lazily: any read or command against a match
// whose active clock is exhausted resolves the timeout before proceeding.
package service

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
	"github.com/gammonhq/gammon.space/internal/platform/id"
	"github.com/gammonhq/gammon.space/internal/platform/random"
	"github.com/gammonhq/gammon.space/internal/services/match/broadcast"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/ai"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/clock"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/dice"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/match"
	"github.com/gammonhq/gammon.space/internal/services/match/storage"
	"github.com/gammonhq/gammon.space/internal/services/match/telemetry"
)

const (
	// maxWriteAttempts bounds optimistic-concurrency retries per command.
	maxWriteAttempts = 3
	// defaultInitialSeconds is the per-side clock budget when none is given.
	defaultInitialSeconds int64 = 600
)

// Service executes match commands against a Store.
type Service struct {
	store     storage.Store
	publisher broadcast.Broadcaster
	emitter   *telemetry.Emitter
	tracer    trace.Tracer
	newRand   func() (*rand.Rand, error)
	newID     func() (string, error)
	now       func() time.Time
	think     func(ctx context.Context, difficulty ai.Difficulty)
	aiTrigger func(matchID string)

	initialSeconds int64
}

// New creates a match service. The broadcaster may be nil, in which case no
// events are published.
func New(store storage.Store, publisher broadcast.Broadcaster, emitter *telemetry.Emitter) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		emitter:   emitter,
		tracer:    otel.Tracer("gammon.space/match"),
		newRand:   seededRand,
		newID:     id.NewID,
		now:       time.Now,
		think:     ai.ThinkingDelay,

		initialSeconds: defaultInitialSeconds,
	}
}

// WithInitialClock sets the per-side clock budget used when match creation
// does not specify one.
func (s *Service) WithInitialClock(seconds int64) *Service {
	if seconds > 0 {
		s.initialSeconds = seconds
	}
	return s
}

// WithClock overrides the service time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRand overrides the per-command randomness source. Used by tests.
func (s *Service) WithRand(newRand func() (*rand.Rand, error)) *Service {
	s.newRand = newRand
	return s
}

// WithIDGenerator overrides match id generation. Used by tests.
func (s *Service) WithIDGenerator(newID func() (string, error)) *Service {
	s.newID = newID
	return s
}

// WithThinkingDelay overrides the AI thinking pause. Used by tests.
func (s *Service) WithThinkingDelay(think func(ctx context.Context, difficulty ai.Difficulty)) *Service {
	s.think = think
	return s
}

// SetAITrigger installs the callback that schedules an AI turn. The worker
// wires itself in here at startup.
func (s *Service) SetAITrigger(trigger func(matchID string)) {
	s.aiTrigger = trigger
}

func seededRand() (*rand.Rand, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSeedUnavailable, "seed random source", err)
	}
	return rand.New(rand.NewSource(seed)), nil
}

// CreateMatchParams carries the inputs for match creation.
type CreateMatchParams struct {
	WhiteUserID string
	BlackUserID string
	// AIOpponent seats the built-in opponent as black.
	AIOpponent     bool
	Difficulty     ai.Difficulty
	InitialSeconds int64
}

// CreateMatch creates a match with its opening draw and the winner's first
// roll already committed.
func (s *Service) CreateMatch(ctx context.Context, params CreateMatchParams) (storage.MatchRecord, error) {
	ctx, span := s.tracer.Start(ctx, "match.create")
	defer span.End()

	matchID, err := s.newID()
	if err != nil {
		return storage.MatchRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "generate match id", err)
	}
	rng, err := s.newRand()
	if err != nil {
		return storage.MatchRecord{}, err
	}

	white := match.Seat{UserID: params.WhiteUserID, Kind: match.PlayerHuman}
	black := match.Seat{UserID: params.BlackUserID, Kind: match.PlayerHuman}
	difficulty := ai.Difficulty("")
	if params.AIOpponent {
		difficulty = params.Difficulty
		if difficulty == "" {
			difficulty = ai.DifficultyMedium
		}
		if _, err := ai.ParseDifficulty(string(difficulty)); err != nil {
			return storage.MatchRecord{}, err
		}
		black = match.Seat{Kind: match.PlayerAI}
	}

	initialSeconds := params.InitialSeconds
	if initialSeconds <= 0 {
		initialSeconds = s.initialSeconds
	}

	state := match.New(matchID, white, black, difficulty, initialSeconds, rng, s.now().UTC())
	record, err := s.store.CreateMatch(ctx, state)
	if err != nil {
		return storage.MatchRecord{}, err
	}

	s.emit(ctx, "match.created", telemetry.SeverityInfo, matchID, params.WhiteUserID, map[string]any{
		"ai_opponent": params.AIOpponent,
	})
	s.publish(ctx, matchID, broadcast.EventStateUpdate, record.Match)
	return record, nil
}

// GetMatch returns a match, settling a lazily detected timeout first. Reading
// a match the built-in opponent holds re-schedules its turn, so an AI turn
// whose trigger was lost is recovered by the next read.
func (s *Service) GetMatch(ctx context.Context, matchID string) (storage.MatchRecord, error) {
	record, err := s.load(ctx, matchID)
	if err != nil {
		return storage.MatchRecord{}, err
	}
	s.scheduleAITurn(record.Match)
	return record, nil
}

// load reads a match and settles a lazily detected timeout, without the AI
// re-scheduling a plain GetMatch performs.
func (s *Service) load(ctx context.Context, matchID string) (storage.MatchRecord, error) {
	if matchID == "" {
		return storage.MatchRecord{}, apperrors.New(apperrors.CodeMatchIDEmpty, "match id is required")
	}
	record, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return storage.MatchRecord{}, err
	}
	return s.settleTimeout(ctx, record)
}

// ResolveOpening reveals the opening draw and assigns the first turn. When
// the built-in opponent wins the draw, its turn is scheduled.
func (s *Service) ResolveOpening(ctx context.Context, matchID string) (storage.MatchRecord, match.OpeningResult, error) {
	ctx, span := s.tracer.Start(ctx, "match.resolve_opening")
	defer span.End()

	var result match.OpeningResult
	record, err := s.mutate(ctx, matchID, func(st match.State) (match.State, error) {
		next, res, err := st.ResolveOpening(s.now().UTC())
		if err != nil {
			return st, err
		}
		result = res
		return next, nil
	})
	if err != nil {
		return storage.MatchRecord{}, match.OpeningResult{}, err
	}

	s.emit(ctx, "match.opening_resolved", telemetry.SeverityInfo, matchID, "", map[string]any{
		"white_die": result.WhiteDie,
		"black_die": result.BlackDie,
		"winner":    result.Winner.String(),
	})
	s.publish(ctx, matchID, broadcast.EventStateUpdate, record.Match)
	s.scheduleAITurn(record.Match)
	return record, result, nil
}

// RequestDice claims the current turn's roll for the given color. Repeat
// requests within a turn return the same locked roll.
func (s *Service) RequestDice(ctx context.Context, matchID string, as board.Color) (storage.MatchRecord, dice.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "match.request_dice")
	defer span.End()

	rng, err := s.newRand()
	if err != nil {
		return storage.MatchRecord{}, dice.Pair{}, err
	}

	var locked dice.Pair
	record, err := s.mutate(ctx, matchID, func(st match.State) (match.State, error) {
		next, pair, err := st.LockDice(as, rng, s.now().UTC())
		if err != nil {
			return st, err
		}
		locked = pair
		return next, nil
	})
	if err != nil {
		return storage.MatchRecord{}, dice.Pair{}, err
	}

	s.emit(ctx, "dice.locked", telemetry.SeverityInfo, matchID, as.String(), map[string]any{
		"die_first":  locked.First,
		"die_second": locked.Second,
	})
	s.publish(ctx, matchID, broadcast.EventStateUpdate, record.Match)
	return record, locked, nil
}

// ProposeMoves validates and applies a move sequence for the given color and
// appends it to the match history.
func (s *Service) ProposeMoves(ctx context.Context, matchID string, as board.Color, seq board.Sequence) (storage.MatchRecord, error) {
	ctx, span := s.tracer.Start(ctx, "match.propose_moves")
	defer span.End()

	var rolled dice.Pair
	record, err := s.mutate(ctx, matchID, func(st match.State) (match.State, error) {
		if st.LockedDice != nil {
			rolled = *st.LockedDice
		}
		return st.ApplySequence(as, seq, s.now().UTC())
	})
	if err != nil {
		return storage.MatchRecord{}, err
	}

	s.appendTurn(ctx, matchID, as, rolled, seq)
	s.publish(ctx, matchID, broadcast.EventMove, seq)
	if record.Match.Status == match.StatusCompleted {
		s.emit(ctx, "match.completed", telemetry.SeverityInfo, matchID, as.String(), map[string]any{
			"end_reason": string(record.Match.EndReason),
		})
		s.publish(ctx, matchID, broadcast.EventMatchEnd, record.Match)
	}
	return record, nil
}

// EndTurn completes the current player's turn and hands play to the opponent.
// When the opponent is the built-in AI, its turn is scheduled.
func (s *Service) EndTurn(ctx context.Context, matchID string, as board.Color) (storage.MatchRecord, error) {
	ctx, span := s.tracer.Start(ctx, "match.end_turn")
	defer span.End()

	rng, err := s.newRand()
	if err != nil {
		return storage.MatchRecord{}, err
	}

	record, err := s.mutate(ctx, matchID, func(st match.State) (match.State, error) {
		return st.EndTurn(as, rng, s.now().UTC())
	})
	if err != nil {
		return storage.MatchRecord{}, err
	}

	s.publish(ctx, matchID, broadcast.EventTimerUpdate, record.Match.Remaining(s.now().UTC()))
	s.publish(ctx, matchID, broadcast.EventStateUpdate, record.Match)
	if record.Match.Status == match.StatusCompleted {
		s.emit(ctx, "match.completed", telemetry.SeverityInfo, matchID, as.String(), map[string]any{
			"end_reason": string(record.Match.EndReason),
		})
		s.publish(ctx, matchID, broadcast.EventMatchEnd, record.Match)
		return record, nil
	}
	s.scheduleAITurn(record.Match)
	return record, nil
}

// Resign ends the match with the resigning player's opponent as winner.
func (s *Service) Resign(ctx context.Context, matchID string, as board.Color) (storage.MatchRecord, error) {
	return s.terminate(ctx, matchID, as.String(), func(st match.State) (match.State, error) {
		return st.Resign(as, s.now().UTC())
	})
}

// Abandon ends the match against the abandoning player.
func (s *Service) Abandon(ctx context.Context, matchID string, as board.Color) (storage.MatchRecord, error) {
	return s.terminate(ctx, matchID, as.String(), func(st match.State) (match.State, error) {
		return st.Abandon(as, s.now().UTC())
	})
}

// AdminCancel terminates the match with no winner.
func (s *Service) AdminCancel(ctx context.Context, matchID string) (storage.MatchRecord, error) {
	return s.terminate(ctx, matchID, "admin", func(st match.State) (match.State, error) {
		return st.AdminCancel(s.now().UTC())
	})
}

func (s *Service) terminate(ctx context.Context, matchID, actor string, fn func(match.State) (match.State, error)) (storage.MatchRecord, error) {
	ctx, span := s.tracer.Start(ctx, "match.terminate")
	defer span.End()

	record, err := s.mutate(ctx, matchID, fn)
	if err != nil {
		return storage.MatchRecord{}, err
	}

	s.emit(ctx, "match.completed", telemetry.SeverityInfo, matchID, actor, map[string]any{
		"end_reason": string(record.Match.EndReason),
	})
	s.publish(ctx, matchID, broadcast.EventMatchEnd, record.Match)
	return record, nil
}

// CheckTimeout settles an exhausted clock for the match, reporting whether a
// timeout fired on this call.
func (s *Service) CheckTimeout(ctx context.Context, matchID string) (storage.MatchRecord, bool, error) {
	if matchID == "" {
		return storage.MatchRecord{}, false, apperrors.New(apperrors.CodeMatchIDEmpty, "match id is required")
	}
	record, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return storage.MatchRecord{}, false, err
	}
	before := record.Match.Status
	settled, err := s.settleTimeout(ctx, record)
	if err != nil {
		return storage.MatchRecord{}, false, err
	}
	fired := before == match.StatusActive && settled.Match.Status == match.StatusCompleted &&
		settled.Match.EndReason == match.EndReasonTimeout
	return settled, fired, nil
}

// Remaining returns current per-side clock values without mutating the match.
func (s *Service) Remaining(ctx context.Context, matchID string) (clock.Remaining, error) {
	record, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return clock.Remaining{}, err
	}
	return record.Match.Remaining(s.now().UTC()), nil
}

// ListTurns returns the match's move history in turn order.
func (s *Service) ListTurns(ctx context.Context, matchID string) ([]storage.TurnRecord, error) {
	if matchID == "" {
		return nil, apperrors.New(apperrors.CodeMatchIDEmpty, "match id is required")
	}
	return s.store.ListTurns(ctx, matchID)
}

// Statistics returns aggregate match counters.
func (s *Service) Statistics(ctx context.Context) (storage.MatchStatistics, error) {
	return s.store.GetMatchStatistics(ctx)
}

// PlayAITurn executes one full AI turn: claim dice, pick a sequence, apply
// it, and end the turn. The whole turn commits as a single conditional write
// so a concurrent human command can never observe a half-played AI turn.
func (s *Service) PlayAITurn(ctx context.Context, matchID string) error {
	ctx, span := s.tracer.Start(ctx, "match.play_ai_turn")
	defer span.End()

	rng, err := s.newRand()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		record, err := s.load(ctx, matchID)
		if err != nil {
			return err
		}
		if !record.Match.IsAITurn() {
			return nil
		}

		current := record.Match.CurrentPlayer
		state, rolled, err := record.Match.LockDice(current, rng, s.now().UTC())
		if err != nil {
			return err
		}

		s.think(ctx, state.AIDifficulty)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Timestamp the turn after the thinking pause so the delay counts
		// against the AI's own clock, never the opponent's.
		now := s.now().UTC()

		legal := board.EnumerateSequences(state.Board, rolled.First, rolled.Second, current)
		seq, err := ai.Select(rng, state.Board, legal, current, state.AIDifficulty)
		if err != nil {
			return err
		}
		if len(seq) == 0 {
			log.Printf("ai turn forced pass match_id=%s dice=%d,%d", matchID, rolled.First, rolled.Second)
		}

		state, err = state.ApplySequence(current, seq, now)
		if err != nil {
			return err
		}
		if state.Status == match.StatusActive {
			state, err = state.EndTurn(current, rng, now)
			if err != nil {
				return err
			}
		}

		updated, err := s.store.UpdateMatch(ctx, state, record.Version)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}

		s.appendTurn(ctx, matchID, current, rolled, seq)
		s.publish(ctx, matchID, broadcast.EventMove, seq)
		s.publish(ctx, matchID, broadcast.EventStateUpdate, updated.Match)
		if updated.Match.Status == match.StatusCompleted {
			s.emit(ctx, "match.completed", telemetry.SeverityInfo, matchID, "ai", map[string]any{
				"end_reason": string(updated.Match.EndReason),
			})
			s.publish(ctx, matchID, broadcast.EventMatchEnd, updated.Match)
		}
		return nil
	}
	return storage.ErrVersionConflict
}

// mutate runs a domain transition under bounded optimistic-concurrency
// retries, settling a lazy timeout before each attempt.
func (s *Service) mutate(ctx context.Context, matchID string, fn func(match.State) (match.State, error)) (storage.MatchRecord, error) {
	if matchID == "" {
		return storage.MatchRecord{}, apperrors.New(apperrors.CodeMatchIDEmpty, "match id is required")
	}

	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		record, err := s.store.GetMatch(ctx, matchID)
		if err != nil {
			return storage.MatchRecord{}, err
		}
		record, err = s.settleTimeout(ctx, record)
		if err != nil {
			return storage.MatchRecord{}, err
		}

		next, err := fn(record.Match)
		if err != nil {
			return storage.MatchRecord{}, err
		}

		updated, err := s.store.UpdateMatch(ctx, next, record.Version)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return storage.MatchRecord{}, err
		}
		lastErr = err
	}
	return storage.MatchRecord{}, lastErr
}

// settleTimeout persists a lazily detected timeout. Losing the conditional
// write is fine: the concurrent writer observed the same exhausted clock.
func (s *Service) settleTimeout(ctx context.Context, record storage.MatchRecord) (storage.MatchRecord, error) {
	next, fired := record.Match.CheckTimeout(s.now().UTC())
	if !fired {
		return record, nil
	}

	updated, err := s.store.UpdateMatch(ctx, next, record.Version)
	if errors.Is(err, storage.ErrVersionConflict) {
		return s.store.GetMatch(ctx, record.Match.ID)
	}
	if err != nil {
		return storage.MatchRecord{}, err
	}

	s.emit(ctx, "match.timeout", telemetry.SeverityWarning, record.Match.ID, "", map[string]any{
		"winner": winnerName(updated.Match.Winner),
	})
	s.publish(ctx, record.Match.ID, broadcast.EventMatchEnd, updated.Match)
	return updated, nil
}

func (s *Service) appendTurn(ctx context.Context, matchID string, as board.Color, rolled dice.Pair, seq board.Sequence) {
	turns, err := s.store.ListTurns(ctx, matchID)
	if err != nil {
		log.Printf("list turns for history append match_id=%s error=%v", matchID, err)
		return
	}
	record := storage.TurnRecord{
		MatchID:  matchID,
		Turn:     len(turns) + 1,
		Color:    as,
		Dice:     rolled,
		Moves:    seq,
		PlayedAt: s.now().UTC(),
	}
	if err := s.store.AppendTurn(ctx, record); err != nil {
		log.Printf("append turn history match_id=%s turn=%d error=%v", matchID, record.Turn, err)
	}
}

// scheduleAITurn queues an AI turn when the built-in opponent holds the
// current turn and a trigger is installed.
func (s *Service) scheduleAITurn(st match.State) {
	if st.IsAITurn() && s.aiTrigger != nil {
		s.aiTrigger(st.ID)
	}
}

func (s *Service) publish(ctx context.Context, matchID string, event broadcast.EventType, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, matchID, event, payload); err != nil {
		log.Printf("broadcast publish match_id=%s event=%s error=%v", matchID, event, err)
	}
}

func (s *Service) emit(ctx context.Context, name, severity, matchID, actor string, attributes map[string]any) {
	s.emitter.Emit(ctx, name, severity, matchID, actor, attributes)
}

func winnerName(winner *board.Color) string {
	if winner == nil {
		return ""
	}
	return winner.String()
}
