// Package ai scores and selects move sequences for the non-human opponent.
//
// The selector is a deterministic, heuristic-weighted ranker: it never rolls
// out positions or evaluates networks. Difficulty controls both the factor
// weights and how greedily the ranked list is sampled.
package ai

import (
	"context"
	"math/rand"
	"sort"
	"time"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
)

// Difficulty selects the opponent strength tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	DifficultyExpert Difficulty = "EXPERT"
)

// ParseDifficulty maps a persisted label back to a Difficulty.
func ParseDifficulty(value string) (Difficulty, error) {
	switch Difficulty(value) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return Difficulty(value), nil
	}
	return "", apperrors.WithMetadata(apperrors.CodeInvalidDifficulty, "unknown difficulty", map[string]string{
		"difficulty": value,
	})
}

// weights tunes the four scoring factors per tier. Easy ignores scores
// entirely, so its weights only matter for logging.
type weights struct {
	safety      float64
	advancement float64
	blocking    float64
	hitting     float64
}

var weightsByDifficulty = map[Difficulty]weights{
	DifficultyEasy:   {safety: 1, advancement: 1, blocking: 1, hitting: 2},
	DifficultyMedium: {safety: 2, advancement: 1, blocking: 2, hitting: 4},
	DifficultyHard:   {safety: 4, advancement: 1, blocking: 3, hitting: 6},
	DifficultyExpert: {safety: 6, advancement: 1, blocking: 4, hitting: 8},
}

// Select picks one sequence among the legal candidates.
//
// Easy picks uniformly at random. Medium and hard sample uniformly from the
// top 50% and 25% by score. Expert always plays a highest-scoring sequence.
// Ties inside a pool are broken by uniform random choice.
func Select(rng *rand.Rand, b board.Board, sequences []board.Sequence, c board.Color, difficulty Difficulty) (board.Sequence, error) {
	if len(sequences) == 0 {
		return nil, apperrors.New(apperrors.CodeEmptySequence, "no sequences to select from")
	}

	if difficulty == DifficultyEasy {
		return sequences[rng.Intn(len(sequences))], nil
	}

	w, ok := weightsByDifficulty[difficulty]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidDifficulty, "unknown difficulty", map[string]string{
			"difficulty": string(difficulty),
		})
	}

	type scored struct {
		sequence board.Sequence
		score    float64
	}
	ranked := make([]scored, 0, len(sequences))
	for _, seq := range sequences {
		ranked = append(ranked, scored{sequence: seq, score: scoreSequence(b, seq, c, w)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	var pool []scored
	switch difficulty {
	case DifficultyMedium:
		pool = ranked[:poolSize(len(ranked), 2)]
	case DifficultyHard:
		pool = ranked[:poolSize(len(ranked), 4)]
	default: // expert: every sequence tied with the best
		best := ranked[0].score
		for _, entry := range ranked {
			if entry.score < best {
				break
			}
			pool = append(pool, entry)
		}
	}

	return pool[rng.Intn(len(pool))].sequence, nil
}

// poolSize returns n divided by divisor, never below one.
func poolSize(n, divisor int) int {
	size := n / divisor
	if size < 1 {
		size = 1
	}
	return size
}

// scoreSequence sums per-move scores across the sequence, applying each move
// before scoring the next so later moves see the intermediate board.
func scoreSequence(b board.Board, seq board.Sequence, c board.Color, w weights) float64 {
	total := 0.0
	current := b
	for _, mv := range seq {
		next, err := current.Apply(mv, c)
		if err != nil {
			// Illegal continuation scores as worthless; the caller validates
			// sequences before selection.
			return 0
		}
		total += scoreMove(current, next, mv, c, w)
		current = next
	}
	return total
}

// scoreMove applies the four weighted factors to a single move. before is the
// board the move was played on, after the resulting board.
func scoreMove(before, after board.Board, mv board.Move, c board.Color, w weights) float64 {
	score := 0.0
	opp := c.Opponent()

	// Hitting: landing on a lone opposing checker is the strongest motivator.
	if !mv.IsBearOff() && before.Checkers(mv.To, opp) == 1 {
		score += w.hitting
	}

	// Blocking: reinforcing or creating a made point.
	if !mv.IsBearOff() && before.Checkers(mv.To, c) >= 1 {
		score += w.blocking
	}

	// Advancement: proportional to pips covered.
	pips := mv.Die
	if mv.IsBearOff() {
		pips = board.Distance(mv.From, c)
	}
	score += w.advancement * float64(pips)

	// Safety: an exposed blot under threat scores negatively; a safe landing
	// or a borne-off checker scores positively.
	switch {
	case mv.IsBearOff():
		score += w.safety
	case after.Checkers(mv.To, c) == 1 && blotThreatened(after, mv.To, c):
		score -= w.safety
	case after.Checkers(mv.To, c) >= 2:
		score += w.safety
	}

	return score
}

// blotThreatened reports whether an opposing checker can reach the point
// within a single die value. An opponent waiting on the bar always counts as
// a threat because its entry square is dictated by the dice, not by choice.
func blotThreatened(b board.Board, point int, c board.Color) bool {
	opp := c.Opponent()
	if b.Bar(opp) > 0 {
		return true
	}
	for die := 1; die <= 6; die++ {
		var from int
		if opp == board.White {
			from = point + die
		} else {
			from = point - die
		}
		if from < 0 || from >= board.NumPoints {
			continue
		}
		if b.Checkers(from, opp) > 0 {
			return true
		}
	}
	return false
}

// thinkingDelayByDifficulty approximates deliberation for perceived realism.
// The delay is cosmetic: correctness never depends on it.
var thinkingDelayByDifficulty = map[Difficulty]time.Duration{
	DifficultyEasy:   500 * time.Millisecond,
	DifficultyMedium: time.Second,
	DifficultyHard:   1500 * time.Millisecond,
	DifficultyExpert: 2 * time.Second,
}

// ThinkingDelay waits the tier's cosmetic delay, returning early when the
// context is cancelled.
func ThinkingDelay(ctx context.Context, difficulty Difficulty) {
	delay, ok := thinkingDelayByDifficulty[difficulty]
	if !ok {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
