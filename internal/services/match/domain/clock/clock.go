// Package clock computes per-side remaining time for a match.
//
// There is no ticking process: remaining time is a pure function of the
// persisted per-side budgets, who last completed a turn, and the current
// time. Recomputing on every read keeps the accounting stateless and correct
// across restarts.
package clock

import (
	"time"

	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
)

// Remaining holds the computed per-side remaining seconds.
type Remaining struct {
	White int64
	Black int64
}

// For returns the remaining seconds for color c.
func (r Remaining) For(c board.Color) int64 {
	if c == board.White {
		return r.White
	}
	return r.Black
}

// Compute returns the current remaining time per side.
//
// Exactly one clock runs: the side other than lastDoneBy, since the player
// who has not yet signalled completion is the one on the clock. Before the
// opening roll resolves (lastDoneBy nil) both stored values are returned
// unchanged. Remaining time never goes below zero.
func Compute(whiteSeconds, blackSeconds int64, lastDoneBy *board.Color, lastDoneAt *time.Time, now time.Time) Remaining {
	remaining := Remaining{White: whiteSeconds, Black: blackSeconds}
	if lastDoneBy == nil || lastDoneAt == nil {
		return remaining
	}

	elapsed := int64(now.Sub(*lastDoneAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	switch lastDoneBy.Opponent() {
	case board.White:
		remaining.White = floorZero(whiteSeconds - elapsed)
	case board.Black:
		remaining.Black = floorZero(blackSeconds - elapsed)
	}
	return remaining
}

func floorZero(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
