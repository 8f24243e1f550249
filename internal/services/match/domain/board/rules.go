package board

import (
	"strconv"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
)

// Move is a single checker movement consuming one die value.
//
// From == Bar denotes entry from the bar. A To outside [0,NumPoints) denotes
// bearing off.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
	Die  int `json:"die"`
}

// IsEnter reports whether the move enters a checker from the bar.
func (m Move) IsEnter() bool {
	return m.From == Bar
}

// IsBearOff reports whether the move bears a checker off the board.
func (m Move) IsBearOff() bool {
	return m.To < 0 || m.To >= NumPoints
}

func illegal(message string, m Move) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeIllegalMove, message, map[string]string{
		"from": strconv.Itoa(m.From),
		"to":   strconv.Itoa(m.To),
		"die":  strconv.Itoa(m.Die),
	})
}

// Apply validates and applies a single move for color c, returning the
// resulting board. The receiver is never modified.
func (b Board) Apply(m Move, c Color) (Board, error) {
	if m.Die < 1 || m.Die > 6 {
		return b, apperrors.WithMetadata(apperrors.CodeDiceInvalidValue, "die out of range", map[string]string{
			"die": strconv.Itoa(m.Die),
		})
	}

	if m.IsEnter() {
		return b.applyEnter(m, c)
	}

	if b.Bar(c) > 0 {
		return b, illegal("checkers on the bar must enter first", m)
	}
	if m.From < 0 || m.From >= NumPoints {
		return b, illegal("source point out of range", m)
	}
	if b.Checkers(m.From, c) == 0 {
		return b, illegal("no checker on source point", m)
	}

	dest := Destination(m.From, m.Die, c)
	if dest < 0 || dest >= NumPoints {
		if !m.IsBearOff() {
			return b, illegal("destination does not match die", m)
		}
		return b.applyBearOff(m, c)
	}
	if m.To != dest {
		return b, illegal("destination does not match die", m)
	}
	if b.Checkers(dest, c.Opponent()) >= 2 {
		return b, illegal("destination point is blocked", m)
	}

	b.removeChecker(m.From, c)
	b.land(dest, c)
	return b, nil
}

// applyEnter handles bar entry: the entry point is fixed by the die and the
// moving color, and blocked points reject the entry.
func (b Board) applyEnter(m Move, c Color) (Board, error) {
	if b.Bar(c) == 0 {
		return b, illegal("no checker on the bar", m)
	}
	entry := EntryPoint(m.Die, c)
	if m.To != entry {
		return b, illegal("entry point does not match die", m)
	}
	if b.Checkers(entry, c.Opponent()) >= 2 {
		return b, illegal("entry point is blocked", m)
	}

	if c == White {
		b.BarWhite--
	} else {
		b.BarBlack--
	}
	b.land(entry, c)
	return b, nil
}

// applyBearOff handles removal from the board. A die larger than the checker's
// pip distance is legal only when no checker of the same color sits farther
// from off.
func (b Board) applyBearOff(m Move, c Color) (Board, error) {
	if !b.CanBearOff(c) {
		return b, illegal("not all checkers in home board", m)
	}
	dist := Distance(m.From, c)
	if m.Die != dist {
		if m.Die < dist {
			return b, illegal("die too small to bear off", m)
		}
		if b.farthestDistance(c) > dist {
			return b, illegal("farther checker must move first", m)
		}
	}

	b.removeChecker(m.From, c)
	if c == White {
		b.OffWhite++
	} else {
		b.OffBlack++
	}
	return b, nil
}

// land places a checker on an in-range point, hitting a lone opposing blot.
func (b *Board) land(dest int, c Color) {
	opp := c.Opponent()
	if b.Checkers(dest, opp) == 1 {
		b.removeChecker(dest, opp)
		if opp == White {
			b.BarWhite++
		} else {
			b.BarBlack++
		}
	}
	b.addChecker(dest, c)
}
