package board

import apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"

const (
	// NumPoints is the number of points on the board.
	NumPoints = 24
	// CheckersPerColor is the per-color checker count conserved across all
	// legal states (points + bar + off).
	CheckersPerColor = 15
	// Bar is the Move.From sentinel for entering a checker from the bar.
	Bar = -1
)

// Color identifies one of the two sides.
//
// White advances from high indexes toward 0, black from 0 toward 23. The
// asymmetry fixes each side's home board and bear-off direction and must be
// preserved by every rule function.
type Color int

const (
	White Color = iota
	Black
)

// Opponent returns the other color.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// String returns the canonical persisted label for the color.
func (c Color) String() string {
	if c == White {
		return "WHITE"
	}
	return "BLACK"
}

// ParseColor maps a persisted label back to a Color.
func ParseColor(value string) (Color, error) {
	switch value {
	case "WHITE":
		return White, nil
	case "BLACK":
		return Black, nil
	}
	return White, apperrors.WithMetadata(apperrors.CodeInvalidColor, "unknown color", map[string]string{"color": value})
}

// Point holds the checker counts for a single board point. In legal states at
// most one of the two counts is non-zero.
type Point struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Board is a snapshot of checker positions including bar and borne-off counts.
type Board struct {
	Points   [NumPoints]Point `json:"points"`
	BarWhite int              `json:"barWhite"`
	BarBlack int              `json:"barBlack"`
	OffWhite int              `json:"offWhite"`
	OffBlack int              `json:"offBlack"`
}

// New returns the standard backgammon starting position.
func New() Board {
	var b Board
	b.Points[23].White = 2
	b.Points[12].White = 5
	b.Points[7].White = 3
	b.Points[5].White = 5

	b.Points[0].Black = 2
	b.Points[11].Black = 5
	b.Points[16].Black = 3
	b.Points[18].Black = 5
	return b
}

// Checkers returns the number of checkers of color c on point i.
func (b Board) Checkers(i int, c Color) int {
	if i < 0 || i >= NumPoints {
		return 0
	}
	if c == White {
		return b.Points[i].White
	}
	return b.Points[i].Black
}

// Bar returns the number of checkers of color c on the bar.
func (b Board) Bar(c Color) int {
	if c == White {
		return b.BarWhite
	}
	return b.BarBlack
}

// Off returns the number of borne-off checkers for color c.
func (b Board) Off(c Color) int {
	if c == White {
		return b.OffWhite
	}
	return b.OffBlack
}

// Total returns the total checker count for color c across points, bar, and
// off. Legal states always total CheckersPerColor.
func (b Board) Total(c Color) int {
	total := b.Bar(c) + b.Off(c)
	for i := 0; i < NumPoints; i++ {
		total += b.Checkers(i, c)
	}
	return total
}

// Distance returns the pip distance from point i to bearing off for color c.
func Distance(i int, c Color) int {
	if c == White {
		return i + 1
	}
	return NumPoints - i
}

// EntryPoint returns the board index a checker of color c enters on from the
// bar for a given die.
func EntryPoint(die int, c Color) int {
	if c == White {
		return NumPoints - die
	}
	return die - 1
}

// Destination returns the raw landing index for a move of die pips from a
// point. Values outside [0,NumPoints) indicate bearing off.
func Destination(from, die int, c Color) int {
	if c == White {
		return from - die
	}
	return from + die
}

// HomeStart and HomeEnd bound the home quadrant for color c, inclusive.
func homeRange(c Color) (int, int) {
	if c == White {
		return 0, 5
	}
	return 18, 23
}

// CanBearOff reports whether color c is eligible to bear off: no checkers on
// the bar and all remaining checkers inside the home quadrant.
func (b Board) CanBearOff(c Color) bool {
	if b.Bar(c) > 0 {
		return false
	}
	start, end := homeRange(c)
	for i := 0; i < NumPoints; i++ {
		if i >= start && i <= end {
			continue
		}
		if b.Checkers(i, c) > 0 {
			return false
		}
	}
	return true
}

// farthestDistance returns the largest pip distance among color c's checkers
// still on points. Returns 0 when no checkers remain on the board.
func (b Board) farthestDistance(c Color) int {
	farthest := 0
	for i := 0; i < NumPoints; i++ {
		if b.Checkers(i, c) == 0 {
			continue
		}
		if d := Distance(i, c); d > farthest {
			farthest = d
		}
	}
	return farthest
}

func (b *Board) addChecker(i int, c Color) {
	if c == White {
		b.Points[i].White++
	} else {
		b.Points[i].Black++
	}
}

func (b *Board) removeChecker(i int, c Color) {
	if c == White {
		b.Points[i].White--
	} else {
		b.Points[i].Black--
	}
}
