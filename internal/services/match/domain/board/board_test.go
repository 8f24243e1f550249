package board

import (
	"errors"
	"testing"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
)

func TestNew_StartingPosition(t *testing.T) {
	b := New()

	for _, c := range []Color{White, Black} {
		if got := b.Total(c); got != CheckersPerColor {
			t.Errorf("Total(%v) = %d, want %d", c, got, CheckersPerColor)
		}
		if got := b.Bar(c); got != 0 {
			t.Errorf("Bar(%v) = %d, want 0", c, got)
		}
		if got := b.Off(c); got != 0 {
			t.Errorf("Off(%v) = %d, want 0", c, got)
		}
	}

	if got := b.Checkers(23, White); got != 2 {
		t.Errorf("Checkers(23, White) = %d, want 2", got)
	}
	if got := b.Checkers(0, Black); got != 2 {
		t.Errorf("Checkers(0, Black) = %d, want 2", got)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name  string
		point int
		color Color
		want  int
	}{
		{"white on ace point", 0, White, 1},
		{"white farthest", 23, White, 24},
		{"black on ace point", 23, Black, 1},
		{"black farthest", 0, Black, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.point, tt.color); got != tt.want {
				t.Errorf("Distance(%d, %v) = %d, want %d", tt.point, tt.color, got, tt.want)
			}
		})
	}
}

func TestEntryPoint(t *testing.T) {
	tests := []struct {
		color Color
		die   int
		want  int
	}{
		{White, 1, 23},
		{White, 6, 18},
		{Black, 1, 0},
		{Black, 6, 5},
	}
	for _, tt := range tests {
		if got := EntryPoint(tt.die, tt.color); got != tt.want {
			t.Errorf("EntryPoint(%d, %v) = %d, want %d", tt.die, tt.color, got, tt.want)
		}
	}
}

func TestApply_HitSendsBlotToBar(t *testing.T) {
	var b Board
	b.Points[10].White = 1
	b.Points[7].Black = 1

	got, err := b.Apply(Move{From: 10, To: 7, Die: 3}, White)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Checkers(7, White) != 1 {
		t.Errorf("destination white count = %d, want 1", got.Checkers(7, White))
	}
	if got.Checkers(7, Black) != 0 {
		t.Errorf("destination black count = %d, want 0", got.Checkers(7, Black))
	}
	if got.Bar(Black) != 1 {
		t.Errorf("black bar = %d, want 1", got.Bar(Black))
	}
}

func TestApply_BlockedDestinationRejected(t *testing.T) {
	var b Board
	b.Points[10].White = 1
	b.Points[7].Black = 2

	_, err := b.Apply(Move{From: 10, To: 7, Die: 3}, White)
	if !errors.Is(err, apperrors.New(apperrors.CodeIllegalMove, "")) {
		t.Fatalf("Apply() error = %v, want ILLEGAL_MOVE", err)
	}
}

func TestApply_EmptySourceRejected(t *testing.T) {
	var b Board
	b.Points[10].White = 1

	_, err := b.Apply(Move{From: 9, To: 6, Die: 3}, White)
	if !errors.Is(err, apperrors.New(apperrors.CodeIllegalMove, "")) {
		t.Fatalf("Apply() error = %v, want ILLEGAL_MOVE", err)
	}
}

func TestApply_BarEntryRequiredFirst(t *testing.T) {
	var b Board
	b.BarWhite = 1
	b.Points[10].White = 1

	_, err := b.Apply(Move{From: 10, To: 7, Die: 3}, White)
	if !errors.Is(err, apperrors.New(apperrors.CodeIllegalMove, "")) {
		t.Fatalf("Apply() error = %v, want ILLEGAL_MOVE", err)
	}

	got, err := b.Apply(Move{From: Bar, To: 21, Die: 3}, White)
	if err != nil {
		t.Fatalf("Apply(bar entry) error = %v", err)
	}
	if got.Bar(White) != 0 {
		t.Errorf("white bar = %d, want 0", got.Bar(White))
	}
	if got.Checkers(21, White) != 1 {
		t.Errorf("entry point white count = %d, want 1", got.Checkers(21, White))
	}
}

func TestApply_BarEntryBlocked(t *testing.T) {
	var b Board
	b.BarBlack = 1
	b.Points[3].White = 2

	_, err := b.Apply(Move{From: Bar, To: 3, Die: 4}, Black)
	if !errors.Is(err, apperrors.New(apperrors.CodeIllegalMove, "")) {
		t.Fatalf("Apply() error = %v, want ILLEGAL_MOVE", err)
	}
}

func TestApply_BearOffExactDie(t *testing.T) {
	var b Board
	b.Points[2].White = 1
	b.OffWhite = 14

	got, err := b.Apply(Move{From: 2, To: -1, Die: 3}, White)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Off(White) != 15 {
		t.Errorf("white off = %d, want 15", got.Off(White))
	}
}

func TestApply_BearOffOvershootRules(t *testing.T) {
	// Overshoot is only legal from the checker farthest from off: a white
	// checker at a higher index than the mover forbids it.
	t.Run("overshoot allowed from farthest checker", func(t *testing.T) {
		var b Board
		b.Points[2].White = 1
		b.Points[0].White = 1
		b.OffWhite = 13

		got, err := b.Apply(Move{From: 2, To: -4, Die: 6}, White)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got.Off(White) != 14 {
			t.Errorf("white off = %d, want 14", got.Off(White))
		}
	})

	t.Run("overshoot forbidden with farther checker", func(t *testing.T) {
		var b Board
		b.Points[0].White = 1
		b.Points[2].White = 1
		b.Points[4].White = 1
		b.OffWhite = 12

		_, err := b.Apply(Move{From: 2, To: -4, Die: 6}, White)
		if !errors.Is(err, apperrors.New(apperrors.CodeIllegalMove, "")) {
			t.Fatalf("Apply() error = %v, want ILLEGAL_MOVE", err)
		}
	})

	t.Run("bear off forbidden outside home", func(t *testing.T) {
		var b Board
		b.Points[2].White = 1
		b.Points[10].White = 14

		_, err := b.Apply(Move{From: 2, To: -1, Die: 3}, White)
		if !errors.Is(err, apperrors.New(apperrors.CodeIllegalMove, "")) {
			t.Fatalf("Apply() error = %v, want ILLEGAL_MOVE", err)
		}
	})
}

func TestApply_ConservationAcrossMoves(t *testing.T) {
	b := New()
	moves := []Move{
		{From: 23, To: 20, Die: 3},
		{From: 12, To: 11, Die: 1},
	}
	for _, mv := range moves {
		next, err := b.Apply(mv, White)
		if err != nil {
			t.Fatalf("Apply(%+v) error = %v", mv, err)
		}
		b = next
		for _, c := range []Color{White, Black} {
			if got := b.Total(c); got != CheckersPerColor {
				t.Fatalf("Total(%v) = %d after %+v, want %d", c, got, mv, CheckersPerColor)
			}
		}
	}
}

func TestApply_BlackDirection(t *testing.T) {
	var b Board
	b.Points[0].Black = 1

	got, err := b.Apply(Move{From: 0, To: 5, Die: 5}, Black)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Checkers(5, Black) != 1 {
		t.Errorf("black checker at 5 = %d, want 1", got.Checkers(5, Black))
	}
}
