package ai

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	apperrors "github.com/gammonhq/gammon.space/internal/platform/errors"
	"github.com/gammonhq/gammon.space/internal/services/match/domain/board"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		value   string
		want    Difficulty
		wantErr bool
	}{
		{"EASY", DifficultyEasy, false},
		{"MEDIUM", DifficultyMedium, false},
		{"HARD", DifficultyHard, false},
		{"EXPERT", DifficultyExpert, false},
		{"IMPOSSIBLE", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseDifficulty(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestSelect_EmptyInputRejected(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Select(rng, board.New(), nil, board.White, DifficultyExpert)
	if !errors.Is(err, apperrors.New(apperrors.CodeEmptySequence, "")) {
		t.Fatalf("Select() error = %v, want EMPTY_SEQUENCE", err)
	}
}

func TestSelect_ExpertPrefersHit(t *testing.T) {
	// Black has a blot at point 20; white can hit it from 23 or play a quiet
	// move elsewhere. Expert must take the hit.
	var b board.Board
	b.Points[23].White = 2
	b.Points[12].White = 13
	b.Points[20].Black = 1
	b.Points[0].Black = 14

	hit := board.Sequence{{From: 23, To: 20, Die: 3}}
	quiet := board.Sequence{{From: 12, To: 9, Die: 3}}

	rng := rand.New(rand.NewSource(5))
	got, err := Select(rng, b, []board.Sequence{quiet, hit}, board.White, DifficultyExpert)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !got.Equal(hit) {
		t.Errorf("Select() = %v, want hitting sequence %v", got, hit)
	}
}

func TestSelect_EasyCoversAllSequences(t *testing.T) {
	b := board.New()
	sequences := board.EnumerateSequences(b, 3, 1, board.White)
	if len(sequences) < 2 {
		t.Fatalf("expected multiple opening sequences, got %d", len(sequences))
	}

	rng := rand.New(rand.NewSource(11))
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		got, err := Select(rng, b, sequences, board.White, DifficultyEasy)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		for idx, seq := range sequences {
			if got.Equal(seq) {
				seen[idx] = true
				break
			}
		}
	}
	if len(seen) < 2 {
		t.Errorf("easy selection covered %d sequences, want spread over several", len(seen))
	}
}

func TestSelect_SingleSequenceAlwaysChosen(t *testing.T) {
	b := board.New()
	only := board.Sequence{{From: 23, To: 20, Die: 3}}
	rng := rand.New(rand.NewSource(3))

	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert} {
		got, err := Select(rng, b, []board.Sequence{only}, board.White, d)
		if err != nil {
			t.Fatalf("Select(%v) error = %v", d, err)
		}
		if !got.Equal(only) {
			t.Errorf("Select(%v) = %v, want the only sequence", d, got)
		}
	}
}

func TestScoreMove_Factors(t *testing.T) {
	w := weightsByDifficulty[DifficultyMedium]

	t.Run("hit scores above quiet move", func(t *testing.T) {
		var b board.Board
		b.Points[23].White = 2
		b.Points[20].Black = 1
		b.Points[0].Black = 14
		b.Points[12].White = 13

		hit := scoreSequence(b, board.Sequence{{From: 23, To: 20, Die: 3}}, board.White, w)
		quiet := scoreSequence(b, board.Sequence{{From: 12, To: 9, Die: 3}}, board.White, w)
		if hit <= quiet {
			t.Errorf("hit score %v <= quiet score %v", hit, quiet)
		}
	})

	t.Run("made point scores above exposed blot", func(t *testing.T) {
		var b board.Board
		b.Points[23].White = 1
		b.Points[20].White = 1
		b.Points[13].White = 13
		b.Points[15].Black = 15

		reinforce := scoreSequence(b, board.Sequence{{From: 23, To: 20, Die: 3}}, board.White, w)
		expose := scoreSequence(b, board.Sequence{{From: 23, To: 21, Die: 2}}, board.White, w)
		if reinforce <= expose {
			t.Errorf("reinforce score %v <= expose score %v", reinforce, expose)
		}
	})
}

func TestBlotThreatened(t *testing.T) {
	t.Run("opponent within direct range", func(t *testing.T) {
		var b board.Board
		b.Points[10].White = 1
		b.Points[6].Black = 1
		if !blotThreatened(b, 10, board.White) {
			t.Error("blot with black four pips behind not reported as threatened")
		}
	})

	t.Run("opponent out of range", func(t *testing.T) {
		var b board.Board
		b.Points[10].White = 1
		b.Points[2].Black = 1
		if blotThreatened(b, 10, board.White) {
			t.Error("blot with black eight pips behind reported as threatened")
		}
	})

	t.Run("opponent on the bar always threatens", func(t *testing.T) {
		var b board.Board
		b.Points[10].White = 1
		b.BarBlack = 1
		if !blotThreatened(b, 10, board.White) {
			t.Error("blot not reported as threatened while opponent waits on the bar")
		}
	})
}

func TestThinkingDelay_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	ThinkingDelay(ctx, DifficultyExpert)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("ThinkingDelay ran %v after cancellation, want immediate return", elapsed)
	}
}
